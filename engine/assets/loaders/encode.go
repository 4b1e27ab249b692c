package loaders

import (
	"bytes"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// EncodeGLB writes mesh as a single-primitive binary glTF. Procedural
// geometry goes through it so it can be loaded like any file asset.
func EncodeGLB(mesh *metadata.MeshData) ([]byte, error) {
	if mesh == nil || len(mesh.Vertices) == 0 {
		return nil, fmt.Errorf("gltf: nothing to encode")
	}

	positions := make([][3]float32, len(mesh.Vertices))
	normals := make([][3]float32, len(mesh.Vertices))
	uvs := make([][2]float32, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		positions[i] = [3]float32(v.Position)
		normals[i] = [3]float32(v.Normal)
		uvs[i] = [2]float32(v.Texcoord)
	}

	doc := gltf.NewDocument()
	prim := &gltf.Primitive{
		Mode: gltf.PrimitiveTriangles,
		Attributes: gltf.PrimitiveAttributes{
			"POSITION":   modeler.WritePosition(doc, positions),
			"NORMAL":     modeler.WriteNormal(doc, normals),
			"TEXCOORD_0": modeler.WriteTextureCoord(doc, uvs),
		},
	}
	if len(mesh.Indices) > 0 {
		prim.Indices = gltf.Index(modeler.WriteIndices(doc, mesh.Indices))
	}
	doc.Meshes = []*gltf.Mesh{{Name: mesh.Name, Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: mesh.Name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	var buf bytes.Buffer
	enc := gltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("gltf: %w", err)
	}
	return buf.Bytes(), nil
}
