package loaders

import (
	"bytes"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// DecodeGLTF reads a .glb, or a .gltf whose buffers are embedded as data
// URIs, and merges every triangle primitive of the first mesh into one
// geometry.
func DecodeGLTF(raw []byte) (*metadata.MeshData, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(raw)).Decode(doc); err != nil {
		return nil, fmt.Errorf("gltf: %w", err)
	}
	if len(doc.Meshes) == 0 {
		return nil, fmt.Errorf("gltf: document has no meshes")
	}

	src := doc.Meshes[0]
	mesh := &metadata.MeshData{Name: src.Name}
	for n, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		if err := appendPrimitive(doc, prim, mesh); err != nil {
			return nil, fmt.Errorf("gltf: primitive %d: %w", n, err)
		}
	}
	if len(mesh.Vertices) == 0 {
		return nil, fmt.Errorf("gltf: mesh '%s' has no triangle primitives", src.Name)
	}

	mesh.ComputeExtents()
	return mesh, nil
}

func appendPrimitive(doc *gltf.Document, prim *gltf.Primitive, mesh *metadata.MeshData) error {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("normals: %w", err)
		}
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return fmt.Errorf("texcoords: %w", err)
		}
	}

	base := uint32(len(mesh.Vertices))
	for i, p := range positions {
		v := metadata.Vertex3D{
			Position: mgl32.Vec3{p[0], p[1], p[2]},
			Normal:   mgl32.Vec3{0, 1, 0},
		}
		if i < len(normals) {
			v.Normal = mgl32.Vec3{normals[i][0], normals[i][1], normals[i][2]}
		}
		if i < len(uvs) {
			v.Texcoord = mgl32.Vec2{uvs[i][0], uvs[i][1]}
		}
		mesh.Vertices = append(mesh.Vertices, v)
	}

	if prim.Indices == nil {
		for i := range positions {
			mesh.Indices = append(mesh.Indices, base+uint32(i))
		}
		return nil
	}
	indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	if err != nil {
		return fmt.Errorf("indices: %w", err)
	}
	for _, idx := range indices {
		if int(idx) >= len(positions) {
			return fmt.Errorf("index %d out of range", idx)
		}
		mesh.Indices = append(mesh.Indices, base+idx)
	}
	return nil
}
