package systems

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/assets/loaders"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/resources"
)

const DefaultGeometryName string = "default"

// GeometrySystem loads meshes from the asset source and turns procedural
// meshes into assets of their own.
type GeometrySystem struct {
	despatcher *resources.Despatcher
	// generated holds the encoded procedural meshes under their mem:// path
	generated *assets.MemorySource
}

type geometryUploader struct {
	backend renderer.RendererBackend
}

func (u *geometryUploader) Initialize(mesh *metadata.MeshData) (*metadata.Geometry, error) {
	if mesh == nil {
		return nil, fmt.Errorf("no mesh data to upload")
	}
	return u.backend.GeometryCreate(mesh)
}

func (u *geometryUploader) Destroy(geometry *metadata.Geometry) error {
	return u.backend.GeometryDestroy(geometry)
}

// NewGeometrySystem registers the geometry kind. generated must be part of
// the source the despatcher reads from.
func NewGeometrySystem(d *resources.Despatcher, backend renderer.RendererBackend, generated *assets.MemorySource) (*GeometrySystem, error) {
	err := resources.Register(d, resources.Kind[*metadata.MeshData, *metadata.Geometry]{
		Name:     metadata.ResourceKindGeometry,
		Decoder:  loaders.MeshDecoder{},
		Uploader: &geometryUploader{backend: backend},
	})
	if err != nil {
		return nil, err
	}
	return &GeometrySystem{
		despatcher: d,
		generated:  generated,
	}, nil
}

// Acquire starts loading the mesh file at path.
func (gs *GeometrySystem) Acquire(path string) (*resources.Handle[*metadata.Geometry], error) {
	return resources.Get[*metadata.Geometry](gs.despatcher, resources.NewKey(metadata.ResourceKindGeometry, path))
}

// AcquireGenerated stores mesh under a fresh anonymous key and loads it
// like a file. Every call yields a distinct resource.
func (gs *GeometrySystem) AcquireGenerated(mesh *metadata.MeshData) (*resources.Handle[*metadata.Geometry], error) {
	raw, err := loaders.EncodeGLB(mesh)
	if err != nil {
		return nil, core.NewResourceError(mesh.Name, "encode", core.ErrDecode, err)
	}
	key := resources.AnonymousKey(metadata.ResourceKindGeometry)
	gs.generated.Put(key.Path, raw)

	h, err := resources.Get[*metadata.Geometry](gs.despatcher, key)
	if err != nil {
		gs.generated.Delete(key.Path)
		return nil, err
	}
	// the bytes are read by the time any event is published
	h.Subscribe(func(resources.Event) {
		gs.generated.Delete(key.Path)
	})
	return h, nil
}

func (gs *GeometrySystem) Shutdown() error {
	return nil
}

/**
 * @brief Generates a plane lying in the XY plane, facing +Z.
 *
 * @param width The overall width of the plane. Zero defaults to one.
 * @param height The overall height of the plane. Zero defaults to one.
 * @param xSegmentCount The number of segments along the x-axis. Zero defaults to one.
 * @param ySegmentCount The number of segments along the y-axis. Zero defaults to one.
 * @param tileX The number of times the texture tiles across the x-axis. Zero defaults to one.
 * @param tileY The number of times the texture tiles across the y-axis. Zero defaults to one.
 * @param name The name of the generated geometry.
 */
func GeneratePlane(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name string) *metadata.MeshData {
	width = nonZero("width", width)
	height = nonZero("height", height)
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}

	mesh := &metadata.MeshData{
		Name:     geometryName(name),
		Vertices: make([]metadata.Vertex3D, xSegmentCount*ySegmentCount*4),
		Indices:  make([]uint32, 0, xSegmentCount*ySegmentCount*6),
	}

	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	normal := mgl32.Vec3{0, 0, 1}
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := (float32(x) * segWidth) - halfWidth
			minY := (float32(y) * segHeight) - halfHeight
			maxX := minX + segWidth
			maxY := minY + segHeight
			minUVX := (float32(x) / float32(xSegmentCount)) * tileX
			minUVY := (float32(y) / float32(ySegmentCount)) * tileY
			maxUVX := (float32(x+1) / float32(xSegmentCount)) * tileX
			maxUVY := (float32(y+1) / float32(ySegmentCount)) * tileY

			offset := ((y * xSegmentCount) + x) * 4
			mesh.Vertices[offset+0] = metadata.Vertex3D{Position: mgl32.Vec3{minX, minY, 0}, Normal: normal, Texcoord: mgl32.Vec2{minUVX, minUVY}}
			mesh.Vertices[offset+1] = metadata.Vertex3D{Position: mgl32.Vec3{maxX, maxY, 0}, Normal: normal, Texcoord: mgl32.Vec2{maxUVX, maxUVY}}
			mesh.Vertices[offset+2] = metadata.Vertex3D{Position: mgl32.Vec3{minX, maxY, 0}, Normal: normal, Texcoord: mgl32.Vec2{minUVX, maxUVY}}
			mesh.Vertices[offset+3] = metadata.Vertex3D{Position: mgl32.Vec3{maxX, minY, 0}, Normal: normal, Texcoord: mgl32.Vec2{maxUVX, minUVY}}
			mesh.Indices = appendQuad(mesh.Indices, offset)
		}
	}

	mesh.ComputeExtents()
	return mesh
}

// cubeFaces lists, per face, the normal and the corner signs of its four
// vertices in the order bottom-left, top-right, top-left, bottom-right.
var cubeFaces = [6]struct {
	normal  mgl32.Vec3
	corners [4]mgl32.Vec3
}{
	{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-1, -1, 1}, {1, 1, 1}, {-1, 1, 1}, {1, -1, 1}}},         // front
	{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{1, -1, -1}, {-1, 1, -1}, {1, 1, -1}, {-1, -1, -1}}},    // back
	{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-1, -1, -1}, {-1, 1, 1}, {-1, 1, -1}, {-1, -1, 1}}},    // left
	{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{1, -1, 1}, {1, 1, -1}, {1, 1, 1}, {1, -1, -1}}},         // right
	{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{1, -1, 1}, {-1, -1, -1}, {1, -1, -1}, {-1, -1, 1}}},    // bottom
	{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-1, 1, 1}, {1, 1, -1}, {-1, 1, -1}, {1, 1, 1}}},         // top
}

/**
 * @brief Generates an axis aligned box centered on the origin, 4 vertices
 * and 6 indices per face.
 */
func GenerateCube(width, height, depth, tileX, tileY float32, name string) *metadata.MeshData {
	half := mgl32.Vec3{nonZero("width", width) * 0.5, nonZero("height", height) * 0.5, nonZero("depth", depth) * 0.5}
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)
	uvs := [4]mgl32.Vec2{{0, 0}, {tileX, tileY}, {0, tileY}, {tileX, 0}}

	mesh := &metadata.MeshData{
		Name:     geometryName(name),
		Vertices: make([]metadata.Vertex3D, 0, 4*6),
		Indices:  make([]uint32, 0, 6*6),
	}
	for _, face := range cubeFaces {
		offset := uint32(len(mesh.Vertices))
		for c, corner := range face.corners {
			mesh.Vertices = append(mesh.Vertices, metadata.Vertex3D{
				Position: mgl32.Vec3{corner[0] * half[0], corner[1] * half[1], corner[2] * half[2]},
				Normal:   face.normal,
				Texcoord: uvs[c],
			})
		}
		mesh.Indices = appendQuad(mesh.Indices, offset)
	}

	mesh.ComputeExtents()
	return mesh
}

func appendQuad(indices []uint32, offset uint32) []uint32 {
	return append(indices, offset+0, offset+1, offset+2, offset+0, offset+3, offset+1)
}

func nonZero(what string, v float32) float32 {
	if v == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", what)
		return 1
	}
	return v
}

func geometryName(name string) string {
	if name == "" {
		return DefaultGeometryName
	}
	return name
}
