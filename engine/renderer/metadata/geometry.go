package metadata

import (
	"github.com/go-gl/mathgl/mgl32"
)

/**
 * @brief Interleaved vertex layout shared by every geometry.
 */
type Vertex3D struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Texcoord mgl32.Vec2
}

/**
 * @brief Decoded, CPU side geometry ready for upload.
 */
type MeshData struct {
	/** @brief The Name of the geometry. */
	Name string
	/** @brief An array of Vertices. */
	Vertices []Vertex3D
	/** @brief An array of Indices. May be empty for non-indexed draws. */
	Indices []uint32

	Center     mgl32.Vec3
	MinExtents mgl32.Vec3
	MaxExtents mgl32.Vec3
}

func (m *MeshData) AssignName(name string) {
	if m.Name == "" {
		m.Name = name
	}
}

// ComputeExtents fills the bounding box and center from the vertices.
func (m *MeshData) ComputeExtents() {
	if len(m.Vertices) == 0 {
		return
	}
	min := m.Vertices[0].Position
	max := m.Vertices[0].Position
	for _, v := range m.Vertices[1:] {
		p := v.Position
		for i := 0; i < 3; i++ {
			if p[i] < min[i] {
				min[i] = p[i]
			}
			if p[i] > max[i] {
				max[i] = p[i]
			}
		}
	}
	m.MinExtents = min
	m.MaxExtents = max
	m.Center = min.Add(max).Mul(0.5)
}

/**
 * @brief Represents actual geometry uploaded to the device.
 */
type Geometry struct {
	/** @brief The geometry name. */
	Name string
	/** @brief Number of vertices uploaded. */
	VertexCount uint32
	/** @brief Number of indices uploaded, 0 for non-indexed geometry. */
	IndexCount uint32
	/** @brief The center of the geometry in local coordinates. */
	Center mgl32.Vec3
	/** @brief The extents of the geometry in local coordinates. */
	MinExtents mgl32.Vec3
	MaxExtents mgl32.Vec3
	/** @brief Device specific handle (e.g. GL vertex array and buffers). */
	InternalData interface{}
}
