package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief One drawable placement of a (program, texture, geometry) combination.
 * Identity is the pointer: two Instances with equal fields are still distinct.
 */
type Instance struct {
	Program   *Program
	Texture   *Texture
	Geometry  *Geometry
	Placement mgl32.Mat4
}

// Renderable reports whether every reference needed to draw is present.
func (i *Instance) Renderable() bool {
	return i != nil && i.Program != nil && i.Texture != nil && i.Geometry != nil
}
