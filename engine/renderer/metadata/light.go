package metadata

import "github.com/go-gl/mathgl/mgl32"

type LightType int

const (
	LightTypeDirectional LightType = iota
	LightTypePoint
)

/**
 * @brief A light source. Lights are tracked outside of the batching structure.
 */
type Light struct {
	Name      string
	Type      LightType
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Colour    mgl32.Vec4
	Intensity float32
	Range     float32
}
