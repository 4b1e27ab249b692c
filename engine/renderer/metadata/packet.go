package metadata

import "github.com/go-gl/mathgl/mgl32"

/**
 * @brief Per frame data handed to the renderer backend.
 */
type RenderPacket struct {
	DeltaTime float64
	/** @brief Combined view and projection matrix supplied by the application. */
	ViewProjection mgl32.Mat4
	/** @brief Lights active this frame. */
	Lights []*Light
	/** @brief Clear colour of the frame. */
	ClearColour mgl32.Vec4
}
