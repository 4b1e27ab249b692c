package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// RendererBackend is the graphics device. Every method must be called from
// the thread that owns the device context.
type RendererBackend interface {
	Initialize(appName string, appWidth, appHeight uint32) error
	Shutdown() error
	Resized(width, height uint16) error
	BeginFrame(packet *metadata.RenderPacket) error
	EndFrame(deltaTime float64) error

	TextureCreate(name string, image *metadata.ImageData) (*metadata.Texture, error)
	TextureWriteData(texture *metadata.Texture, image *metadata.ImageData) error
	TextureDestroy(texture *metadata.Texture) error

	ProgramCreate(source *metadata.ProgramSource) (*metadata.Program, error)
	ProgramDestroy(program *metadata.Program) error

	GeometryCreate(mesh *metadata.MeshData) (*metadata.Geometry, error)
	GeometryDestroy(geometry *metadata.Geometry) error

	ProgramUse(program *metadata.Program) error
	TextureBind(texture *metadata.Texture) error
	DrawGeometry(geometry *metadata.Geometry, model mgl32.Mat4) error
}
