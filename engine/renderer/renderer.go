package renderer

import (
	"fmt"

	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/batch"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/headless"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/opengl"
)

type RendererType uint8

const (
	OpenGL RendererType = iota
	Headless
)

func ParseRendererType(name string) (RendererType, error) {
	switch name {
	case "opengl", "gl", "":
		return OpenGL, nil
	case "headless", "none":
		return Headless, nil
	}
	return OpenGL, fmt.Errorf("unsupported renderer backend '%s'", name)
}

// NewBackend builds the device implementation for the given type.
func NewBackend(rendererType RendererType) (RendererBackend, error) {
	switch rendererType {
	case OpenGL:
		return opengl.New(), nil
	case Headless:
		return headless.New(), nil
	}
	return nil, fmt.Errorf("unsupported renderer type %d", rendererType)
}

// Renderer is the frontend: it owns the backend and turns a batch index into
// draw calls once per frame.
type Renderer struct {
	backend   RendererBackend
	lastFrame FrameStats
}

func New(backend RendererBackend) *Renderer {
	return &Renderer{backend: backend}
}

func (r *Renderer) Initialize(appName string, appWidth, appHeight uint32) error {
	if err := r.backend.Initialize(appName, appWidth, appHeight); err != nil {
		return err
	}
	core.LogInfo("Renderer initialized (%dx%d).", appWidth, appHeight)
	return nil
}

func (r *Renderer) Backend() RendererBackend {
	return r.backend
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) OnResize(width, height uint16) error {
	return r.backend.Resized(width, height)
}

// LastFrame returns the statistics of the last drawn frame.
func (r *Renderer) LastFrame() FrameStats {
	return r.lastFrame
}

// DrawFrame draws everything in index. The lights of the index are copied
// into the packet.
func (r *Renderer) DrawFrame(index *batch.Index, packet *metadata.RenderPacket) error {
	packet.Lights = index.Lights()

	if err := r.backend.BeginFrame(packet); err != nil {
		core.LogError(err.Error())
		return err
	}
	stats, err := Submit(index, r.backend)
	r.lastFrame = stats
	if err != nil {
		core.LogError("frame submission failed: %s", err)
	}
	if err := r.backend.EndFrame(packet.DeltaTime); err != nil {
		core.LogError("RendererEndFrame failed. Application shutting down...")
		return err
	}
	return nil
}
