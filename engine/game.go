package engine

import (
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/scene"
	"github.com/spaghettifunk/alaska-engine/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize is called.
	SystemManager *systems.SystemManager
	Scene         *scene.Scene
	State         interface{}
	FnInitialize  Initialize
	FnUpdate      Update
	FnRender      Render
	FnOnResize    OnResize
	FnShutdown    Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error
type Render func(packet *metadata.RenderPacket, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
