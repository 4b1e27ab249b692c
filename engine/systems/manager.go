package systems

import (
	"context"
	"time"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer"
	"github.com/spaghettifunk/alaska-engine/engine/resources"
)

type SystemManagerConfig struct {
	JobWorkers     int
	JobQueueSize   int
	EventQueueSize int
	// DrainTimeout bounds how long Shutdown waits for in-flight decodes.
	DrainTimeout time.Duration

	Texture TextureSystemConfig
	Shader  ShaderSystemConfig
}

type SystemManager struct {
	JobSystem      *JobSystem
	Despatcher     *resources.Despatcher
	TextureSystem  *TextureSystem
	ShaderSystem   *ShaderSystem
	GeometrySystem *GeometrySystem

	config SystemManagerConfig
}

// NewSystemManager builds the job pool, the despatcher reading from source
// and the systems registering their kinds with it.
func NewSystemManager(config SystemManagerConfig, backend renderer.RendererBackend, source assets.Source) (*SystemManager, error) {
	if config.JobWorkers <= 0 {
		config.JobWorkers = 1
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = 5 * time.Second
	}

	js, err := NewJobSystem(config.JobWorkers, config.JobQueueSize)
	if err != nil {
		return nil, err
	}

	generated := assets.NewMemorySource()
	chain := assets.Chain{generated, source}

	d, err := resources.NewDespatcher(resources.Config{EventQueueSize: config.EventQueueSize}, chain, js)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ts, err := NewTextureSystem(&config.Texture, d, backend, chain)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	ss, err := NewShaderSystem(&config.Shader, d, backend)
	if err != nil {
		js.Shutdown()
		return nil, err
	}
	gs, err := NewGeometrySystem(d, backend, generated)
	if err != nil {
		js.Shutdown()
		return nil, err
	}

	return &SystemManager{
		JobSystem:      js,
		Despatcher:     d,
		TextureSystem:  ts,
		ShaderSystem:   ss,
		GeometrySystem: gs,
		config:         config,
	}, nil
}

// Initialize creates the device objects the systems own. Device thread only.
func (sm *SystemManager) Initialize() error {
	return sm.TextureSystem.Initialize()
}

// Shutdown releases every managed resource, stops the workers and destroys
// the objects owned by the systems. Device thread only.
func (sm *SystemManager) Shutdown() error {
	sm.Despatcher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), sm.config.DrainTimeout)
	defer cancel()
	if err := sm.Despatcher.Drain(ctx); err != nil {
		core.LogWarn("resource decodes still running at shutdown: %s", err)
	}

	if err := sm.JobSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.GeometrySystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.ShaderSystem.Shutdown(); err != nil {
		return err
	}
	if err := sm.TextureSystem.Shutdown(); err != nil {
		return err
	}
	return nil
}
