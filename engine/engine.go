package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/platform"
	"github.com/spaghettifunk/alaska-engine/engine/renderer"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/scene"
	"github.com/spaghettifunk/alaska-engine/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *ApplicationConfig
	isRunning     atomic.Bool
	isSuspended   bool
	platform      *platform.Platform
	renderer      *renderer.Renderer
	assetManager  *assets.AssetManager
	pack          *assets.Pack
	systemManager *systems.SystemManager
	scene         *scene.Scene
	width         uint32
	height        uint32
	clock         *core.Clock
	metrics       *core.FrameMetrics
	frameCount    uint64
}

func New(g *Game) (*Engine, error) {
	config := g.ApplicationConfig
	if config == nil {
		config = DefaultApplicationConfig()
		g.ApplicationConfig = config
	}
	core.SetLogLevel(config.LogLevel)

	rendererType, err := renderer.ParseRendererType(config.Renderer)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	backend, err := renderer.NewBackend(rendererType)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       config,
		renderer:     renderer.New(backend),
		assetManager: am,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        config.StartWidth,
		height:       config.StartHeight,
	}
	// the headless device needs no window
	if rendererType == renderer.OpenGL {
		e.platform = platform.New()
		e.platform.OnResize = e.onResized
	}
	return e, nil
}

// Initialize boots the platform, the device, the asset sources and the
// systems, then hands over to the game. Must run on the main thread.
func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.config

	if e.platform != nil {
		if err := e.platform.Startup(config.Name, config.StartPosX, config.StartPosY, config.StartWidth, config.StartHeight); err != nil {
			return err
		}
		e.width, e.height = e.platform.FramebufferSize()
	}
	if err := e.renderer.Initialize(config.Name, e.width, e.height); err != nil {
		return err
	}

	source, err := e.openSources()
	if err != nil {
		return err
	}

	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{
		JobWorkers:   config.Workers,
		JobQueueSize: config.JobQueueSize,
		Texture:      systems.TextureSystemConfig{FlipY: true},
		Shader:       systems.ShaderSystemConfig{RequiredUniforms: []string{"u_view_projection", "u_model"}},
	}, e.renderer.Backend(), source)
	if err != nil {
		return err
	}
	if err := sm.Initialize(); err != nil {
		return err
	}
	e.systemManager = sm

	camera := scene.NewCamera(45, float32(e.width)/float32(e.height), 0.1, 1000)
	e.scene = scene.New(camera, sm.TextureSystem.GetDefaultTexture())

	e.gameInstance.SystemManager = sm
	e.gameInstance.Scene = e.scene
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

// openSources chains the watched asset directory, the optional pack and the
// builtin assets, in this order.
func (e *Engine) openSources() (assets.Source, error) {
	var chain assets.Chain

	if e.config.AssetDir != "" {
		if err := e.assetManager.Initialize(e.config.AssetDir); err != nil {
			core.LogWarn("asset directory '%s' unavailable: %s", e.config.AssetDir, err)
		} else {
			e.assetManager.Subscribe(func(ev assets.AssetEvent) {
				core.LogDebug("asset %s: %s", ev.Type, ev.Asset.Path)
			})
			chain = append(chain, e.assetManager)
		}
	}
	if e.config.PackFile != "" {
		pack, err := assets.OpenPackFile(e.config.PackFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open asset pack: %w", err)
		}
		e.pack = pack
		chain = append(chain, pack)
	}
	chain = append(chain, assets.NewBuiltin())
	return chain, nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()

	for e.isRunning.Load() {
		if e.platform != nil && !e.platform.PumpMessages() {
			e.isRunning.Store(false)
			break
		}
		if e.isSuspended {
			e.platform.Sleep(10)
			// time spent minimized is not frame time
			e.clock.Tick()
			continue
		}

		delta := e.clock.Tick()
		frameStartTime := platform.GetAbsoluteTime()

		if err := e.frame(delta); err != nil {
			core.LogError("frame failed, shutting down: %s", err)
			e.isRunning.Store(false)
			return err
		}

		frameElapsedTime := platform.GetAbsoluteTime() - frameStartTime
		if e.metrics.Update(frameElapsedTime) {
			core.LogDebug("%.1f fps, %.2f ms/frame, %d instances (%d pending)",
				e.metrics.FPS(), e.metrics.FrameTime(), e.scene.Len(), e.scene.Pending())
		}

		e.frameCount++
		if e.config.MaxFrames > 0 && e.frameCount >= e.config.MaxFrames {
			e.isRunning.Store(false)
		}
	}
	return nil
}

// frame runs one iteration: uploads, scene update, game hooks, draw, present.
func (e *Engine) frame(delta float64) error {
	e.systemManager.Despatcher.Pump(e.config.UploadsPerFrame)

	if stats := e.scene.Update(); stats.Dropped > 0 {
		core.LogWarn("%d instances dropped, their resources failed to load", stats.Dropped)
	}

	if e.gameInstance.FnUpdate != nil {
		if err := e.gameInstance.FnUpdate(delta); err != nil {
			return fmt.Errorf("game update: %w", err)
		}
	}

	packet := &metadata.RenderPacket{
		DeltaTime:      delta,
		ViewProjection: e.scene.Camera.ViewProjection(),
		ClearColour:    mgl32.Vec4{0.05, 0.05, 0.1, 1},
	}
	if e.gameInstance.FnRender != nil {
		if err := e.gameInstance.FnRender(packet, delta); err != nil {
			return fmt.Errorf("game render: %w", err)
		}
	}

	if err := e.renderer.DrawFrame(e.scene.Index(), packet); err != nil {
		return err
	}
	if e.platform != nil {
		e.platform.SwapBuffers()
	}
	return nil
}

// Stop asks the run loop to exit after the current frame. Safe to call from
// any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// LastFrame exposes the draw statistics of the last frame.
func (e *Engine) LastFrame() renderer.FrameStats {
	return e.renderer.LastFrame()
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown failed: %s", err)
		}
	}
	if e.scene != nil {
		e.scene.Clear()
	}
	if e.systemManager != nil {
		if err := e.systemManager.Shutdown(); err != nil {
			return err
		}
	}
	if err := e.assetManager.Close(); err != nil {
		core.LogWarn("asset manager close: %s", err)
	}
	if e.pack != nil {
		if err := e.pack.Close(); err != nil {
			core.LogWarn("asset pack close: %s", err)
		}
	}
	if err := e.renderer.Shutdown(); err != nil {
		return err
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	core.LogInfo("Engine shut down after %d frames.", e.frameCount)
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onResized(width, height uint32) {
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}

	if e.scene != nil {
		e.scene.Camera.UpdateAspectRatio(float32(width), float32(height))
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	if err := e.renderer.OnResize(uint16(width), uint16(height)); err != nil {
		core.LogError(err.Error())
	}
}
