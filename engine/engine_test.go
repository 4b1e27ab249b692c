package engine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/systems"
)

func headlessConfig(t *testing.T) *ApplicationConfig {
	t.Helper()
	config := DefaultApplicationConfig()
	config.Renderer = "headless"
	config.AssetDir = t.TempDir()
	config.Workers = 2
	config.MaxFrames = 100000
	return config
}

// cubeGame spawns n generated cubes with the builtin world program and stops
// the engine once all of them are drawable.
func cubeGame(t *testing.T, config *ApplicationConfig, n int) *Game {
	g := &Game{ApplicationConfig: config}
	deadline := time.Now().Add(5 * time.Second)
	var stop func()

	g.FnInitialize = func() error {
		for i := 0; i < n; i++ {
			program, err := g.SystemManager.ShaderSystem.Acquire(systems.BUILTIN_SHADER_NAME_WORLD)
			if err != nil {
				return err
			}
			geometry, err := g.SystemManager.GeometrySystem.AcquireGenerated(systems.GenerateCube(1, 1, 1, 1, 1, "cube"))
			if err != nil {
				return err
			}
			if _, err := g.Scene.Spawn(program, nil, geometry, mgl32.Translate3D(float32(i), 0, 0)); err != nil {
				return err
			}
		}
		return nil
	}
	g.FnRender = func(packet *metadata.RenderPacket, deltaTime float64) error {
		if g.Scene.Index().Len() == n {
			stop()
		}
		if time.Now().After(deadline) {
			return errors.New("instances never became drawable")
		}
		return nil
	}
	g.State = &stop
	return g
}

func TestEngineRunsHeadless(t *testing.T) {
	config := headlessConfig(t)
	g := cubeGame(t, config, 3)

	e, err := New(g)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	*(g.State.(*func())) = e.Stop

	if err := e.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// the stop lands after the frame that found every instance drawable
	if stats := e.LastFrame(); stats.Draws != 3 || stats.ProgramBinds != 1 || stats.TextureBinds != 1 {
		t.Fatalf("unexpected frame stats %+v", stats)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if e.systemManager.Despatcher.Len() != 0 {
		t.Fatalf("expected every resource released, %d left", e.systemManager.Despatcher.Len())
	}
}

func TestEngineStopsAfterMaxFrames(t *testing.T) {
	config := headlessConfig(t)
	config.MaxFrames = 5

	frames := 0
	g := &Game{ApplicationConfig: config}
	g.FnUpdate = func(deltaTime float64) error {
		frames++
		return nil
	}

	e, err := New(g)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if frames != 5 {
		t.Fatalf("expected 5 frames, got %d", frames)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestEngineFrameErrorEndsRun(t *testing.T) {
	config := headlessConfig(t)
	boom := errors.New("boom")

	g := &Game{ApplicationConfig: config}
	g.FnUpdate = func(deltaTime float64) error {
		return boom
	}

	e, err := New(g)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := e.Run(); !errors.Is(err, boom) {
		t.Fatalf("expected the update error, got %v", err)
	}
	if err := e.Shutdown(); err != nil {
		t.Fatal(err)
	}
}

func TestEngineReadsAssetDirectory(t *testing.T) {
	config := headlessConfig(t)
	shader := `
name = "custom"
uniforms = ["u_view_projection", "u_model"]

[stages]
vertex = "void main() {}"
fragment = "void main() {}"
`
	dir := filepath.Join(config.AssetDir, "shaders")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "custom.shadercfg"), []byte(shader), 0o644); err != nil {
		t.Fatal(err)
	}

	g := &Game{ApplicationConfig: config}
	e, err := New(g)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Initialize(); err != nil {
		t.Fatal(err)
	}
	defer e.Shutdown()

	h, err := g.SystemManager.ShaderSystem.Acquire("custom")
	if err != nil {
		t.Fatal(err)
	}
	defer h.Release()

	deadline := time.Now().Add(5 * time.Second)
	for !h.Ready() {
		if h.Status().Terminal() || time.Now().After(deadline) {
			t.Fatalf("program did not load: %v", h.Err())
		}
		g.SystemManager.Despatcher.Pump(8)
		time.Sleep(time.Millisecond)
	}
	if h.Get().Name != "custom" {
		t.Fatalf("unexpected program %q", h.Get().Name)
	}
}
