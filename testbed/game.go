package testbed

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/scene"
	"github.com/spaghettifunk/alaska-engine/engine/systems"
)

const (
	gridSize     = 4
	gridSpacing  = float32(2.5)
	orbitRadius  = float32(14)
	orbitHeight  = float32(6)
	orbitSpeed   = 0.3
	spinSpeed    = 0.8
	floorExtents = float32(24)
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	elapsed float64
	cubes   []scene.InstanceID
	floor   scene.InstanceID
	sun     *metadata.Light
	// last draw count reported, to log only when it changes
	reported int
}

func NewTestGame(config *engine.ApplicationConfig) (*TestGame, error) {
	if config == nil {
		return nil, fmt.Errorf("testbed needs an application config")
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{reported: -1},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) Initialize() error {
	core.LogDebug("TestGame Initialize fn....")

	if g.SystemManager == nil || g.Scene == nil {
		return fmt.Errorf("the engine is not yet initialized with all the system managers")
	}
	state := g.State.(*gameState)

	cube := systems.GenerateCube(1, 1, 1, 1, 1, "test_cube")
	for x := 0; x < gridSize; x++ {
		for z := 0; z < gridSize; z++ {
			offset := float32(gridSize-1) * gridSpacing / 2
			placement := mgl32.Translate3D(float32(x)*gridSpacing-offset, 0.5, float32(z)*gridSpacing-offset)
			id, err := g.spawn(cube, placement)
			if err != nil {
				return err
			}
			state.cubes = append(state.cubes, id)
		}
	}

	plane := systems.GeneratePlane(floorExtents, floorExtents, 8, 8, 6, 6, "test_floor")
	// planes are generated in the XY plane, lay it down
	floor, err := g.spawn(plane, mgl32.HomogRotate3DX(-math.Pi/2))
	if err != nil {
		return err
	}
	state.floor = floor

	state.sun = &metadata.Light{
		Name:      "sun",
		Type:      metadata.LightTypeDirectional,
		Direction: mgl32.Vec3{-0.4, -1, -0.3}.Normalize(),
		Colour:    mgl32.Vec4{1, 0.95, 0.85, 1},
		Intensity: 1,
	}
	g.Scene.AddLight(state.sun)

	g.Scene.Camera.Orbit(0, orbitRadius, orbitHeight)
	core.LogInfo("testbed spawned %d instances", g.Scene.Len())
	return nil
}

// spawn acquires the world program and a geometry generated from mesh, and
// hands both to the scene. The default texture is used.
func (g *TestGame) spawn(mesh *metadata.MeshData, placement mgl32.Mat4) (scene.InstanceID, error) {
	program, err := g.SystemManager.ShaderSystem.Acquire(systems.BUILTIN_SHADER_NAME_WORLD)
	if err != nil {
		return scene.InstanceID{}, err
	}
	geometry, err := g.SystemManager.GeometrySystem.AcquireGenerated(mesh)
	if err != nil {
		program.Release()
		return scene.InstanceID{}, err
	}
	return g.Scene.Spawn(program, nil, geometry, placement)
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.State.(*gameState)
	state.elapsed += deltaTime

	g.Scene.Camera.Orbit(float32(state.elapsed*orbitSpeed), orbitRadius, orbitHeight)

	spin := mgl32.HomogRotate3DY(float32(state.elapsed * spinSpeed))
	for i, id := range state.cubes {
		offset := float32(gridSize-1) * gridSpacing / 2
		x, z := i/gridSize, i%gridSize
		bob := float32(math.Sin(state.elapsed*2+float64(i))) * 0.25
		translation := mgl32.Translate3D(float32(x)*gridSpacing-offset, 0.5+bob, float32(z)*gridSpacing-offset)
		g.Scene.SetPlacement(id, translation.Mul4(spin))
	}
	return nil
}

func (g *TestGame) Render(packet *metadata.RenderPacket, deltaTime float64) error {
	state := g.State.(*gameState)
	if drawable := g.Scene.Index().Len(); drawable != state.reported {
		core.LogDebug("%d instances drawable, %d pending", drawable, g.Scene.Pending())
		state.reported = drawable
	}
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	for _, id := range state.cubes {
		g.Scene.Despawn(id)
	}
	g.Scene.Despawn(state.floor)
	if state.sun != nil {
		g.Scene.RemoveLight(state.sun)
	}
	core.LogDebug("TestGame shutdown")
	return nil
}
