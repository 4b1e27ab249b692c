package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/batch"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/headless"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

func quad(name string) *metadata.MeshData {
	return &metadata.MeshData{
		Name: name,
		Vertices: []metadata.Vertex3D{
			{Position: mgl32.Vec3{0, 0, 0}},
			{Position: mgl32.Vec3{1, 0, 0}},
			{Position: mgl32.Vec3{1, 1, 0}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func pixels() *metadata.ImageData {
	return metadata.CheckerboardPixels(2)
}

type scene struct {
	backend *headless.Backend
	index   *batch.Index
	world   *metadata.Program
	ui      *metadata.Program
	crate   *metadata.Texture
	bricks  *metadata.Texture
	cube    *metadata.Geometry
}

func newScene(t *testing.T) *scene {
	t.Helper()
	s := &scene{backend: headless.New(), index: batch.NewIndex()}
	var err error
	if s.world, err = s.backend.ProgramCreate(&metadata.ProgramSource{Name: "world"}); err != nil {
		t.Fatal(err)
	}
	if s.ui, err = s.backend.ProgramCreate(&metadata.ProgramSource{Name: "ui"}); err != nil {
		t.Fatal(err)
	}
	if s.crate, err = s.backend.TextureCreate("crate", pixels()); err != nil {
		t.Fatal(err)
	}
	if s.bricks, err = s.backend.TextureCreate("bricks", pixels()); err != nil {
		t.Fatal(err)
	}
	if s.cube, err = s.backend.GeometryCreate(quad("cube")); err != nil {
		t.Fatal(err)
	}
	return s
}

func (s *scene) add(p *metadata.Program, tex *metadata.Texture) *metadata.Instance {
	i := &metadata.Instance{Program: p, Texture: tex, Geometry: s.cube, Placement: mgl32.Ident4()}
	s.index.AddInstance(i)
	return i
}

func TestSubmitBindsEachGroupOnce(t *testing.T) {
	s := newScene(t)
	s.add(s.world, s.crate)
	s.add(s.world, s.crate)
	s.add(s.world, s.bricks)
	s.add(s.ui, s.crate)

	stats, err := Submit(s.index, s.backend)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := FrameStats{ProgramBinds: 2, TextureBinds: 3, Draws: 4}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestSubmitSkipsBrokenGroups(t *testing.T) {
	s := newScene(t)
	s.add(s.world, s.crate)
	s.add(s.world, s.bricks)
	if err := s.backend.TextureDestroy(s.bricks); err != nil {
		t.Fatal(err)
	}

	stats, err := Submit(s.index, s.backend)
	if err == nil {
		t.Fatal("expected the destroyed texture to be reported")
	}
	if stats.Draws != 1 || stats.Skipped != 1 {
		t.Fatalf("expected one draw and one skip, got %+v", stats)
	}
}

func TestDrawFrameForwardsLights(t *testing.T) {
	s := newScene(t)
	s.add(s.world, s.crate)
	s.index.AddLight(&metadata.Light{Name: "sun"})

	r := New(s.backend)
	packet := &metadata.RenderPacket{ViewProjection: mgl32.Ident4()}
	if err := r.DrawFrame(s.index, packet); err != nil {
		t.Fatalf("DrawFrame: %v", err)
	}
	if len(packet.Lights) != 1 {
		t.Fatalf("expected 1 light in the packet, got %d", len(packet.Lights))
	}
	if r.LastFrame().Draws != 1 {
		t.Fatalf("expected one draw, got %+v", r.LastFrame())
	}
	calls := s.backend.Calls()
	if calls[len(calls)-1].Op != "end_frame" {
		t.Fatalf("expected frame to end, last call %v", calls[len(calls)-1])
	}
}

func TestParseRendererType(t *testing.T) {
	if rt, err := ParseRendererType("headless"); err != nil || rt != Headless {
		t.Fatalf("expected headless, got %d (%v)", rt, err)
	}
	if _, err := ParseRendererType("vulkan"); err == nil {
		t.Fatal("expected an error for an unsupported backend")
	}
}
