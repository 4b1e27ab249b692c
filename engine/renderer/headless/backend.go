package headless

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// Call is one recorded backend operation.
type Call struct {
	Op   string
	Name string
}

// Backend is a device without a GPU. It hands out sequential ids, records
// every call and can be told to reject uploads by name.
type Backend struct {
	mu      sync.Mutex
	calls   []Call
	nextID  uint32
	live    map[uint32]string
	failing map[string]bool
	width   uint32
	height  uint32
}

func New() *Backend {
	return &Backend{
		live:    make(map[uint32]string),
		failing: make(map[string]bool),
	}
}

// FailUploads makes every later create for name fail.
func (b *Backend) FailUploads(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[name] = true
}

// Calls returns a copy of the recorded calls.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Call, len(b.calls))
	copy(out, b.calls)
	return out
}

// Count returns how many calls of op were recorded.
func (b *Backend) Count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Live is the number of device objects created and not yet destroyed.
func (b *Backend) Live() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.live)
}

func (b *Backend) record(op, name string) {
	b.calls = append(b.calls, Call{Op: op, Name: name})
}

func (b *Backend) create(op, name string) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(op, name)
	if b.failing[name] {
		return 0, fmt.Errorf("%s '%s' rejected by headless device", op, name)
	}
	b.nextID++
	b.live[b.nextID] = name
	return b.nextID, nil
}

func (b *Backend) destroy(op string, internal interface{}, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(op, name)
	id, ok := internal.(uint32)
	if !ok {
		return fmt.Errorf("%s '%s': not a headless object", op, name)
	}
	if _, exists := b.live[id]; !exists {
		return fmt.Errorf("%s '%s': object %d already destroyed", op, name, id)
	}
	delete(b.live, id)
	return nil
}

func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	b.mu.Lock()
	b.width, b.height = appWidth, appHeight
	b.record("initialize", appName)
	b.mu.Unlock()
	core.LogInfo("Headless renderer backend initialized.")
	return nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("shutdown", "")
	if n := len(b.live); n > 0 {
		core.LogWarn("headless backend shut down with %d live objects", n)
	}
	return nil
}

func (b *Backend) Resized(width, height uint16) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width, b.height = uint32(width), uint32(height)
	b.record("resize", fmt.Sprintf("%dx%d", width, height))
	return nil
}

func (b *Backend) BeginFrame(packet *metadata.RenderPacket) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("begin_frame", fmt.Sprintf("%d lights", len(packet.Lights)))
	return nil
}

func (b *Backend) EndFrame(deltaTime float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record("end_frame", "")
	return nil
}

func (b *Backend) TextureCreate(name string, image *metadata.ImageData) (*metadata.Texture, error) {
	if image == nil || len(image.Pixels) == 0 {
		return nil, fmt.Errorf("texture '%s' has no pixel data", name)
	}
	id, err := b.create("texture_create", name)
	if err != nil {
		return nil, err
	}
	t := &metadata.Texture{
		Name:         name,
		Width:        image.Width,
		Height:       image.Height,
		ChannelCount: image.ChannelCount,
		InternalData: id,
	}
	if image.HasTransparency {
		t.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	return t, nil
}

func (b *Backend) TextureWriteData(texture *metadata.Texture, image *metadata.ImageData) error {
	if texture.InternalData == nil {
		id, err := b.create("texture_create", texture.Name)
		if err != nil {
			return err
		}
		texture.InternalData = id
	} else {
		b.mu.Lock()
		b.record("texture_write", texture.Name)
		b.mu.Unlock()
	}
	texture.Width = image.Width
	texture.Height = image.Height
	texture.ChannelCount = image.ChannelCount
	texture.Generation++
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	err := b.destroy("texture_destroy", texture.InternalData, texture.Name)
	texture.InternalData = nil
	return err
}

func (b *Backend) ProgramCreate(source *metadata.ProgramSource) (*metadata.Program, error) {
	id, err := b.create("program_create", source.Name)
	if err != nil {
		return nil, err
	}
	locations := make(map[string]int32, len(source.Uniforms))
	for n, u := range source.Uniforms {
		locations[u] = int32(n)
	}
	return &metadata.Program{
		Name:             source.Name,
		UniformLocations: locations,
		InternalData:     id,
	}, nil
}

func (b *Backend) ProgramDestroy(program *metadata.Program) error {
	err := b.destroy("program_destroy", program.InternalData, program.Name)
	program.InternalData = nil
	return err
}

func (b *Backend) GeometryCreate(mesh *metadata.MeshData) (*metadata.Geometry, error) {
	if len(mesh.Vertices) == 0 {
		return nil, fmt.Errorf("geometry '%s' has no vertices", mesh.Name)
	}
	id, err := b.create("geometry_create", mesh.Name)
	if err != nil {
		return nil, err
	}
	return &metadata.Geometry{
		Name:         mesh.Name,
		VertexCount:  uint32(len(mesh.Vertices)),
		IndexCount:   uint32(len(mesh.Indices)),
		Center:       mesh.Center,
		MinExtents:   mesh.MinExtents,
		MaxExtents:   mesh.MaxExtents,
		InternalData: id,
	}, nil
}

func (b *Backend) GeometryDestroy(geometry *metadata.Geometry) error {
	err := b.destroy("geometry_destroy", geometry.InternalData, geometry.Name)
	geometry.InternalData = nil
	return err
}

func (b *Backend) ProgramUse(program *metadata.Program) error {
	return b.bind("program_use", program.InternalData, program.Name)
}

func (b *Backend) TextureBind(texture *metadata.Texture) error {
	return b.bind("texture_bind", texture.InternalData, texture.Name)
}

func (b *Backend) DrawGeometry(geometry *metadata.Geometry, model mgl32.Mat4) error {
	return b.bind("draw", geometry.InternalData, geometry.Name)
}

func (b *Backend) bind(op string, internal interface{}, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.record(op, name)
	id, ok := internal.(uint32)
	if !ok {
		return fmt.Errorf("%s '%s': object was never created", op, name)
	}
	if _, exists := b.live[id]; !exists {
		return fmt.Errorf("%s '%s': object %d is destroyed", op, name, id)
	}
	return nil
}
