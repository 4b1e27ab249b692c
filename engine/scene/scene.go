package scene

import (
	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/containers"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/batch"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/resources"
)

// InstanceID addresses a spawned instance. Ids of despawned instances never
// resolve again.
type InstanceID = containers.ArenaID

// entry owns the handles of one instance. The instance is in the index only
// once every handle is ready.
type entry struct {
	program  *resources.Handle[*metadata.Program]
	texture  *resources.Handle[*metadata.Texture]
	geometry *resources.Handle[*metadata.Geometry]
	instance *metadata.Instance
	indexed  bool
}

func (e *entry) release() {
	e.program.Release()
	e.geometry.Release()
	if e.texture != nil {
		e.texture.Release()
	}
}

// UpdateStats reports what one Update did.
type UpdateStats struct {
	Activated int
	Dropped   int
}

// Scene owns instances and keeps the batch index in step with the state of
// their resources. Device thread only.
type Scene struct {
	Camera *Camera

	instances      *containers.Arena[*entry]
	index          *batch.Index
	defaultTexture *metadata.Texture
	pending        int
	log            *log.Logger
}

// New creates an empty scene. Instances spawned without a texture are drawn
// with defaultTexture.
func New(camera *Camera, defaultTexture *metadata.Texture) *Scene {
	return &Scene{
		Camera:         camera,
		instances:      containers.NewArena[*entry](64),
		index:          batch.NewIndex(),
		defaultTexture: defaultTexture,
		log:            core.Logger().With("component", "scene"),
	}
}

func (s *Scene) Index() *batch.Index {
	return s.index
}

// Len is the number of spawned instances, drawable or not.
func (s *Scene) Len() int {
	return s.instances.Len()
}

// Pending is the number of instances still waiting for a resource.
func (s *Scene) Pending() int {
	return s.pending
}

// Spawn takes ownership of the handles and places a new instance. It becomes
// drawable on the first Update after all of its resources are ready. A nil
// texture selects the default texture.
func (s *Scene) Spawn(program *resources.Handle[*metadata.Program], texture *resources.Handle[*metadata.Texture], geometry *resources.Handle[*metadata.Geometry], placement mgl32.Mat4) (InstanceID, error) {
	if program == nil || geometry == nil {
		return containers.InvalidArenaID, core.Misusef("an instance needs a program and a geometry")
	}
	if texture == nil && s.defaultTexture == nil {
		return containers.InvalidArenaID, core.Misusef("an instance without texture needs a default texture")
	}
	e := &entry{
		program:  program,
		texture:  texture,
		geometry: geometry,
		instance: &metadata.Instance{Placement: placement},
	}
	s.pending++
	return s.instances.Insert(e), nil
}

// Despawn removes the instance from the index and releases its handles.
func (s *Scene) Despawn(id InstanceID) bool {
	e, ok := s.instances.Remove(id)
	if !ok {
		return false
	}
	s.retire(e)
	return true
}

func (s *Scene) retire(e *entry) {
	if e.indexed {
		s.index.RemoveInstance(e.instance, true)
	} else {
		s.pending--
	}
	e.release()
}

// SetPlacement moves a spawned instance.
func (s *Scene) SetPlacement(id InstanceID, placement mgl32.Mat4) bool {
	e, ok := s.instances.Get(id)
	if !ok {
		return false
	}
	e.instance.Placement = placement
	return true
}

// Instance returns the instance behind id. Its references are nil until the
// instance is drawable.
func (s *Scene) Instance(id InstanceID) (*metadata.Instance, bool) {
	e, ok := s.instances.Get(id)
	if !ok {
		return nil, false
	}
	return e.instance, true
}

// Update polls the handles of every instance. Instances whose resources are
// all ready enter the index. Instances with a failed or released resource are
// despawned with a warning.
func (s *Scene) Update() UpdateStats {
	var stats UpdateStats
	var dead []InstanceID

	s.instances.Each(func(id InstanceID, e *entry) bool {
		if err := e.failure(); err != nil {
			s.log.Warn("dropping instance", "id", id, "err", err)
			dead = append(dead, id)
			return true
		}
		if e.indexed || !e.ready() {
			return true
		}
		e.instance.Program = e.program.Get()
		e.instance.Geometry = e.geometry.Get()
		if e.texture != nil {
			e.instance.Texture = e.texture.Get()
		} else {
			e.instance.Texture = s.defaultTexture
		}
		s.index.AddInstance(e.instance)
		e.indexed = true
		s.pending--
		stats.Activated++
		return true
	})

	for _, id := range dead {
		s.Despawn(id)
		stats.Dropped++
	}
	return stats
}

func (e *entry) ready() bool {
	// Ready uploads decoded payloads, so every handle is polled.
	ok := e.program.Ready()
	ok = e.geometry.Ready() && ok
	if e.texture != nil {
		ok = e.texture.Ready() && ok
	}
	return ok
}

type watched interface {
	Status() resources.Status
	Err() error
	Key() resources.Key
}

func (e *entry) failure() error {
	handles := []watched{e.program, e.geometry}
	if e.texture != nil {
		handles = append(handles, e.texture)
	}
	for _, h := range handles {
		switch h.Status() {
		case resources.Failed:
			return h.Err()
		case resources.Released:
			return core.NewResourceError(h.Key().String(), "draw", core.ErrMisuse, nil)
		}
	}
	return nil
}

func (s *Scene) AddLight(l *metadata.Light) {
	s.index.AddLight(l)
}

func (s *Scene) RemoveLight(l *metadata.Light) bool {
	return s.index.RemoveLight(l)
}

// Clear despawns every instance and drops every light.
func (s *Scene) Clear() {
	var ids []InstanceID
	s.instances.Each(func(id InstanceID, _ *entry) bool {
		ids = append(ids, id)
		return true
	})
	for _, id := range ids {
		s.Despawn(id)
	}
	s.index.Clear()
	s.pending = 0
}
