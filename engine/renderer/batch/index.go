package batch

import (
	"cmp"
	"strings"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// Index groups drawable instances by program, then texture, then geometry so
// that a frame can be drawn with as few state changes as possible. It owns no
// assets and has no locking: only the device thread may touch it.
type Index struct {
	programs map[*metadata.Program]*programGroup
	lights   []*metadata.Light
	// creation counter, breaks ties between equally named groups
	seq uint64
	len int
}

type programGroup struct {
	program  *metadata.Program
	seq      uint64
	textures map[*metadata.Texture]*textureGroup
}

type textureGroup struct {
	texture    *metadata.Texture
	seq        uint64
	geometries map[*metadata.Geometry]*geometryGroup
}

type geometryGroup struct {
	geometry  *metadata.Geometry
	seq       uint64
	instances map[*metadata.Instance]uint64
}

func NewIndex() *Index {
	return &Index{
		programs: make(map[*metadata.Program]*programGroup),
	}
}

func (ix *Index) next() uint64 {
	ix.seq++
	return ix.seq
}

// AddInstance files i under its program, texture and geometry. Instances
// missing any of the three are ignored, and adding twice is a no-op.
func (ix *Index) AddInstance(i *metadata.Instance) {
	if !i.Renderable() {
		return
	}

	pg, ok := ix.programs[i.Program]
	if !ok {
		pg = &programGroup{
			program:  i.Program,
			seq:      ix.next(),
			textures: make(map[*metadata.Texture]*textureGroup),
		}
		ix.programs[i.Program] = pg
	}

	tg, ok := pg.textures[i.Texture]
	if !ok {
		tg = &textureGroup{
			texture:    i.Texture,
			seq:        ix.next(),
			geometries: make(map[*metadata.Geometry]*geometryGroup),
		}
		pg.textures[i.Texture] = tg
	}

	gg, ok := tg.geometries[i.Geometry]
	if !ok {
		gg = &geometryGroup{
			geometry:  i.Geometry,
			seq:       ix.next(),
			instances: make(map[*metadata.Instance]uint64),
		}
		tg.geometries[i.Geometry] = gg
	}

	if _, exists := gg.instances[i]; exists {
		return
	}
	gg.instances[i] = ix.next()
	ix.len++
}

// RemoveInstance takes i out of the index and reports whether it was there.
// With recursive set, groups left empty are removed bottom-up, stopping at
// the first level that still has children.
func (ix *Index) RemoveInstance(i *metadata.Instance, recursive bool) bool {
	if !i.Renderable() {
		return false
	}
	pg, ok := ix.programs[i.Program]
	if !ok {
		return false
	}
	tg, ok := pg.textures[i.Texture]
	if !ok {
		return false
	}
	gg, ok := tg.geometries[i.Geometry]
	if !ok {
		return false
	}
	if _, ok := gg.instances[i]; !ok {
		return false
	}

	delete(gg.instances, i)
	ix.len--

	if !recursive {
		return true
	}
	if len(gg.instances) > 0 {
		return true
	}
	delete(tg.geometries, i.Geometry)
	if len(tg.geometries) > 0 {
		return true
	}
	delete(pg.textures, i.Texture)
	if len(pg.textures) > 0 {
		return true
	}
	delete(ix.programs, i.Program)
	return true
}

// Contains reports whether i is filed in the index.
func (ix *Index) Contains(i *metadata.Instance) bool {
	if !i.Renderable() {
		return false
	}
	pg, ok := ix.programs[i.Program]
	if !ok {
		return false
	}
	tg, ok := pg.textures[i.Texture]
	if !ok {
		return false
	}
	gg, ok := tg.geometries[i.Geometry]
	if !ok {
		return false
	}
	_, ok = gg.instances[i]
	return ok
}

// Len is the number of instances in the index.
func (ix *Index) Len() int {
	return ix.len
}

func (ix *Index) AddLight(l *metadata.Light) {
	if l == nil {
		return
	}
	for _, existing := range ix.lights {
		if existing == l {
			return
		}
	}
	ix.lights = append(ix.lights, l)
}

func (ix *Index) RemoveLight(l *metadata.Light) bool {
	for n, existing := range ix.lights {
		if existing == l {
			last := len(ix.lights) - 1
			ix.lights[n] = ix.lights[last]
			ix.lights[last] = nil
			ix.lights = ix.lights[:last]
			return true
		}
	}
	return false
}

// Lights returns a copy of the light list, in no particular order.
func (ix *Index) Lights() []*metadata.Light {
	out := make([]*metadata.Light, len(ix.lights))
	copy(out, ix.lights)
	return out
}

// Clear drops every group and light.
func (ix *Index) Clear() {
	ix.programs = make(map[*metadata.Program]*programGroup)
	for n := range ix.lights {
		ix.lights[n] = nil
	}
	ix.lights = ix.lights[:0]
	ix.len = 0
}

func byNameThenSeq(aName, bName string, aSeq, bSeq uint64) int {
	if c := strings.Compare(aName, bName); c != 0 {
		return c
	}
	return cmp.Compare(aSeq, bSeq)
}
