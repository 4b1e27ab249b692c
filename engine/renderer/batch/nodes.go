package batch

import (
	"cmp"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// ProgramNode is a read-only snapshot of one program group.
type ProgramNode struct {
	Program  *metadata.Program
	Textures []TextureNode
}

type TextureNode struct {
	Texture    *metadata.Texture
	Geometries []GeometryNode
}

type GeometryNode struct {
	Geometry  *metadata.Geometry
	Instances []*metadata.Instance
}

// Nodes returns the index as nested slices ordered program, texture,
// geometry. Sibling order follows names and does not depend on the order
// instances were added in. Groups emptied by a non-recursive removal are
// included with empty children.
func (ix *Index) Nodes() []ProgramNode {
	programs := make([]*programGroup, 0, len(ix.programs))
	for _, pg := range ix.programs {
		programs = append(programs, pg)
	}
	slices.SortFunc(programs, func(a, b *programGroup) int {
		return byNameThenSeq(a.program.Name, b.program.Name, a.seq, b.seq)
	})

	out := make([]ProgramNode, 0, len(programs))
	for _, pg := range programs {
		out = append(out, ProgramNode{
			Program:  pg.program,
			Textures: pg.nodes(),
		})
	}
	return out
}

func (pg *programGroup) nodes() []TextureNode {
	textures := make([]*textureGroup, 0, len(pg.textures))
	for _, tg := range pg.textures {
		textures = append(textures, tg)
	}
	slices.SortFunc(textures, func(a, b *textureGroup) int {
		return byNameThenSeq(a.texture.Name, b.texture.Name, a.seq, b.seq)
	})

	out := make([]TextureNode, 0, len(textures))
	for _, tg := range textures {
		out = append(out, TextureNode{
			Texture:    tg.texture,
			Geometries: tg.nodes(),
		})
	}
	return out
}

func (tg *textureGroup) nodes() []GeometryNode {
	geometries := make([]*geometryGroup, 0, len(tg.geometries))
	for _, gg := range tg.geometries {
		geometries = append(geometries, gg)
	}
	slices.SortFunc(geometries, func(a, b *geometryGroup) int {
		return byNameThenSeq(a.geometry.Name, b.geometry.Name, a.seq, b.seq)
	})

	out := make([]GeometryNode, 0, len(geometries))
	for _, gg := range geometries {
		out = append(out, GeometryNode{
			Geometry:  gg.geometry,
			Instances: gg.nodes(),
		})
	}
	return out
}

func (gg *geometryGroup) nodes() []*metadata.Instance {
	type entry struct {
		instance *metadata.Instance
		seq      uint64
	}
	entries := make([]entry, 0, len(gg.instances))
	for i, seq := range gg.instances {
		entries = append(entries, entry{instance: i, seq: seq})
	}
	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]*metadata.Instance, len(entries))
	for n, e := range entries {
		out[n] = e.instance
	}
	return out
}
