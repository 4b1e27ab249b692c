package renderer

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/batch"
)

// FrameStats counts the work of one submission.
type FrameStats struct {
	ProgramBinds int
	TextureBinds int
	Draws        int
	// instances skipped because their group failed to bind
	Skipped int
}

// Submit walks the index program first, texture second, geometry last and
// issues one draw per instance. A program or texture that fails to bind skips
// its subtree; the frame carries on and every error is returned joined.
func Submit(index *batch.Index, backend RendererBackend) (FrameStats, error) {
	var stats FrameStats
	var errs []error

	for _, pn := range index.Nodes() {
		if err := backend.ProgramUse(pn.Program); err != nil {
			errs = append(errs, fmt.Errorf("program '%s': %w", pn.Program.Name, err))
			stats.Skipped += countProgram(pn)
			continue
		}
		stats.ProgramBinds++

		for _, tn := range pn.Textures {
			if err := backend.TextureBind(tn.Texture); err != nil {
				errs = append(errs, fmt.Errorf("texture '%s': %w", tn.Texture.Name, err))
				stats.Skipped += countTexture(tn)
				continue
			}
			stats.TextureBinds++

			for _, gn := range tn.Geometries {
				for _, instance := range gn.Instances {
					if err := backend.DrawGeometry(gn.Geometry, instance.Placement); err != nil {
						errs = append(errs, fmt.Errorf("geometry '%s': %w", gn.Geometry.Name, err))
						stats.Skipped++
						continue
					}
					stats.Draws++
				}
			}
		}
	}
	return stats, errors.Join(errs...)
}

func countProgram(pn batch.ProgramNode) int {
	n := 0
	for _, tn := range pn.Textures {
		n += countTexture(tn)
	}
	return n
}

func countTexture(tn batch.TextureNode) int {
	n := 0
	for _, gn := range tn.Geometries {
		n += len(gn.Instances)
	}
	return n
}
