package loaders

import (
	"fmt"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// shaderConfig is the on-disk layout of a .shadercfg file.
type shaderConfig struct {
	Name       string            `toml:"name"`
	Renderpass string            `toml:"renderpass"`
	Uniforms   []string          `toml:"uniforms"`
	Stages     map[string]string `toml:"stages"`
}

// ShaderConfigDecoder reads a TOML .shadercfg with inline GLSL stages.
type ShaderConfigDecoder struct{}

func (ShaderConfigDecoder) Decode(raw []byte) (*metadata.ProgramSource, error) {
	var cfg shaderConfig
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("shadercfg: %w", err)
	}

	src := &metadata.ProgramSource{
		Name:           cfg.Name,
		RenderpassName: cfg.Renderpass,
		Uniforms:       cfg.Uniforms,
		Stages:         make(map[metadata.ShaderStage]string, len(cfg.Stages)),
	}
	for name, code := range cfg.Stages {
		stage, err := parseStage(name)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(code) == "" {
			return nil, fmt.Errorf("shadercfg: %s stage is empty", name)
		}
		src.Stages[stage] = code
	}

	for _, required := range []metadata.ShaderStage{metadata.ShaderStageVertex, metadata.ShaderStageFragment} {
		if _, ok := src.Stages[required]; !ok {
			return nil, fmt.Errorf("shadercfg: missing %s stage", required)
		}
	}
	return src, nil
}

func parseStage(name string) (metadata.ShaderStage, error) {
	switch strings.ToLower(name) {
	case "vertex", "vert":
		return metadata.ShaderStageVertex, nil
	case "fragment", "frag":
		return metadata.ShaderStageFragment, nil
	}
	return 0, fmt.Errorf("shadercfg: unsupported stage '%s'", name)
}
