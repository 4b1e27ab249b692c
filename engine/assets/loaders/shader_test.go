package loaders

import (
	"strings"
	"testing"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

const validShaderConfig = `
name = "builtin.world"
renderpass = "world"
uniforms = ["u_tint"]

[stages]
vertex = """
#version 410 core
void main() { gl_Position = vec4(0.0); }
"""
fragment = """
#version 410 core
out vec4 colour;
void main() { colour = vec4(1.0); }
"""
`

func TestShaderConfigDecoder(t *testing.T) {
	src, err := ShaderConfigDecoder{}.Decode([]byte(validShaderConfig))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if src.Name != "builtin.world" || src.RenderpassName != "world" {
		t.Fatalf("unexpected header %+v", src)
	}
	if len(src.Uniforms) != 1 || src.Uniforms[0] != "u_tint" {
		t.Fatalf("unexpected uniforms %v", src.Uniforms)
	}
	if !strings.Contains(src.Stages[metadata.ShaderStageVertex], "gl_Position") {
		t.Fatal("vertex stage not decoded")
	}
	if !strings.Contains(src.Stages[metadata.ShaderStageFragment], "colour") {
		t.Fatal("fragment stage not decoded")
	}
}

func TestShaderConfigDecoderErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  string
	}{
		{"malformed toml", "name = "},
		{"missing fragment", "[stages]\nvertex = \"void main() {}\"\n"},
		{"empty stage", "[stages]\nvertex = \"void main() {}\"\nfragment = \"  \"\n"},
		{"unknown stage", "[stages]\nvertex = \"a\"\nfragment = \"b\"\ngeometry = \"c\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := (ShaderConfigDecoder{}).Decode([]byte(tt.cfg)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}
