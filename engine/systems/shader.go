package systems

import (
	"fmt"
	"path"
	"strings"

	"github.com/spaghettifunk/alaska-engine/engine/assets/loaders"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/resources"
)

const (
	/** @brief The name of the builtin world program. */
	BUILTIN_SHADER_NAME_WORLD string = "builtin.world"

	shaderConfigDir = "shaders"
	shaderConfigExt = ".shadercfg"
)

/** @brief Configuration for the shader system. */
type ShaderSystemConfig struct {
	/** @brief Uniforms every program must expose. Programs missing one fail to upload. */
	RequiredUniforms []string
}

type ShaderSystem struct {
	// This system's configuration.
	Config *ShaderSystemConfig

	despatcher *resources.Despatcher
}

// programUploader compiles and links a program source on the device.
type programUploader struct {
	backend  renderer.RendererBackend
	required []string
}

func (u *programUploader) Initialize(source *metadata.ProgramSource) (*metadata.Program, error) {
	if source == nil {
		return nil, fmt.Errorf("no program source to upload")
	}
	program, err := u.backend.ProgramCreate(source)
	if err != nil {
		return nil, err
	}
	for _, name := range u.required {
		if _, ok := program.UniformLocations[name]; !ok {
			if derr := u.backend.ProgramDestroy(program); derr != nil {
				core.LogWarn("failed to destroy incomplete program '%s': %s", source.Name, derr)
			}
			return nil, fmt.Errorf("program '%s' does not expose uniform '%s'", source.Name, name)
		}
	}
	return program, nil
}

func (u *programUploader) Destroy(program *metadata.Program) error {
	return u.backend.ProgramDestroy(program)
}

func NewShaderSystem(config *ShaderSystemConfig, d *resources.Despatcher, backend renderer.RendererBackend) (*ShaderSystem, error) {
	err := resources.Register(d, resources.Kind[*metadata.ProgramSource, *metadata.Program]{
		Name:     metadata.ResourceKindProgram,
		Decoder:  loaders.ShaderConfigDecoder{},
		Uploader: &programUploader{backend: backend, required: config.RequiredUniforms},
	})
	if err != nil {
		return nil, err
	}
	return &ShaderSystem{
		Config:     config,
		despatcher: d,
	}, nil
}

// ShaderConfigPath is where the configuration of the named program lives.
func ShaderConfigPath(name string) string {
	if strings.HasSuffix(name, shaderConfigExt) {
		return name
	}
	return path.Join(shaderConfigDir, name+shaderConfigExt)
}

// Acquire starts loading the named program. Names are resolved through
// ShaderConfigPath, so "builtin.world" loads "shaders/builtin.world.shadercfg".
func (ss *ShaderSystem) Acquire(name string) (*resources.Handle[*metadata.Program], error) {
	if name == "" {
		return nil, core.Misusef("empty shader name")
	}
	return resources.Get[*metadata.Program](ss.despatcher, resources.NewKey(metadata.ResourceKindProgram, ShaderConfigPath(name)))
}

// Shutdown is a no-op: programs are owned by the despatcher.
func (ss *ShaderSystem) Shutdown() error {
	return nil
}
