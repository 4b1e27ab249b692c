package metadata

/**
 * @brief Represents a shader stage.
 */
type ShaderStage int

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	}
	return "unknown"
}

/**
 * @brief The decoded, device independent description of a shader program.
 */
type ProgramSource struct {
	/** @brief The program name. */
	Name string
	/** @brief Source per stage. Vertex and fragment are required. */
	Stages map[ShaderStage]string
	/** @brief Names of the uniforms the renderer looks up after linking. */
	Uniforms []string
	/** @brief Name of the renderpass this program is meant for. */
	RenderpassName string
}

func (p *ProgramSource) AssignName(name string) {
	if p.Name == "" {
		p.Name = name
	}
}

/**
 * @brief Represents a linked shader program on the device.
 */
type Program struct {
	Name string
	/** @brief Uniform locations resolved at link time. */
	UniformLocations map[string]int32
	/** @brief Device specific handle (e.g. a GL program name). */
	InternalData interface{}
}
