package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

// Uniforms every program may use. Missing ones resolve to -1 and are skipped.
const (
	uniformViewProjection = "u_view_projection"
	uniformModel          = "u_model"
	uniformDiffuse        = "u_diffuse"
	uniformLightDirection = "u_light_direction"
	uniformLightColour    = "u_light_colour"
)

// Backend draws through an OpenGL 4.1 core context. The context must already
// be current on the calling thread (see platform.Platform).
type Backend struct {
	appName string
	packet  *metadata.RenderPacket
	current *metadata.Program
}

// geometryBuffers is the InternalData of an uploaded geometry.
type geometryBuffers struct {
	vao, vbo, ebo uint32
	indexCount    int32
	vertexCount   int32
}

func New() *Backend {
	return &Backend{}
}

func (b *Backend) Initialize(appName string, appWidth, appHeight uint32) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	b.appName = appName

	core.LogInfo("OpenGL version: %s", gl.GoStr(gl.GetString(gl.VERSION)))

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.Enable(gl.CULL_FACE)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Viewport(0, 0, int32(appWidth), int32(appHeight))
	return nil
}

func (b *Backend) Shutdown() error {
	gl.UseProgram(0)
	b.current = nil
	core.LogInfo("OpenGL backend shut down.")
	return nil
}

func (b *Backend) Resized(width, height uint16) error {
	gl.Viewport(0, 0, int32(width), int32(height))
	return nil
}

func (b *Backend) BeginFrame(packet *metadata.RenderPacket) error {
	b.packet = packet
	b.current = nil
	c := packet.ClearColour
	gl.ClearColor(c[0], c[1], c[2], c[3])
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	return nil
}

// EndFrame only flushes; presenting is done by the platform swap.
func (b *Backend) EndFrame(deltaTime float64) error {
	gl.Flush()
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("OpenGL error 0x%x during frame", code)
	}
	return nil
}

func (b *Backend) TextureCreate(name string, image *metadata.ImageData) (*metadata.Texture, error) {
	t := &metadata.Texture{Name: name}
	if err := b.TextureWriteData(t, image); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Backend) TextureWriteData(texture *metadata.Texture, image *metadata.ImageData) error {
	if image == nil || len(image.Pixels) == 0 {
		return fmt.Errorf("texture '%s' has no pixel data", texture.Name)
	}
	if uint32(len(image.Pixels)) < image.Width*image.Height*4 {
		return fmt.Errorf("texture '%s' pixel data is shorter than %dx%d RGBA", texture.Name, image.Width, image.Height)
	}

	id, ok := texture.InternalData.(uint32)
	if !ok {
		gl.GenTextures(1, &id)
	}
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(image.Width),
		int32(image.Height),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		unsafe.Pointer(&image.Pixels[0]),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		if !ok {
			gl.DeleteTextures(1, &id)
		}
		return fmt.Errorf("texture '%s' upload failed with 0x%x", texture.Name, code)
	}

	texture.InternalData = id
	texture.Width = image.Width
	texture.Height = image.Height
	texture.ChannelCount = image.ChannelCount
	if image.HasTransparency {
		texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagHasTransparency)
	}
	texture.Generation++
	return nil
}

func (b *Backend) TextureDestroy(texture *metadata.Texture) error {
	id, ok := texture.InternalData.(uint32)
	if !ok || id == 0 {
		return fmt.Errorf("texture '%s' was never uploaded", texture.Name)
	}
	gl.DeleteTextures(1, &id)
	texture.InternalData = nil
	return nil
}

func (b *Backend) ProgramCreate(source *metadata.ProgramSource) (*metadata.Program, error) {
	vert, okVert := source.Stages[metadata.ShaderStageVertex]
	frag, okFrag := source.Stages[metadata.ShaderStageFragment]
	if !okVert || !okFrag {
		return nil, fmt.Errorf("program '%s' needs a vertex and a fragment stage", source.Name)
	}

	prog, err := newProgram(vert, frag)
	if err != nil {
		return nil, fmt.Errorf("program '%s': %w", source.Name, err)
	}

	names := append([]string{
		uniformViewProjection,
		uniformModel,
		uniformDiffuse,
		uniformLightDirection,
		uniformLightColour,
	}, source.Uniforms...)
	locations := make(map[string]int32, len(names))
	for _, name := range names {
		locations[name] = gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
	}

	return &metadata.Program{
		Name:             source.Name,
		UniformLocations: locations,
		InternalData:     prog,
	}, nil
}

func (b *Backend) ProgramDestroy(program *metadata.Program) error {
	prog, ok := program.InternalData.(uint32)
	if !ok || prog == 0 {
		return fmt.Errorf("program '%s' was never linked", program.Name)
	}
	if b.current == program {
		gl.UseProgram(0)
		b.current = nil
	}
	gl.DeleteProgram(prog)
	program.InternalData = nil
	return nil
}

func (b *Backend) GeometryCreate(mesh *metadata.MeshData) (*metadata.Geometry, error) {
	if len(mesh.Vertices) == 0 {
		return nil, fmt.Errorf("geometry '%s' has no vertices", mesh.Name)
	}

	stride := int32(unsafe.Sizeof(metadata.Vertex3D{}))
	buffers := &geometryBuffers{
		indexCount:  int32(len(mesh.Indices)),
		vertexCount: int32(len(mesh.Vertices)),
	}

	gl.GenVertexArrays(1, &buffers.vao)
	gl.GenBuffers(1, &buffers.vbo)
	gl.BindVertexArray(buffers.vao)

	gl.BindBuffer(gl.ARRAY_BUFFER, buffers.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(mesh.Vertices)*int(stride), gl.Ptr(mesh.Vertices), gl.STATIC_DRAW)

	var v metadata.Vertex3D
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(v.Position))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, unsafe.Offsetof(v.Normal))
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, unsafe.Offsetof(v.Texcoord))

	if buffers.indexCount > 0 {
		gl.GenBuffers(1, &buffers.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buffers.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(mesh.Indices)*4, gl.Ptr(mesh.Indices), gl.STATIC_DRAW)
	}
	gl.BindVertexArray(0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		deleteBuffers(buffers)
		return nil, fmt.Errorf("geometry '%s' upload failed with 0x%x", mesh.Name, code)
	}

	return &metadata.Geometry{
		Name:         mesh.Name,
		VertexCount:  uint32(buffers.vertexCount),
		IndexCount:   uint32(buffers.indexCount),
		Center:       mesh.Center,
		MinExtents:   mesh.MinExtents,
		MaxExtents:   mesh.MaxExtents,
		InternalData: buffers,
	}, nil
}

func (b *Backend) GeometryDestroy(geometry *metadata.Geometry) error {
	buffers, ok := geometry.InternalData.(*geometryBuffers)
	if !ok {
		return fmt.Errorf("geometry '%s' was never uploaded", geometry.Name)
	}
	deleteBuffers(buffers)
	geometry.InternalData = nil
	return nil
}

func deleteBuffers(buffers *geometryBuffers) {
	if buffers.ebo != 0 {
		gl.DeleteBuffers(1, &buffers.ebo)
	}
	gl.DeleteBuffers(1, &buffers.vbo)
	gl.DeleteVertexArrays(1, &buffers.vao)
}

func (b *Backend) ProgramUse(program *metadata.Program) error {
	prog, ok := program.InternalData.(uint32)
	if !ok {
		return fmt.Errorf("program '%s' is not linked", program.Name)
	}
	gl.UseProgram(prog)
	b.current = program

	if b.packet == nil {
		return nil
	}
	if loc := program.UniformLocations[uniformViewProjection]; loc >= 0 {
		vp := b.packet.ViewProjection
		gl.UniformMatrix4fv(loc, 1, false, &vp[0])
	}
	if loc := program.UniformLocations[uniformDiffuse]; loc >= 0 {
		gl.Uniform1i(loc, 0)
	}
	for _, light := range b.packet.Lights {
		if light.Type != metadata.LightTypeDirectional {
			continue
		}
		if loc := program.UniformLocations[uniformLightDirection]; loc >= 0 {
			gl.Uniform3f(loc, light.Direction[0], light.Direction[1], light.Direction[2])
		}
		if loc := program.UniformLocations[uniformLightColour]; loc >= 0 {
			c := light.Colour.Mul(light.Intensity)
			gl.Uniform4f(loc, c[0], c[1], c[2], c[3])
		}
		break
	}
	return nil
}

func (b *Backend) TextureBind(texture *metadata.Texture) error {
	id, ok := texture.InternalData.(uint32)
	if !ok {
		return fmt.Errorf("texture '%s' is not uploaded", texture.Name)
	}
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, id)
	return nil
}

func (b *Backend) DrawGeometry(geometry *metadata.Geometry, model mgl32.Mat4) error {
	buffers, ok := geometry.InternalData.(*geometryBuffers)
	if !ok {
		return fmt.Errorf("geometry '%s' is not uploaded", geometry.Name)
	}
	if b.current != nil {
		if loc := b.current.UniformLocations[uniformModel]; loc >= 0 {
			gl.UniformMatrix4fv(loc, 1, false, &model[0])
		}
	}

	gl.BindVertexArray(buffers.vao)
	if buffers.indexCount > 0 {
		gl.DrawElements(gl.TRIANGLES, buffers.indexCount, gl.UNSIGNED_INT, nil)
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, buffers.vertexCount)
	}
	gl.BindVertexArray(0)
	return nil
}
