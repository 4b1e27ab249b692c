package systems

import (
	"fmt"

	"github.com/spaghettifunk/alaska-engine/engine/assets"
	"github.com/spaghettifunk/alaska-engine/engine/assets/loaders"
	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
	"github.com/spaghettifunk/alaska-engine/engine/resources"
)

/** @brief Configuration for the texture system. */
type TextureSystemConfig struct {
	/** @brief Side of the default checkerboard texture, in pixels. */
	DefaultTextureSize uint32
	/** @brief Flip decoded images vertically so row 0 is the bottom row. */
	FlipY bool
}

type TextureSystem struct {
	Config         *TextureSystemConfig
	DefaultTexture *metadata.Texture

	despatcher *resources.Despatcher
	backend    renderer.RendererBackend
	source     assets.Source
	decoder    loaders.ImageDecoder
	// textures created outside the despatcher, destroyed on Shutdown
	unmanaged []*metadata.Texture
}

// textureUploader is the device half of the texture kind.
type textureUploader struct {
	backend renderer.RendererBackend
}

func (u *textureUploader) Initialize(img *metadata.ImageData) (*metadata.Texture, error) {
	if img == nil {
		return nil, fmt.Errorf("no image data to upload")
	}
	return u.backend.TextureCreate(img.Name, img)
}

func (u *textureUploader) Destroy(texture *metadata.Texture) error {
	return u.backend.TextureDestroy(texture)
}

func NewTextureSystem(config *TextureSystemConfig, d *resources.Despatcher, backend renderer.RendererBackend, source assets.Source) (*TextureSystem, error) {
	if config.DefaultTextureSize == 0 {
		config.DefaultTextureSize = 256
	}
	ts := &TextureSystem{
		Config:     config,
		despatcher: d,
		backend:    backend,
		source:     source,
		decoder:    loaders.ImageDecoder{FlipY: config.FlipY},
	}
	err := resources.Register(d, resources.Kind[*metadata.ImageData, *metadata.Texture]{
		Name:     metadata.ResourceKindTexture,
		Decoder:  ts.decoder,
		Uploader: &textureUploader{backend: backend},
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

// Initialize creates the default texture. Must run on the device thread.
func (ts *TextureSystem) Initialize() error {
	core.LogDebug("Creating default texture...")
	img := metadata.CheckerboardPixels(ts.Config.DefaultTextureSize)
	img.Name = metadata.DEFAULT_TEXTURE_NAME
	texture, err := ts.CreateUnmanaged(img)
	if err != nil {
		core.LogError("failed to create default texture: %s", err)
		return err
	}
	ts.DefaultTexture = texture
	return nil
}

/**
 * @brief Destroys every unmanaged texture, the default one included.
 * Managed textures are destroyed by the despatcher.
 */
func (ts *TextureSystem) Shutdown() error {
	for _, t := range ts.unmanaged {
		if err := ts.backend.TextureDestroy(t); err != nil {
			core.LogError("failed to destroy texture '%s': %s", t.Name, err)
			return err
		}
	}
	ts.unmanaged = nil
	ts.DefaultTexture = nil
	return nil
}

// Acquire starts loading the texture at path (relative to the asset root)
// and returns a handle to it.
func (ts *TextureSystem) Acquire(path string) (*resources.Handle[*metadata.Texture], error) {
	if path == metadata.DEFAULT_TEXTURE_NAME {
		return nil, core.Misusef("texture '%s' is not loadable, use GetDefaultTexture", path)
	}
	return resources.Get[*metadata.Texture](ts.despatcher, resources.NewKey(metadata.ResourceKindTexture, path))
}

func (ts *TextureSystem) GetDefaultTexture() *metadata.Texture {
	return ts.DefaultTexture
}

// CreateUnmanaged uploads img directly, bypassing the despatcher. The texture
// is flagged unmanaged and lives until Shutdown.
func (ts *TextureSystem) CreateUnmanaged(img *metadata.ImageData) (*metadata.Texture, error) {
	texture, err := ts.backend.TextureCreate(img.Name, img)
	if err != nil {
		return nil, core.NewResourceError(img.Name, "upload", core.ErrDeviceInit, err)
	}
	texture.Flags |= metadata.TextureFlagBits(metadata.TextureFlagIsUnmanaged)
	ts.unmanaged = append(ts.unmanaged, texture)
	return texture, nil
}

// LoadUnmanaged reads and decodes path synchronously and writes the pixels
// into target. Textures owned by the despatcher are rejected.
func (ts *TextureSystem) LoadUnmanaged(target *metadata.Texture, path string) error {
	if target == nil {
		return core.Misusef("no target texture for '%s'", path)
	}
	if err := ts.despatcher.CheckUnmanaged(target); err != nil {
		return err
	}
	resource := resources.NewKey(metadata.ResourceKindTexture, path).String()

	raw, err := ts.source.ReadAsset(path)
	if err != nil {
		return core.NewResourceError(resource, "read", core.ErrIO, err)
	}
	img, err := ts.decoder.Decode(raw)
	if err != nil {
		return core.NewResourceError(resource, "decode", core.ErrDecode, err)
	}
	if err := ts.backend.TextureWriteData(target, img); err != nil {
		return core.NewResourceError(resource, "upload", core.ErrDeviceInit, err)
	}
	return nil
}
