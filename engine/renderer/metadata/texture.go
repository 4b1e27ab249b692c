package metadata

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief The default diffuse texture name. */
	DEFAULT_DIFFUSE_TEXTURE_NAME string = "default_DIFF"
)

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
	/** @brief Indicates if the texture was created outside of the resource despatcher. */
	TextureFlagIsUnmanaged TextureFlag = 0x2
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/**
 * @brief Represents a texture living on the device.
 */
type Texture struct {
	/** @brief The texture Name. */
	Name string
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the data is re-uploaded. */
	Generation uint32
	/** @brief Device specific handle (e.g. a GL texture name). */
	InternalData interface{}
}

func (t *Texture) HasFlag(flag TextureFlag) bool {
	return t.Flags&TextureFlagBits(flag) != 0
}

// CheckerboardPixels builds the pixels of the engine default texture, a
// blue/white checkerboard. Done in code to avoid any asset dependency.
func CheckerboardPixels(dimension uint32) *ImageData {
	channels := uint32(4)
	pixels := make([]uint8, dimension*dimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}

	for row := uint32(0); row < dimension; row++ {
		for col := uint32(0); col < dimension; col++ {
			index := (row * dimension) + col
			indexBPP := index * channels
			if (row%2 != 0) == (col%2 != 0) {
				pixels[indexBPP+0] = 0
				pixels[indexBPP+1] = 0
			}
		}
	}

	return &ImageData{
		ChannelCount: 4,
		Width:        dimension,
		Height:       dimension,
		Pixels:       pixels,
	}
}
