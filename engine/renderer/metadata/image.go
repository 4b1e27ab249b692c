package metadata

/**
 * @brief CPU side pixels of a decoded image, always RGBA8, rows top to bottom.
 */
type ImageData struct {
	/** @brief Name of the image, defaults to the asset path. */
	Name string
	/** @brief The number of channels. Always 4 once decoded. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief Set when at least one pixel has alpha below 255. */
	HasTransparency bool
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

func (i *ImageData) AssignName(name string) {
	if i.Name == "" {
		i.Name = name
	}
}
