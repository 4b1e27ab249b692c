package loaders

import (
	"bytes"

	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

var glbMagic = []byte("glTF")

// MeshDecoder picks the mesh format from the content: binary glTF by its
// magic, JSON glTF by its opening brace, Wavefront OBJ otherwise.
type MeshDecoder struct{}

func (MeshDecoder) Decode(raw []byte) (*metadata.MeshData, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n\ufeff")
	switch {
	case bytes.HasPrefix(raw, glbMagic), bytes.HasPrefix(trimmed, []byte("{")):
		return DecodeGLTF(raw)
	default:
		return DecodeOBJ(raw)
	}
}
