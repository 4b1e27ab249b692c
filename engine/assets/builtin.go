package assets

import (
	"github.com/gobuffalo/packr"
)

// Builtin serves the assets shipped inside the binary: the default shader
// programs and whatever else lives under assets/builtin at build time.
type Builtin struct {
	box packr.Box
}

func NewBuiltin() *Builtin {
	return &Builtin{
		box: packr.NewBox("../../assets/builtin"),
	}
}

func (b *Builtin) ReadAsset(path string) ([]byte, error) {
	if !b.box.Has(path) {
		return nil, notFound(path)
	}
	data, err := b.box.Find(path)
	if err != nil {
		return nil, notFound(path)
	}
	return data, nil
}

// List returns every builtin file name.
func (b *Builtin) List() []string {
	return b.box.List()
}
