package assets

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/pierrec/lz4"

	"github.com/spaghettifunk/alaska-engine/engine/core"
)

// Layout of a pack file:
//
//	magic "AKP\x00" | uint32 header size (LE) | gob PackHeader | lz4 frames
//
// Entry offsets are relative to the first byte after the header.
var packMagic = [4]byte{'A', 'K', 'P', '\x00'}

const packVersion = 1

var ErrPackFormat = errors.New("not an asset pack")

// PackEntry locates one file in a pack.
type PackEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

type PackHeader struct {
	Author      string
	DateCreated int64
	Version     int64
	Index       []PackEntry
}

// PackBuilder collects files and writes them out as one pack. Add is safe
// for concurrent use.
type PackBuilder struct {
	header PackHeader

	mutex sync.Mutex
	files map[string]packedFile
}

type packedFile struct {
	size       int64
	compressed []byte
}

func NewPackBuilder(author string) *PackBuilder {
	return &PackBuilder{
		header: PackHeader{
			Author:  author,
			Version: packVersion,
		},
		files: make(map[string]packedFile),
	}
}

// Add compresses data and stores it under name, replacing a previous entry.
func (b *PackBuilder) Add(name string, data []byte) error {
	var compressed bytes.Buffer
	writer := lz4.NewWriter(&compressed)
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.files[name] = packedFile{size: int64(len(data)), compressed: compressed.Bytes()}
	return nil
}

// WriteTo writes the pack. Entries are laid out sorted by name.
func (b *PackBuilder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	names := make([]string, 0, len(b.files))
	for name := range b.files {
		names = append(names, name)
	}
	sort.Strings(names)

	header := b.header
	header.DateCreated = time.Now().Unix()
	header.Index = make([]PackEntry, 0, len(names))
	var offset int64
	for _, name := range names {
		f := b.files[name]
		header.Index = append(header.Index, PackEntry{
			Name:           name,
			Offset:         offset,
			Size:           f.size,
			CompressedSize: int64(len(f.compressed)),
		})
		offset += int64(len(f.compressed))
	}

	var rawHeader bytes.Buffer
	if err := gob.NewEncoder(&rawHeader).Encode(header); err != nil {
		return 0, err
	}

	var written int64
	write := func(p []byte) error {
		n, err := w.Write(p)
		written += int64(n)
		return err
	}

	var sizeBytes [4]byte
	binary.LittleEndian.PutUint32(sizeBytes[:], uint32(rawHeader.Len()))

	if err := write(packMagic[:]); err != nil {
		return written, err
	}
	if err := write(sizeBytes[:]); err != nil {
		return written, err
	}
	if err := write(rawHeader.Bytes()); err != nil {
		return written, err
	}
	for _, name := range names {
		if err := write(b.files[name].compressed); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Pack is a read-only Source over a pack. Reads are safe for concurrent use.
type Pack struct {
	reader    io.ReaderAt
	closer    io.Closer
	header    PackHeader
	entries   map[string]PackEntry
	dataStart int64
}

// OpenPack reads the header of the pack in r.
func OpenPack(r io.ReaderAt) (*Pack, error) {
	prefix := make([]byte, len(packMagic)+4)
	if _, err := r.ReadAt(prefix, 0); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackFormat, err)
	}
	if !bytes.Equal(prefix[:len(packMagic)], packMagic[:]) {
		return nil, ErrPackFormat
	}
	headerSize := int64(binary.LittleEndian.Uint32(prefix[len(packMagic):]))

	headerBytes := make([]byte, headerSize)
	if _, err := r.ReadAt(headerBytes, int64(len(prefix))); err != nil {
		return nil, fmt.Errorf("%w: truncated header: %w", ErrPackFormat, err)
	}

	var header PackHeader
	if err := gob.NewDecoder(bytes.NewReader(headerBytes)).Decode(&header); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPackFormat, err)
	}
	if header.Version != packVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrPackFormat, header.Version)
	}

	p := &Pack{
		reader:    r,
		header:    header,
		entries:   make(map[string]PackEntry, len(header.Index)),
		dataStart: int64(len(prefix)) + headerSize,
	}
	for _, e := range header.Index {
		p.entries[e.Name] = e
	}
	return p, nil
}

// OpenPackFile opens the pack at path. Close releases the file.
func OpenPackFile(path string) (*Pack, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	p, err := OpenPack(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	p.closer = f
	core.LogInfo("Asset pack '%s' opened (%d entries).", path, len(p.entries))
	return p, nil
}

func (p *Pack) Header() PackHeader {
	return p.header
}

// Names lists the files in the pack, sorted.
func (p *Pack) Names() []string {
	names := make([]string, 0, len(p.entries))
	for _, e := range p.header.Index {
		names = append(names, e.Name)
	}
	return names
}

func (p *Pack) ReadAsset(path string) ([]byte, error) {
	entry, ok := p.entries[path]
	if !ok {
		return nil, notFound(path)
	}

	section := io.NewSectionReader(p.reader, p.dataStart+entry.Offset, entry.CompressedSize)
	data := make([]byte, 0, entry.Size)
	buf := bytes.NewBuffer(data)
	if _, err := io.Copy(buf, lz4.NewReader(section)); err != nil {
		return nil, fmt.Errorf("%w: pack entry '%s': %w", core.ErrIO, path, err)
	}
	if int64(buf.Len()) != entry.Size {
		return nil, fmt.Errorf("%w: pack entry '%s' is %d bytes, expected %d", core.ErrIO, path, buf.Len(), entry.Size)
	}
	return buf.Bytes(), nil
}

func (p *Pack) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
