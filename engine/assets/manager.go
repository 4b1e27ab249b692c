package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/alaska-engine/engine/core"
	"github.com/spaghettifunk/alaska-engine/engine/renderer/metadata"
)

type AssetInfo struct {
	// Path is relative to the asset root and always slash separated.
	Path    string
	Kind    string
	ModTime time.Time
}

type AssetEventType int

const (
	AssetAdded AssetEventType = iota
	AssetChanged
	AssetRemoved
)

func (t AssetEventType) String() string {
	switch t {
	case AssetAdded:
		return "added"
	case AssetChanged:
		return "changed"
	case AssetRemoved:
		return "removed"
	}
	return "unknown"
}

type AssetEvent struct {
	Type  AssetEventType
	Asset AssetInfo
}

// AssetManager is a Source over a directory. Its catalog is kept current by
// a recursive fsnotify watch, so files added while running become loadable.
type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	mutex sync.RWMutex

	subsMutex   sync.Mutex
	subscribers []func(AssetEvent)

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	started  bool
	isClosed bool
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Initialize catalogs assetsDir and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	root, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.root = root

	if err := am.watchRecursive(root, false); err != nil {
		return err
	}
	am.started = true
	go am.start()

	core.LogInfo("Asset manager watching '%s' (%d assets).", root, am.Len())
	return nil
}

func (am *AssetManager) Root() string {
	return am.root
}

// ReadAsset returns the bytes of a catalogued file.
func (am *AssetManager) ReadAsset(path string) ([]byte, error) {
	key := filepath.ToSlash(filepath.Clean(path))

	am.mutex.RLock()
	_, exists := am.assets[key]
	am.mutex.RUnlock()
	if !exists {
		return nil, notFound(path)
	}

	data, err := os.ReadFile(filepath.Join(am.root, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	return data, nil
}

// Lookup returns the catalog entry of path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.ToSlash(filepath.Clean(path))]
	return info, ok
}

// List returns the catalogued assets of a kind, sorted by path. An empty kind
// lists everything.
func (am *AssetManager) List(kind string) []AssetInfo {
	am.mutex.RLock()
	out := make([]AssetInfo, 0, len(am.assets))
	for _, info := range am.assets {
		if kind == "" || info.Kind == kind {
			out = append(out, info)
		}
	}
	am.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Subscribe registers fn for catalog changes. fn runs on the watcher
// goroutine and must not block.
func (am *AssetManager) Subscribe(fn func(AssetEvent)) {
	am.subsMutex.Lock()
	defer am.subsMutex.Unlock()
	am.subscribers = append(am.subscribers, fn)
}

func (am *AssetManager) publish(ev AssetEvent) {
	am.subsMutex.Lock()
	subs := make([]func(AssetEvent), len(am.subscribers))
	copy(subs, am.subscribers)
	am.subsMutex.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	if am.started {
		<-am.stopped
		return nil
	}
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogWarn("failed to watch '%s': %s", e.Name, err)
			}
		}
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && err == nil {
		am.handleFileEvent(e.Name, s.ModTime())
	}
	// a removed path cannot be stat'ed, directory or not
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive adds (or removes) every directory under path to the watch
// list and catalogs the files found on the way.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				if err := am.fsnotify.Remove(walkPath); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
					return err
				}
				return nil
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath, fi.ModTime())
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.root, path)
	if err != nil || rel == "." || rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func (am *AssetManager) handleFileEvent(path string, modTime time.Time) {
	rel, ok := am.relative(path)
	if !ok {
		return
	}
	kind := DetermineAssetKind(rel)
	if kind == "" {
		return
	}
	info := AssetInfo{Path: rel, Kind: kind, ModTime: modTime}

	am.mutex.Lock()
	_, existed := am.assets[rel]
	am.assets[rel] = info
	am.mutex.Unlock()

	evType := AssetAdded
	if existed {
		evType = AssetChanged
	}
	am.publish(AssetEvent{Type: evType, Asset: info})
}

// removeAsset drops path, or everything under it when it was a directory.
func (am *AssetManager) removeAsset(path string) {
	rel, ok := am.relative(path)
	if !ok {
		return
	}

	var removed []AssetInfo
	am.mutex.Lock()
	for p, info := range am.assets {
		if p == rel || (len(p) > len(rel) && p[:len(rel)+1] == rel+"/") {
			removed = append(removed, info)
			delete(am.assets, p)
		}
	}
	am.mutex.Unlock()

	for _, info := range removed {
		am.publish(AssetEvent{Type: AssetRemoved, Asset: info})
	}
}

// DetermineAssetKind maps a file extension to the resource kind that loads
// it. Unknown extensions map to "".
func DetermineAssetKind(path string) string {
	switch filepath.Ext(path) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceKindTexture
	case ".shadercfg":
		return metadata.ResourceKindProgram
	case ".obj", ".gltf", ".glb":
		return metadata.ResourceKindGeometry
	default:
		return ""
	}
}
