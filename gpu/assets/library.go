package assets

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ShaderAsset is one compiled shader held by the library. Version
// increments whenever the file changes on disk, so pipeline caches keyed
// on (label, version) rebuild instead of reusing stale modules.
type ShaderAsset struct {
	Label   string
	Path    string
	Words   []uint32
	Version uint64
}

// ShaderLibrary caches SPIR-V modules by label. Labels map to
// <dir>/<label>.spv. Safe for use from multiple goroutines.
type ShaderLibrary struct {
	mu     sync.RWMutex
	dir    string
	assets map[string]*ShaderAsset
	stale  map[string]uint64
}

func NewShaderLibrary(dir string) *ShaderLibrary {
	return &ShaderLibrary{
		dir:    dir,
		assets: make(map[string]*ShaderAsset),
		stale:  make(map[string]uint64),
	}
}

// Load returns the cached asset for label, reading it from disk on first
// use or after an invalidation.
func (l *ShaderLibrary) Load(label string) (*ShaderAsset, error) {
	l.mu.RLock()
	asset, ok := l.assets[label]
	pending := l.stale[label]
	l.mu.RUnlock()
	if ok && pending == asset.Version {
		return asset, nil
	}

	path := filepath.Join(l.dir, label+".spv")
	words, err := LoadSPIRV(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	version := l.stale[label]
	if existing, ok := l.assets[label]; ok && version <= existing.Version {
		version = existing.Version
	}
	asset = &ShaderAsset{
		Label:   label,
		Path:    path,
		Words:   words,
		Version: version,
	}
	l.assets[label] = asset
	return asset, nil
}

// Get returns a cached asset without touching the disk.
func (l *ShaderLibrary) Get(label string) (*ShaderAsset, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	asset, ok := l.assets[label]
	return asset, ok
}

// Invalidate marks the shader at path as changed. The next Load rereads
// the file and bumps the version.
func (l *ShaderLibrary) Invalidate(path string) {
	if !strings.HasSuffix(path, ".spv") {
		return
	}
	label := strings.TrimSuffix(filepath.Base(path), ".spv")

	l.mu.Lock()
	defer l.mu.Unlock()
	if asset, ok := l.assets[label]; ok {
		l.stale[label] = asset.Version + 1
	} else {
		l.stale[label]++
	}
}

// Version reports the latest known content version for label, cached or
// pending.
func (l *ShaderLibrary) Version(label string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pending := l.stale[label]
	if asset, ok := l.assets[label]; ok && asset.Version > pending {
		return asset.Version
	}
	return pending
}

// Labels lists every shader the library has seen so far.
func (l *ShaderLibrary) Labels() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	labels := make([]string, 0, len(l.assets))
	for label := range l.assets {
		labels = append(labels, label)
	}
	return labels
}

// Watch wires a directory watcher into the library so on-disk changes
// invalidate cached shaders. The returned watcher must be closed by the
// caller.
func (l *ShaderLibrary) Watch() (*Watcher, error) {
	w, err := NewWatcher(l.dir, func(path string) {
		l.Invalidate(path)
	})
	if err != nil {
		return nil, fmt.Errorf("watch shader dir %s: %w", l.dir, err)
	}
	return w, nil
}
