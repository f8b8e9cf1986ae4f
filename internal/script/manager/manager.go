// Package manager owns the script catalog: manifest discovery, import and
// delete of script files, plus one lazily constructed engine per script id.
package manager

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Parallel-SEKAI/kanade/internal/logging"
	"github.com/Parallel-SEKAI/kanade/internal/script/bridge"
	"github.com/Parallel-SEKAI/kanade/internal/script/engine"
)

const scriptExt = ".js"

// SettingsProvider supplies saved per-script configuration values, keyed
// scriptId -> {key -> value}. A nil provider or missing id means the
// script initializes without config.
type SettingsProvider interface {
	Configs() map[string]map[string]string
}

// Config configures a Manager.
type Config struct {
	Dir      string
	Engine   engine.Config
	Client   bridge.ClientConfig
	Settings SettingsProvider
}

// Manager discovers script files, parses their manifests and hands out
// engines. Engine construction is memoized per id; a failed construction
// is cached as nil until the next scan.
type Manager struct {
	cfg    Config
	log    *logging.Logger
	client *bridge.Client

	mu        sync.Mutex
	manifests map[string]*Manifest
	paths     map[string]string
	engines   map[string]*engineSlot
}

type engineSlot struct {
	once   sync.Once
	engine *engine.Engine
}

// New creates a Manager rooted at cfg.Dir. The directory is created if
// it does not exist.
func New(cfg Config, log *logging.Logger) (*Manager, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("script directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create script directory: %w", err)
	}
	if cfg.Engine.CallTimeout <= 0 {
		cfg.Engine = engine.DefaultConfig()
	}

	return &Manager{
		cfg:       cfg,
		log:       log.Named("manager"),
		client:    bridge.NewClient(cfg.Client),
		manifests: make(map[string]*Manifest),
		paths:     make(map[string]string),
		engines:   make(map[string]*engineSlot),
	}, nil
}

// Scan closes all live engines, re-enumerates the script directory and
// rebuilds the manifest and file-path tables. Files without a valid
// manifest block are skipped. Duplicate ids overwrite earlier entries in
// directory order.
func (m *Manager) Scan() ([]*Manifest, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read script directory: %w", err)
	}

	manifests := make(map[string]*Manifest)
	paths := make(map[string]string)
	var order []string

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), scriptExt) {
			continue
		}
		path := filepath.Join(m.cfg.Dir, entry.Name())
		source, err := os.ReadFile(path)
		if err != nil {
			m.log.Warn("unreadable script", zap.String("path", path), zap.Error(err))
			continue
		}
		manifest, err := ExtractManifest(string(source))
		if err != nil {
			m.log.Warn("script skipped", zap.String("path", path), zap.Error(err))
			continue
		}
		if _, dup := manifests[manifest.ID]; dup {
			m.log.Warn("duplicate script id, keeping later file",
				zap.String("id", manifest.ID),
				zap.String("path", path))
		} else {
			order = append(order, manifest.ID)
		}
		manifests[manifest.ID] = manifest
		paths[manifest.ID] = path
	}

	m.mu.Lock()
	old := m.engines
	m.manifests = manifests
	m.paths = paths
	m.engines = make(map[string]*engineSlot)
	m.mu.Unlock()

	for _, slot := range old {
		if slot.engine != nil {
			slot.engine.Close()
		}
	}

	result := make([]*Manifest, 0, len(order))
	for _, id := range order {
		result = append(result, manifests[id])
	}
	m.log.Info("scan complete", zap.Int("scripts", len(result)))
	return result, nil
}

// Manifests returns the current catalog in unspecified order.
func (m *Manager) Manifests() []*Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Manifest, 0, len(m.manifests))
	for _, manifest := range m.manifests {
		out = append(out, manifest)
	}
	return out
}

// Manifest returns the manifest for one id, or nil if unknown.
func (m *Manager) Manifest(id string) *Manifest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manifests[id]
}

// Engine returns the engine for a script id, constructing it on first
// access. Concurrent first-accessors share one construction attempt.
// Returns nil for unknown ids and for scripts whose construction failed;
// a failure stays cached until the next Scan.
func (m *Manager) Engine(ctx context.Context, id string) *engine.Engine {
	m.mu.Lock()
	if _, known := m.manifests[id]; !known {
		m.mu.Unlock()
		return nil
	}
	slot, ok := m.engines[id]
	if !ok {
		slot = &engineSlot{}
		m.engines[id] = slot
	}
	path := m.paths[id]
	m.mu.Unlock()

	slot.once.Do(func() {
		eng, err := m.build(ctx, id, path)
		if err != nil {
			m.log.Error("engine construction failed",
				zap.String("id", id),
				zap.Error(err))
			return
		}
		slot.engine = eng
	})
	return slot.engine
}

func (m *Manager) build(ctx context.Context, id, path string) (*engine.Engine, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	eng := engine.New(id, m.cfg.Engine, m.log)
	ok := false
	defer func() {
		if !ok {
			eng.Close()
		}
	}()

	binders := map[string]engine.Binder{
		"http":    bridge.NewHTTP(m.client, m.log),
		"console": bridge.NewConsole(m.log, id),
		"crypto":  bridge.NewCrypto(m.log),
	}
	for name, binder := range binders {
		if err := eng.RegisterInterface(ctx, name, binder); err != nil {
			return nil, fmt.Errorf("register %s: %w", name, err)
		}
	}

	if err := eng.Evaluate(ctx, string(source), filepath.Base(path)); err != nil {
		return nil, fmt.Errorf("evaluate script: %w", err)
	}

	var config map[string]string
	if m.cfg.Settings != nil {
		config = m.cfg.Settings.Configs()[id]
	}
	if err := eng.CallInit(ctx, config); err != nil {
		return nil, fmt.Errorf("init script: %w", err)
	}

	ok = true
	return eng, nil
}

// Import copies an externally selected file into the script directory.
// Only files with the script extension are accepted. The catalog is not
// rescanned; callers trigger Scan when ready.
func (m *Manager) Import(sourcePath string) error {
	if !strings.HasSuffix(sourcePath, scriptExt) {
		return fmt.Errorf("not a %s file: %s", scriptExt, filepath.Base(sourcePath))
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	destPath := filepath.Join(m.cfg.Dir, filepath.Base(sourcePath))
	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create script file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		os.Remove(destPath)
		return fmt.Errorf("copy script file: %w", err)
	}

	m.log.Info("script imported", zap.String("path", destPath))
	return nil
}

// Delete removes the backing file and all in-memory state for one id.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	path, ok := m.paths[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown script id: %s", id)
	}
	m.mu.Unlock()

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove script file: %w", err)
	}

	m.mu.Lock()
	slot := m.engines[id]
	delete(m.manifests, id)
	delete(m.paths, id)
	delete(m.engines, id)
	m.mu.Unlock()

	if slot != nil && slot.engine != nil {
		slot.engine.Close()
	}

	m.log.Info("script deleted", zap.String("id", id))
	return nil
}

// Close tears down all live engines.
func (m *Manager) Close() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*engineSlot)
	m.mu.Unlock()

	for _, slot := range engines {
		if slot.engine != nil {
			slot.engine.Close()
		}
	}
}
