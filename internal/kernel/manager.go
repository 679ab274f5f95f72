// Package kernel manages the SPICE kernel cache: download-on-first-use,
// loading into the toolkit pool, and cache maintenance.
package kernel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/huangzesen/heliospice/internal/config"
	"github.com/huangzesen/heliospice/internal/manifest"
	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/spice"
	"github.com/huangzesen/heliospice/internal/telemetry"
)

// Manager owns the kernel cache directory and the toolkit pool.
//
// The SPICE kernel pool is process-global, so every interaction with
// the toolkit is serialized by a single mutex. Exported methods take
// the lock; *Locked helpers assume it is held. Downloads always happen
// outside the lock — the worst case of two goroutines racing for the
// same file is a duplicate download, which the atomic rename makes
// harmless.
type Manager struct {
	dir     string
	tk      spice.Toolkit
	dl      *Downloader
	log     *zap.SugaredLogger
	metrics *telemetry.Metrics

	// manifests loads a segment manifest by filename. Defaults to the
	// embedded set; swapped in tests.
	manifests func(filename string) ([]manifest.Segment, error)

	mu            sync.Mutex
	loaded        map[string]struct{} // absolute kernel paths in the pool
	genericLoaded bool
	missionLoaded map[string]struct{} // mission keys fully loaded
	segmentLoaded map[string]struct{} // segment filenames loaded
}

// New creates a Manager rooted at cfg.KernelDir, creating the
// directory if needed.
func New(cfg config.Config, tk spice.Toolkit, log *zap.SugaredLogger, metrics *telemetry.Metrics) (*Manager, error) {
	dir := cfg.KernelDir
	if dir == "" {
		dir = config.DefaultKernelDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create kernel dir %s: %w", dir, err)
	}

	timeout := cfg.DownloadTimeout
	if timeout <= 0 {
		timeout = DefaultDownloadTimeout
	}

	return &Manager{
		dir: dir,
		tk:  tk,
		dl: NewDownloader(
			WithTimeout(timeout),
			WithLogger(log),
			WithMetrics(metrics),
		),
		log:           log,
		metrics:       metrics,
		manifests:     manifest.Load,
		loaded:        make(map[string]struct{}),
		missionLoaded: make(map[string]struct{}),
		segmentLoaded: make(map[string]struct{}),
	}, nil
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Locked runs fn with the toolkit lock held, for callers that issue a
// sweep of pool queries and need them serialized as one unit.
func (m *Manager) Locked(fn func(tk spice.Toolkit) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.tk)
}

// Download fetches a kernel into the cache without loading it.
func (m *Manager) Download(ctx context.Context, url, filename string) (string, error) {
	return m.dl.Fetch(ctx, url, m.dir, filename)
}

// Load furnishes a cached kernel into the pool. Idempotent.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadLocked(path)
}

func (m *Manager) loadLocked(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve kernel path %s: %w", path, err)
	}
	if _, ok := m.loaded[abs]; ok {
		return nil
	}
	if err := m.tk.Furnish(abs); err != nil {
		return fmt.Errorf("furnish %s: %w", filepath.Base(abs), err)
	}
	m.loaded[abs] = struct{}{}
	m.metrics.SetLoaded(len(m.loaded))
	m.log.Debugf("loaded kernel: %s", filepath.Base(abs))
	return nil
}

// UnloadAll clears the pool and resets all loaded-state tracking.
func (m *Manager) UnloadAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.tk.ClearAll(); err != nil {
		return fmt.Errorf("clear kernel pool: %w", err)
	}
	m.loaded = make(map[string]struct{})
	m.genericLoaded = false
	m.missionLoaded = make(map[string]struct{})
	m.segmentLoaded = make(map[string]struct{})
	m.metrics.SetLoaded(0)
	m.log.Info("unloaded all SPICE kernels")
	return nil
}

// ListLoaded returns the basenames of kernels currently in the pool,
// sorted.
func (m *Manager) ListLoaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.loaded))
	for path := range m.loaded {
		names = append(names, filepath.Base(path))
	}
	sort.Strings(names)
	return names
}

// EnsureGeneric downloads and loads the generic kernels (LSK, PCK,
// planetary SPK). Idempotent. Order matters: the leapsecond kernel
// enables time conversion for everything after it.
func (m *Manager) EnsureGeneric(ctx context.Context) error {
	m.mu.Lock()
	done := m.genericLoaded
	m.mu.Unlock()
	if done {
		return nil
	}

	paths := make([]string, 0, len(mission.GenericKernels))
	for _, k := range mission.GenericKernels {
		path, err := m.Download(ctx, k.URL, k.Name)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range paths {
		if err := m.loadLocked(path); err != nil {
			return err
		}
	}
	m.genericLoaded = true
	m.log.Info("generic kernels loaded")
	return nil
}

// EnsureMission downloads and loads the fixed kernel set for a
// mission, after the generic kernels. Idempotent per mission key.
func (m *Manager) EnsureMission(ctx context.Context, missionKey string) error {
	m.mu.Lock()
	_, done := m.missionLoaded[missionKey]
	m.mu.Unlock()
	if done {
		return nil
	}

	// Generic kernels first, even when the mission turns out to be
	// unknown: the pool ends up time-conversion capable either way.
	if err := m.EnsureGeneric(ctx); err != nil {
		return err
	}

	kernels, ok := mission.Kernels[missionKey]
	if !ok {
		if mission.IsSegmented(missionKey) {
			return fmt.Errorf("%w: %s requires a time range, use EnsureSegmented", ErrSegmented, missionKey)
		}
		return fmt.Errorf("%w: %s (available: %s)", ErrNoKernels, missionKey,
			strings.Join(fixedMissionKeys(), ", "))
	}

	filenames := make([]string, 0, len(kernels))
	for name := range kernels {
		filenames = append(filenames, name)
	}
	sort.Strings(filenames)

	paths := make([]string, 0, len(filenames))
	for _, name := range filenames {
		path, err := m.Download(ctx, kernels[name], name)
		if err != nil {
			return err
		}
		paths = append(paths, path)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, path := range paths {
		if err := m.loadLocked(path); err != nil {
			return err
		}
	}
	m.missionLoaded[missionKey] = struct{}{}
	m.log.Infof("mission kernels loaded: %s", missionKey)
	return nil
}

// EnsureSegmented downloads and loads only the manifest segments of a
// segmented mission that overlap [from, to] (inclusive civil dates).
func (m *Manager) EnsureSegmented(ctx context.Context, missionKey string, from, to time.Time) error {
	if err := m.EnsureGeneric(ctx); err != nil {
		return err
	}

	manifestFile, ok := mission.SegmentedMissions[missionKey]
	if !ok {
		return fmt.Errorf("%w: %s has no segment manifest", ErrNoKernels, missionKey)
	}

	segs, err := m.manifests(manifestFile)
	if err != nil {
		return err
	}

	matching, err := manifest.Overlapping(segs, from, to)
	if err != nil {
		return err
	}
	if len(matching) == 0 {
		if len(segs) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyManifest, missionKey)
		}
		first, last := manifest.Span(segs)
		return fmt.Errorf("%w: %s from %s to %s (available coverage: %s to %s)",
			ErrNoCoverage, missionKey,
			from.Format(time.DateOnly), to.Format(time.DateOnly), first, last)
	}

	for _, seg := range matching {
		m.mu.Lock()
		_, have := m.segmentLoaded[seg.File]
		m.mu.Unlock()
		if have {
			continue
		}

		path, err := m.Download(ctx, seg.URL, seg.File)
		if err != nil {
			return err
		}

		m.mu.Lock()
		err = m.loadLocked(path)
		if err == nil {
			m.segmentLoaded[seg.File] = struct{}{}
		}
		m.mu.Unlock()
		if err != nil {
			return err
		}
	}

	m.log.Infof("segmented kernels loaded for %s: %d segments (%s to %s)",
		missionKey, len(matching), matching[0].Start, matching[len(matching)-1].Stop)
	return nil
}

// fixedMissionKeys returns the sorted keys of missions with fixed
// (non-segmented) kernel sets.
func fixedMissionKeys() []string {
	keys := make([]string, 0, len(mission.Kernels))
	for key := range mission.Kernels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
