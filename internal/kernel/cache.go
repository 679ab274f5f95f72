package kernel

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huangzesen/heliospice/internal/mission"
)

// CachedFile is one kernel file on disk.
type CachedFile struct {
	Name   string  `json:"name"`
	SizeMB float64 `json:"size_mb"`
}

// MissionCache groups a mission's cached files.
type MissionCache struct {
	SizeMB    float64      `json:"size_mb"`
	FileCount int          `json:"file_count"`
	Files     []CachedFile `json:"files"`
}

// CacheInfo summarizes the on-disk kernel cache grouped by mission.
// Files whose owner cannot be determined group under "UNKNOWN".
type CacheInfo struct {
	KernelDir   string                   `json:"kernel_dir"`
	TotalSizeMB float64                  `json:"total_size_mb"`
	FileCount   int                      `json:"file_count"`
	Missions    map[string]*MissionCache `json:"missions"`
}

// DeleteResult reports the outcome of a cache deletion.
type DeleteResult struct {
	Deleted []string `json:"deleted"`
	FreedMB float64  `json:"freed_mb"`
	Errors  []string `json:"errors,omitempty"`
	Message string   `json:"message,omitempty"`
}

// PurgeResult reports the outcome of a full cache purge.
type PurgeResult struct {
	DeletedCount int      `json:"deleted_count"`
	FreedMB      float64  `json:"freed_mb"`
	Errors       []string `json:"errors,omitempty"`
}

// cachedFiles lists the cache directory, skipping in-flight ".tmp"
// downloads.
func (m *Manager) cachedFiles() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []os.DirEntry
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		files = append(files, e)
	}
	return files, nil
}

// CacheSizeBytes returns the total size of cached kernels.
func (m *Manager) CacheSizeBytes() (int64, error) {
	files, err := m.cachedFiles()
	if err != nil {
		return 0, err
	}
	var total int64
	for _, f := range files {
		info, err := f.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

// CacheInfo summarizes the cache grouped by mission.
func (m *Manager) CacheInfo() (*CacheInfo, error) {
	files, err := m.cachedFiles()
	if err != nil {
		return nil, err
	}

	fm := mission.FileOwners()
	info := &CacheInfo{
		KernelDir: m.dir,
		Missions:  make(map[string]*MissionCache),
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var total int64
	for _, f := range files {
		stat, err := f.Info()
		if err != nil {
			continue
		}
		total += stat.Size()
		info.FileCount++

		owner, ok := fm[f.Name()]
		if !ok {
			owner = "UNKNOWN"
		}
		mc := info.Missions[owner]
		if mc == nil {
			mc = &MissionCache{}
			info.Missions[owner] = mc
		}
		sizeMB := roundMB(stat.Size())
		mc.SizeMB = round2(mc.SizeMB + sizeMB)
		mc.FileCount++
		mc.Files = append(mc.Files, CachedFile{Name: f.Name(), SizeMB: sizeMB})
	}
	info.TotalSizeMB = roundMB(total)
	return info, nil
}

// DeleteFiles removes the named kernels from disk, unloading any that
// are in the pool first. Missing files are reported as errors without
// failing the rest. Mission-level loaded flags covering a deleted file
// are invalidated so the next ensure call re-downloads it.
func (m *Manager) DeleteFiles(filenames []string) *DeleteResult {
	result := &DeleteResult{Deleted: []string{}}
	var freed int64

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, name := range filenames {
		path := filepath.Join(m.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: not found in cache", name))
			continue
		}

		if abs, err := filepath.Abs(path); err == nil {
			if _, loaded := m.loaded[abs]; loaded {
				// Unload failures are non-fatal: the file is going away.
				_ = m.tk.Unload(abs)
				delete(m.loaded, abs)
				m.metrics.SetLoaded(len(m.loaded))
			}
		}
		delete(m.segmentLoaded, name)

		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		result.Deleted = append(result.Deleted, name)
		freed += info.Size()
	}

	// Invalidate mission flags whose files were deleted.
	fm := mission.FileOwners()
	for _, name := range result.Deleted {
		owner, ok := fm[name]
		if !ok {
			continue
		}
		if owner == "GENERIC" {
			m.genericLoaded = false
		} else {
			delete(m.missionLoaded, owner)
		}
	}

	result.FreedMB = roundMB(freed)
	m.log.Infof("deleted %d cached files (%.1f MB freed)", len(result.Deleted), float64(freed)/(1024*1024))
	return result
}

// DeleteMission removes all cached files belonging to one mission key
// ("GENERIC" deletes the generic set).
func (m *Manager) DeleteMission(missionKey string) (*DeleteResult, error) {
	files, err := m.cachedFiles()
	if err != nil {
		return nil, err
	}

	fm := mission.FileOwners()
	var toDelete []string
	for _, f := range files {
		if fm[f.Name()] == missionKey {
			toDelete = append(toDelete, f.Name())
		}
	}
	if len(toDelete) == 0 {
		return &DeleteResult{
			Deleted: []string{},
			Message: fmt.Sprintf("No cached files for %s", missionKey),
		}, nil
	}
	return m.DeleteFiles(toDelete), nil
}

// Purge unloads everything and deletes every cached kernel.
func (m *Manager) Purge() (*PurgeResult, error) {
	if err := m.UnloadAll(); err != nil {
		return nil, err
	}

	files, err := m.cachedFiles()
	if err != nil {
		return nil, err
	}

	result := &PurgeResult{}
	var freed int64
	for _, f := range files {
		info, statErr := f.Info()
		if err := os.Remove(filepath.Join(m.dir, f.Name())); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Name(), err))
			continue
		}
		result.DeletedCount++
		if statErr == nil {
			freed += info.Size()
		}
	}
	result.FreedMB = roundMB(freed)
	m.metrics.SetCacheBytes(0)
	m.log.Infof("purged kernel cache: %d files (%.1f MB freed)", result.DeletedCount, float64(freed)/(1024*1024))
	return result, nil
}

func roundMB(bytes int64) float64 {
	return round2(float64(bytes) / (1024 * 1024))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
