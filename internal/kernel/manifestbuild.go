package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/huangzesen/heliospice/internal/manifest"
	"github.com/huangzesen/heliospice/internal/mission"
)

// BuildReport summarizes a manifest rebuild.
type BuildReport struct {
	Mission  string   `json:"mission"`
	Output   string   `json:"output"`
	Segments int      `json:"segments"`
	Skipped  []string `json:"skipped,omitempty"`
}

// BuildManifest rebuilds a segmented mission's manifest by scanning
// the remote archive, downloading each matching SPK into a scratch
// directory, and reading its coverage window with the toolkit. Each
// SPK is deleted after its coverage is read to bound disk use. The
// manifest is written to outDir/<mission>.json, sorted by start date.
//
// Requires a real toolkit; the stub build cannot read coverage.
func (m *Manager) BuildManifest(ctx context.Context, missionKey, outDir string) (*BuildReport, error) {
	cfg, ok := manifest.BuildConfigs[missionKey]
	if !ok {
		return nil, fmt.Errorf("no manifest configuration for %s (available: %s)",
			missionKey, strings.Join(manifest.BuildableMissions(), ", "))
	}

	// Leapseconds must be in the pool before coverage windows can be
	// rendered as dates.
	lsk := mission.GenericKernels[0]
	lskPath, err := m.Download(ctx, lsk.URL, lsk.Name)
	if err != nil {
		return nil, err
	}
	if err := m.Load(lskPath); err != nil {
		return nil, err
	}

	files, err := m.listRemoteBSP(ctx, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cfg.BaseURL, err)
	}
	var matching []string
	for _, name := range files {
		if cfg.Pattern.MatchString(name) {
			matching = append(matching, name)
		}
	}
	m.log.Infof("found %d %s SPK files at %s", len(matching), missionKey, cfg.BaseURL)

	scratch, err := os.MkdirTemp("", "heliospice-manifest-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	report := &BuildReport{
		Mission: missionKey,
		Output:  filepath.Join(outDir, cfg.Output),
	}

	var segs []manifest.Segment
	for _, name := range matching {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, err := m.dl.Fetch(ctx, cfg.BaseURL+name, scratch, name)
		if err != nil {
			m.log.Warnf("skipping %s: %v", name, err)
			report.Skipped = append(report.Skipped, name)
			continue
		}

		seg, covered, err := m.segmentCoverage(path, name, cfg)
		os.Remove(path)
		if err != nil {
			return nil, err
		}
		if !covered {
			m.log.Warnf("no coverage for body %d in %s", cfg.NAIFID, name)
			report.Skipped = append(report.Skipped, name)
			continue
		}
		segs = append(segs, seg)
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(segs, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(report.Output, append(data, '\n'), 0o644); err != nil {
		return nil, err
	}

	report.Segments = len(segs)
	m.log.Infof("wrote %s: %d segments", report.Output, report.Segments)
	return report, nil
}

// segmentCoverage reads one SPK's overall coverage window under the
// toolkit lock and renders it as civil dates.
func (m *Manager) segmentCoverage(path, name string, cfg manifest.BuildConfig) (manifest.Segment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	start, stop, covered, err := m.tk.SPKCoverage(path, cfg.NAIFID)
	if err != nil {
		return manifest.Segment{}, false, fmt.Errorf("coverage of %s: %w", name, err)
	}
	if !covered {
		return manifest.Segment{}, false, nil
	}

	startUTC, err := m.tk.ETToUTC(start, "ISOC", 0)
	if err != nil {
		return manifest.Segment{}, false, err
	}
	stopUTC, err := m.tk.ETToUTC(stop, "ISOC", 0)
	if err != nil {
		return manifest.Segment{}, false, err
	}

	return manifest.Segment{
		File:  name,
		URL:   cfg.BaseURL + name,
		Start: civil(startUTC),
		Stop:  civil(stopUTC),
	}, true, nil
}

// civil truncates an ISOC timestamp to its date.
func civil(isoc string) string {
	if len(isoc) > 10 {
		return isoc[:10]
	}
	return isoc
}
