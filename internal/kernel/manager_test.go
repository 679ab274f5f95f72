package kernel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/huangzesen/heliospice/internal/config"
	"github.com/huangzesen/heliospice/internal/logging"
	"github.com/huangzesen/heliospice/internal/manifest"
	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/spice"
	"github.com/huangzesen/heliospice/internal/spice/spicetest"
)

func newTestManager(t *testing.T) (*Manager, *spicetest.Fake) {
	t.Helper()
	fake := &spicetest.Fake{}
	cfg := config.Config{KernelDir: t.TempDir()}
	m, err := New(cfg, fake, logging.Discard(), nil)
	require.NoError(t, err)
	return m, fake
}

// roundTripFunc lets a test serve arbitrary URLs without a listener.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func writeKernel(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadIdempotent(t *testing.T) {
	m, fake := newTestManager(t)
	path := writeKernel(t, m.Dir(), "naif0012.tls", "KPL/LSK")

	require.NoError(t, m.Load(path))
	require.NoError(t, m.Load(path))
	require.Len(t, fake.Furnished, 1)
	require.Equal(t, []string{"naif0012.tls"}, m.ListLoaded())
}

func TestUnloadAllResetsState(t *testing.T) {
	m, fake := newTestManager(t)
	path := writeKernel(t, m.Dir(), "de440s.bsp", "SPK")
	require.NoError(t, m.Load(path))
	m.genericLoaded = true
	m.missionLoaded["PSP"] = struct{}{}
	m.segmentLoaded["mro_psp1.bsp"] = struct{}{}

	require.NoError(t, m.UnloadAll())
	require.Empty(t, fake.Furnished)
	require.Equal(t, 1, fake.ClearCalls)
	require.Empty(t, m.ListLoaded())
	require.False(t, m.genericLoaded)
	require.Empty(t, m.missionLoaded)
	require.Empty(t, m.segmentLoaded)

	// Reloading after a clear furnishes again.
	require.NoError(t, m.Load(path))
	require.Len(t, fake.Furnished, 1)
}

func TestEnsureGenericOrderAndIdempotence(t *testing.T) {
	m, fake := newTestManager(t)

	var requests []string
	m.dl = NewDownloader(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			requests = append(requests, req.URL.Path)
			rec := httptest.NewRecorder()
			rec.WriteString("kernel-bytes")
			return rec.Result(), nil
		}),
	}))

	require.NoError(t, m.EnsureGeneric(context.Background()))

	// LSK before PCK before SPK.
	var loaded []string
	for _, p := range fake.Furnished {
		loaded = append(loaded, filepath.Base(p))
	}
	require.Equal(t, []string{"naif0012.tls", "pck00011.tpc", "gm_de440.tpc", "de440s.bsp"}, loaded)
	require.Len(t, requests, 4)

	// Second call is a no-op: no downloads, no loads.
	require.NoError(t, m.EnsureGeneric(context.Background()))
	require.Len(t, requests, 4)
	require.Len(t, fake.Furnished, 4)
}

func TestEnsureGenericCachedFilesSkipDownload(t *testing.T) {
	m, fake := newTestManager(t)
	for _, k := range mission.GenericKernels {
		writeKernel(t, m.Dir(), k.Name, "cached")
	}

	var hits int
	m.dl = NewDownloader(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			hits++
			rec := httptest.NewRecorder()
			return rec.Result(), nil
		}),
	}))

	require.NoError(t, m.EnsureGeneric(context.Background()))
	require.Zero(t, hits)
	require.Len(t, fake.Furnished, 4)
}

func TestEnsureMissionUnknown(t *testing.T) {
	m, fake := newTestManager(t)
	for _, k := range mission.GenericKernels {
		writeKernel(t, m.Dir(), k.Name, "cached")
	}

	err := m.EnsureMission(context.Background(), "ACE")
	require.ErrorIs(t, err, ErrNoKernels)
	require.Contains(t, err.Error(), "PSP") // lists available missions

	// Generic kernels load before the mission lookup, so the pool is
	// usable even after an unknown-mission failure.
	require.Len(t, fake.Furnished, len(mission.GenericKernels))
}

func TestEnsureMissionSegmentedRejected(t *testing.T) {
	m, _ := newTestManager(t)
	m.genericLoaded = true
	err := m.EnsureMission(context.Background(), "CASSINI")
	require.ErrorIs(t, err, ErrSegmented)
}

func TestEnsureMissionDownloadsAndLoads(t *testing.T) {
	m, fake := newTestManager(t)
	m.genericLoaded = true // already furnished in this scenario

	m.dl = NewDownloader(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			rec := httptest.NewRecorder()
			rec.WriteString("DAF/SPK")
			return rec.Result(), nil
		}),
	}))

	require.NoError(t, m.EnsureMission(context.Background(), "VOYAGER_1"))
	require.Equal(t, []string{"vgr1.x2100.bsp"}, m.ListLoaded())
	require.FileExists(t, filepath.Join(m.Dir(), "vgr1.x2100.bsp"))

	// Idempotent per mission.
	require.NoError(t, m.EnsureMission(context.Background(), "VOYAGER_1"))
	require.Len(t, fake.Furnished, 1)
}

func TestEnsureSegmentedSelectsOverlap(t *testing.T) {
	m, fake := newTestManager(t)
	m.genericLoaded = true

	m.dl = NewDownloader(WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			rec := httptest.NewRecorder()
			rec.WriteString("DAF/SPK")
			return rec.Result(), nil
		}),
	}))

	from, _ := time.Parse(time.DateOnly, "2004-11-01")
	to, _ := time.Parse(time.DateOnly, "2005-03-01")
	require.NoError(t, m.EnsureSegmented(context.Background(), "CASSINI", from, to))

	var loaded []string
	for _, p := range fake.Furnished {
		loaded = append(loaded, filepath.Base(p))
	}
	require.Equal(t, []string{
		"050414RB_SCPSE_04034_04342.bsp",
		"050513RB_SCPSE_04342_05034.bsp",
		"060111RB_SCPSE_05034_05186.bsp",
	}, loaded)

	// Repeat query re-downloads nothing.
	require.NoError(t, m.EnsureSegmented(context.Background(), "CASSINI", from, to))
	require.Len(t, fake.Furnished, 3)
}

func TestEnsureSegmentedNoCoverage(t *testing.T) {
	m, _ := newTestManager(t)
	m.genericLoaded = true

	from, _ := time.Parse(time.DateOnly, "1990-01-01")
	to, _ := time.Parse(time.DateOnly, "1991-01-01")
	err := m.EnsureSegmented(context.Background(), "CASSINI", from, to)
	require.ErrorIs(t, err, ErrNoCoverage)
	// The message reports the manifest's full span.
	require.Contains(t, err.Error(), "1997-10-15")
	require.Contains(t, err.Error(), "2017-09-15")
}

func TestEnsureSegmentedUnknownMission(t *testing.T) {
	m, _ := newTestManager(t)
	m.genericLoaded = true
	from, _ := time.Parse(time.DateOnly, "2004-01-01")
	err := m.EnsureSegmented(context.Background(), "PSP", from, from)
	require.ErrorIs(t, err, ErrNoKernels)
}

func TestEnsureSegmentedEmptyManifest(t *testing.T) {
	m, _ := newTestManager(t)
	m.genericLoaded = true

	require.NotContains(t, mission.SegmentedMissions, "TESTSEG")
	mission.SegmentedMissions["TESTSEG"] = "testseg.json"
	t.Cleanup(func() { delete(mission.SegmentedMissions, "TESTSEG") })
	m.manifests = func(filename string) ([]manifest.Segment, error) {
		require.Equal(t, "testseg.json", filename)
		return nil, nil
	}

	from, _ := time.Parse(time.DateOnly, "2004-01-01")
	err := m.EnsureSegmented(context.Background(), "TESTSEG", from, from)
	require.ErrorIs(t, err, ErrEmptyManifest)
	require.NotErrorIs(t, err, ErrNoCoverage)
}

func TestLockedExposesToolkit(t *testing.T) {
	m, fake := newTestManager(t)
	err := m.Locked(func(tk spice.Toolkit) error {
		require.Same(t, fake, tk)
		return nil
	})
	require.NoError(t, err)
}
