package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheInfoGroupsByMission(t *testing.T) {
	m, _ := newTestManager(t)
	writeKernel(t, m.Dir(), "naif0012.tls", "lsk")
	writeKernel(t, m.Dir(), "de440s.bsp", "spk-planets")
	writeKernel(t, m.Dir(), "vgr1.x2100.bsp", "voyager")
	writeKernel(t, m.Dir(), "mro_psp1.bsp", "mro segment")
	writeKernel(t, m.Dir(), "mystery.bsp", "who knows")
	writeKernel(t, m.Dir(), "partial.bsp.tmp", "in-flight download")

	info, err := m.CacheInfo()
	require.NoError(t, err)
	require.Equal(t, m.Dir(), info.KernelDir)
	require.Equal(t, 5, info.FileCount) // .tmp excluded

	require.Equal(t, 2, info.Missions["GENERIC"].FileCount)
	require.Equal(t, 1, info.Missions["VOYAGER_1"].FileCount)
	require.Equal(t, 1, info.Missions["MRO"].FileCount)
	require.Equal(t, 1, info.Missions["UNKNOWN"].FileCount)
	require.Equal(t, "mystery.bsp", info.Missions["UNKNOWN"].Files[0].Name)
}

func TestCacheSizeBytesSkipsTemp(t *testing.T) {
	m, _ := newTestManager(t)
	writeKernel(t, m.Dir(), "a.bsp", "12345")
	writeKernel(t, m.Dir(), "b.bsp.tmp", "123456789")

	size, err := m.CacheSizeBytes()
	require.NoError(t, err)
	require.EqualValues(t, 5, size)
}

func TestDeleteFilesUnloadsAndInvalidates(t *testing.T) {
	m, fake := newTestManager(t)
	path := writeKernel(t, m.Dir(), "naif0012.tls", "lsk")
	require.NoError(t, m.Load(path))
	m.genericLoaded = true

	result := m.DeleteFiles([]string{"naif0012.tls", "ghost.bsp"})
	require.Equal(t, []string{"naif0012.tls"}, result.Deleted)
	require.Len(t, result.Errors, 1)
	require.Contains(t, result.Errors[0], "not found in cache")

	// Unloaded from the pool and flag invalidated for re-download.
	require.Empty(t, fake.Furnished)
	require.False(t, m.genericLoaded)
}

func TestDeleteFilesInvalidatesMissionFlag(t *testing.T) {
	m, _ := newTestManager(t)
	writeKernel(t, m.Dir(), "vgr1.x2100.bsp", "voyager")
	m.missionLoaded["VOYAGER_1"] = struct{}{}
	m.missionLoaded["JUNO"] = struct{}{}

	result := m.DeleteFiles([]string{"vgr1.x2100.bsp"})
	require.Equal(t, []string{"vgr1.x2100.bsp"}, result.Deleted)
	require.NotContains(t, m.missionLoaded, "VOYAGER_1")
	require.Contains(t, m.missionLoaded, "JUNO")
}

func TestDeleteFilesClearsSegmentTracking(t *testing.T) {
	m, _ := newTestManager(t)
	writeKernel(t, m.Dir(), "mro_psp1.bsp", "segment")
	m.segmentLoaded["mro_psp1.bsp"] = struct{}{}
	m.missionLoaded["MRO"] = struct{}{}

	m.DeleteFiles([]string{"mro_psp1.bsp"})
	require.Empty(t, m.segmentLoaded)
	require.NotContains(t, m.missionLoaded, "MRO")
}

func TestDeleteMission(t *testing.T) {
	m, _ := newTestManager(t)
	writeKernel(t, m.Dir(), "vgr1.x2100.bsp", "voyager 1")
	writeKernel(t, m.Dir(), "vgr2.x2100.bsp", "voyager 2")

	result, err := m.DeleteMission("VOYAGER_1")
	require.NoError(t, err)
	require.Equal(t, []string{"vgr1.x2100.bsp"}, result.Deleted)

	// Nothing cached for this mission now.
	result, err = m.DeleteMission("VOYAGER_1")
	require.NoError(t, err)
	require.Empty(t, result.Deleted)
	require.Contains(t, result.Message, "No cached files")
}

func TestPurge(t *testing.T) {
	m, fake := newTestManager(t)
	path := writeKernel(t, m.Dir(), "de440s.bsp", "planets")
	writeKernel(t, m.Dir(), "vgr1.x2100.bsp", "voyager")
	require.NoError(t, m.Load(path))

	result, err := m.Purge()
	require.NoError(t, err)
	require.Equal(t, 2, result.DeletedCount)
	require.Empty(t, result.Errors)
	require.Equal(t, 1, fake.ClearCalls)

	size, err := m.CacheSizeBytes()
	require.NoError(t, err)
	require.Zero(t, size)
}
