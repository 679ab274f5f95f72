package server

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huangzesen/heliospice/internal/config"
	"github.com/huangzesen/heliospice/internal/ephem"
	"github.com/huangzesen/heliospice/internal/kernel"
	"github.com/huangzesen/heliospice/internal/logging"
	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/spice/spicetest"
)

// runServer feeds newline-delimited requests through a server backed
// by a fake toolkit and a cache pre-seeded with the generic kernels,
// and returns one decoded response per request line.
func runServer(t *testing.T, requests ...string) []map[string]any {
	t.Helper()

	dir := t.TempDir()
	for _, k := range mission.GenericKernels {
		require.NoError(t, os.WriteFile(filepath.Join(dir, k.Name), []byte("kernel"), 0o644))
	}

	fake := &spicetest.Fake{}
	km, err := kernel.New(config.Config{KernelDir: dir}, fake, logging.Discard(), nil)
	require.NoError(t, err)
	svc := ephem.NewService(km, logging.Discard())

	in := strings.NewReader(strings.Join(requests, "\n") + "\n")
	var out bytes.Buffer
	srv := New(svc, km, logging.Discard(), in, &out)
	require.NoError(t, srv.Run(context.Background()))

	var responses []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp), line)
		responses = append(responses, resp)
	}
	return responses
}

// toolPayload decodes the structured JSON carried in a tools/call
// response's first text content block.
func toolPayload(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	result, ok := resp["result"].(map[string]any)
	require.True(t, ok, "response has no result: %v", resp)
	content, ok := result["content"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, content)
	block := content[0].(map[string]any)
	require.Equal(t, "text", block["type"])

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(block["text"].(string)), &payload))
	return payload
}

func callRequest(id int, tool string, args map[string]any) string {
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": tool, "arguments": args},
	}
	data, _ := json.Marshal(req)
	return string(data)
}

func TestInitialize(t *testing.T) {
	responses := runServer(t, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)
	require.Len(t, responses, 1)

	result := responses[0]["result"].(map[string]any)
	require.Equal(t, protocolVersion, result["protocolVersion"])
	info := result["serverInfo"].(map[string]any)
	require.Equal(t, serverName, info["name"])
	require.NotEmpty(t, result["instructions"])
}

func TestInitializedNotificationGetsNoReply(t *testing.T) {
	responses := runServer(t,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
	)
	require.Len(t, responses, 1) // only the ping is answered
	require.EqualValues(t, 2, responses[0]["id"])
}

func TestUnknownMethod(t *testing.T) {
	responses := runServer(t, `{"jsonrpc":"2.0","id":3,"method":"resources/list"}`)
	require.Len(t, responses, 1)
	rpcErr := responses[0]["error"].(map[string]any)
	require.EqualValues(t, codeMethodNotFound, rpcErr["code"])
}

func TestToolsList(t *testing.T) {
	responses := runServer(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	result := responses[0]["result"].(map[string]any)
	tools := result["tools"].([]any)
	require.Len(t, tools, 6)

	var names []string
	for _, tl := range tools {
		def := tl.(map[string]any)
		names = append(names, def["name"].(string))
		require.NotEmpty(t, def["description"])
		require.NotNil(t, def["inputSchema"])
	}
	require.Contains(t, names, "get_spacecraft_ephemeris")
	require.Contains(t, names, "manage_kernels")
}

func TestEphemerisSingleTime(t *testing.T) {
	responses := runServer(t, callRequest(1, "get_spacecraft_ephemeris", map[string]any{
		"spacecraft": "EARTH",
		"time":       "2024-01-01T00:00:00",
		"frame":      "ECLIPJ2000",
		"observer":   "SUN",
	}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	require.Equal(t, "EARTH", payload["target"])
	require.Equal(t, "SUN", payload["observer"])
	require.Contains(t, payload, "x_km")
	require.Contains(t, payload, "r_au")
	require.Contains(t, payload, "light_time_s")
	require.Contains(t, payload, "cache_size_mb")
	require.NotContains(t, payload, "vx_km_s")
}

func TestEphemerisSingleTimeWithVelocity(t *testing.T) {
	responses := runServer(t, callRequest(1, "get_spacecraft_ephemeris", map[string]any{
		"spacecraft":       "EARTH",
		"time":             "2024-01-01T00:00:00",
		"frame":            "J2000",
		"observer":         "SUN",
		"include_velocity": true,
	}))
	payload := toolPayload(t, responses[0])
	require.Equal(t, "success", payload["status"])
	require.Contains(t, payload, "vx_km_s")
	require.Contains(t, payload, "speed_km_s")
}

func TestEphemerisTimeseries(t *testing.T) {
	responses := runServer(t, callRequest(1, "get_spacecraft_ephemeris", map[string]any{
		"spacecraft": "EARTH",
		"time":       "2024-01-01T00:00:00",
		"time_end":   "2024-01-02T00:00:00",
		"step":       "6h",
		"frame":      "ECLIPJ2000",
		"observer":   "SUN",
	}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	require.EqualValues(t, 5, payload["n_points"])
	require.Contains(t, payload, "distance_au")
	require.Contains(t, payload, "distance_km")
	require.Contains(t, payload, "preview")
	data := payload["data"].([]any)
	require.Len(t, data, 5)
	first := data[0].(map[string]any)
	require.Equal(t, "2024-01-01T00:00:00.000", first["time"])
}

func TestEphemerisTimeseriesTooLarge(t *testing.T) {
	responses := runServer(t, callRequest(1, "get_spacecraft_ephemeris", map[string]any{
		"spacecraft": "EARTH",
		"time":       "2024-01-01T00:00:00",
		"time_end":   "2024-01-02T00:00:00",
		"step":       "1s", // 86401 points, over the response limit
		"frame":      "ECLIPJ2000",
		"observer":   "SUN",
	}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "error", payload["status"])
	require.Contains(t, payload["message"], "allow_large_response")
	// Summary stats still present so the caller can adjust.
	require.Contains(t, payload, "distance_au")
	require.Contains(t, payload, "preview")
	require.NotContains(t, payload, "data")
}

func TestEphemerisUnknownBody(t *testing.T) {
	responses := runServer(t, callRequest(1, "get_spacecraft_ephemeris", map[string]any{
		"spacecraft": "SPUTNIK",
		"time":       "2024-01-01T00:00:00",
		"frame":      "ECLIPJ2000",
		"observer":   "SUN",
	}))
	payload := toolPayload(t, responses[0])
	require.Equal(t, "error", payload["status"])
	require.Contains(t, payload["message"], "SPUTNIK")

	result := responses[0]["result"].(map[string]any)
	require.Equal(t, true, result["isError"])
}

func TestComputeDistance(t *testing.T) {
	responses := runServer(t, callRequest(1, "compute_distance", map[string]any{
		"target1":    "EARTH",
		"target2":    "SUN",
		"time_start": "2024-01-01T00:00:00",
		"time_end":   "2024-01-03T00:00:00",
		"step":       "1d",
	}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	require.EqualValues(t, 3, payload["n_points"])
	ca := payload["closest_approach"].(map[string]any)
	require.Contains(t, ca, "time")
	require.Contains(t, ca, "distance_km")
	// The fake moves away from the observer over time, so the closest
	// approach is the first sample.
	require.Equal(t, "2024-01-01T00:00:00.000", ca["time"])
}

func TestTransformCoordinates(t *testing.T) {
	responses := runServer(t, callRequest(1, "transform_coordinates", map[string]any{
		"vector":     []float64{1, 2, 3},
		"time":       "2024-01-01T00:00:00",
		"from_frame": "J2000",
		"to_frame":   "ECLIPJ2000",
	}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	out := payload["output_vector"].([]any)
	require.Len(t, out, 3)
	require.InDelta(t, 3.741657, payload["magnitude"].(float64), 1e-6)
}

func TestTransformCoordinatesBadVector(t *testing.T) {
	responses := runServer(t, callRequest(1, "transform_coordinates", map[string]any{
		"vector":     []float64{1, 2},
		"time":       "2024-01-01T00:00:00",
		"from_frame": "J2000",
		"to_frame":   "ECLIPJ2000",
	}))
	payload := toolPayload(t, responses[0])
	require.Equal(t, "error", payload["status"])
}

func TestListMissions(t *testing.T) {
	responses := runServer(t, callRequest(1, "list_spice_missions", nil))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	missions := payload["missions"].([]any)
	require.EqualValues(t, len(missions), payload["mission_count"])

	byKey := make(map[string]map[string]any)
	for _, m := range missions {
		entry := m.(map[string]any)
		byKey[entry["mission_key"].(string)] = entry
	}
	require.Equal(t, true, byKey["CASSINI"]["segmented"])
	require.Equal(t, true, byKey["PSP"]["has_kernels"])
	require.Equal(t, false, byKey["ACE"]["has_kernels"])
	require.Equal(t, false, byKey["PSP"]["kernels_loaded"])
	// Natural bodies are not listed.
	require.NotContains(t, byKey, "EARTH")
}

func TestListFrames(t *testing.T) {
	responses := runServer(t, callRequest(1, "list_coordinate_frames", nil))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	require.EqualValues(t, 10, payload["frame_count"])
	frames := payload["frames"].([]any)
	first := frames[0].(map[string]any)
	require.Contains(t, first, "full_name")
	require.Contains(t, first, "use_when")
}

func TestManageKernelsStatus(t *testing.T) {
	responses := runServer(t, callRequest(1, "manage_kernels", map[string]any{"action": "status"}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	require.EqualValues(t, 0, payload["loaded_count"])
	cache := payload["cache"].(map[string]any)
	require.EqualValues(t, 4, cache["file_count"]) // seeded generic kernels
}

func TestManageKernelsDeleteGeneric(t *testing.T) {
	responses := runServer(t, callRequest(1, "manage_kernels", map[string]any{
		"action":  "delete",
		"mission": "generic",
	}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	deleted := payload["deleted"].([]any)
	require.Len(t, deleted, 4)
}

func TestManageKernelsDeleteNeedsTarget(t *testing.T) {
	responses := runServer(t, callRequest(1, "manage_kernels", map[string]any{"action": "delete"}))
	payload := toolPayload(t, responses[0])
	require.Equal(t, "error", payload["status"])
	require.Contains(t, payload["message"], "filenames")
}

func TestManageKernelsUnknownAction(t *testing.T) {
	responses := runServer(t, callRequest(1, "manage_kernels", map[string]any{"action": "defrag"}))
	payload := toolPayload(t, responses[0])
	require.Equal(t, "error", payload["status"])
	require.Contains(t, payload["message"], "defrag")
}

func TestManageKernelsPurge(t *testing.T) {
	responses := runServer(t, callRequest(1, "manage_kernels", map[string]any{"action": "purge"}))
	payload := toolPayload(t, responses[0])

	require.Equal(t, "success", payload["status"])
	require.EqualValues(t, 4, payload["deleted_count"])
}

func TestUnknownTool(t *testing.T) {
	responses := runServer(t, callRequest(1, "warp_drive", nil))
	payload := toolPayload(t, responses[0])
	require.Equal(t, "error", payload["status"])

	result := responses[0]["result"].(map[string]any)
	require.Equal(t, true, result["isError"])
}
