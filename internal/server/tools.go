package server

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/huangzesen/heliospice/internal/ephem"
	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/spice"
)

// maxResponsePoints caps the data points returned in one timeseries
// response. Larger results are rejected with summary stats unless the
// caller sets allow_large_response.
const maxResponsePoints = 10_000

// previewRows is how many rows from each end of a timeseries go into
// the preview block.
const previewRows = 5

type toolHandler func(ctx context.Context, args json.RawMessage) map[string]any

func (s *Server) toolHandlers() map[string]toolHandler {
	return map[string]toolHandler{
		"get_spacecraft_ephemeris": s.handleEphemeris,
		"compute_distance":         s.handleDistance,
		"transform_coordinates":    s.handleTransform,
		"list_spice_missions":      s.handleListMissions,
		"list_coordinate_frames":   s.handleListFrames,
		"manage_kernels":           s.handleManageKernels,
	}
}

func (s *Server) toolDefs() []toolDef {
	return []toolDef{
		{
			Name: "get_spacecraft_ephemeris",
			Description: "Get spacecraft position and/or velocity, at a single time or as a timeseries. " +
				"Single-time mode (time_end empty) returns position in km, distance in km and AU, and light time. " +
				"Timeseries mode (time_end provided) returns summary stats, preview rows, and full data records. " +
				"include_velocity adds velocity components and speed.",
			InputSchema: objectSchema(map[string]any{
				"spacecraft":           stringProp("Spacecraft or body name, e.g. \"PSP\", \"Solar Orbiter\", \"Earth\""),
				"time":                 stringProp("UTC time, ISO 8601. For timeseries, the start time."),
				"frame":                stringProp("Coordinate frame, e.g. \"ECLIPJ2000\", \"GSE\", \"RTN\". See list_coordinate_frames."),
				"observer":             stringProp("Observer body, e.g. \"SUN\", \"EARTH\". Use \"EARTH\" for geocentric."),
				"time_end":             stringProp("End time for timeseries (ISO 8601). Leave empty for single-time query."),
				"step":                 stringProp("Timeseries step, e.g. \"1m\", \"1h\", \"6h\", \"1d\". Default \"1h\"."),
				"include_velocity":     boolProp("Include velocity components (km/s) and speed."),
				"allow_large_response": boolProp("Allow more than 10,000 data points in the response."),
			}, "spacecraft", "time", "frame", "observer"),
		},
		{
			Name: "compute_distance",
			Description: "Compute the distance between two bodies over a time range. " +
				"Returns min/max/mean distance in km and AU, plus the closest approach.",
			InputSchema: objectSchema(map[string]any{
				"target1":    stringProp("First body, e.g. \"PSP\", \"Earth\""),
				"target2":    stringProp("Second body, e.g. \"SUN\", \"ACE\""),
				"time_start": stringProp("Start time (ISO 8601)"),
				"time_end":   stringProp("End time (ISO 8601)"),
				"step":       stringProp("Time step, e.g. \"1h\", \"6h\", \"1d\""),
			}, "target1", "target2", "time_start", "time_end", "step"),
		},
		{
			Name: "transform_coordinates",
			Description: "Transform a 3D vector between coordinate frames at a given epoch. " +
				"RTN transforms require the spacecraft parameter.",
			InputSchema: objectSchema(map[string]any{
				"vector": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "number"},
					"description": "3-element vector [x, y, z] to transform",
				},
				"time":       stringProp("UTC time (ISO 8601) for the transformation epoch"),
				"from_frame": stringProp("Source frame, e.g. \"J2000\", \"ECLIPJ2000\", \"RTN\""),
				"to_frame":   stringProp("Target frame"),
				"spacecraft": stringProp("Spacecraft name (required if RTN frame is used)"),
			}, "vector", "time", "from_frame", "to_frame"),
		},
		{
			Name: "list_spice_missions",
			Description: "List all supported spacecraft missions with NAIF IDs and kernel status.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name: "list_coordinate_frames",
			Description: "List supported coordinate frames with descriptions and usage guidance. " +
				"Call this to understand which frame to choose for a given analysis task.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name: "manage_kernels",
			Description: "Manage SPICE kernels: status, download, load, unload_all, delete, check_remote, or purge. " +
				"\"delete\" takes a mission (use \"GENERIC\" for the generic set) or explicit filenames. " +
				"\"check_remote\" scans the remote archive directory for .bsp files not in the configured set.",
			InputSchema: objectSchema(map[string]any{
				"action":  stringProp("One of: status, download, load, unload_all, delete, check_remote, purge"),
				"mission": stringProp("Mission name (required for download, load, delete by mission, check_remote)"),
				"filenames": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Specific filenames to delete (delete action only)",
				},
			}, "action"),
		},
	}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func boolProp(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

// ---------------------------------------------------------------------------
// Tool handlers
// ---------------------------------------------------------------------------

func (s *Server) handleEphemeris(ctx context.Context, raw json.RawMessage) map[string]any {
	var args struct {
		Spacecraft         string `json:"spacecraft"`
		Time               string `json:"time"`
		Frame              string `json:"frame"`
		Observer           string `json:"observer"`
		TimeEnd            string `json:"time_end"`
		Step               string `json:"step"`
		IncludeVelocity    bool   `json:"include_velocity"`
		AllowLargeResponse bool   `json:"allow_large_response"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return errPayload(err)
	}
	if args.Step == "" {
		args.Step = "1h"
	}

	// Single-time mode.
	if args.TimeEnd == "" {
		var result any
		var err error
		if args.IncludeVelocity {
			result, err = s.svc.State(ctx, args.Spacecraft, args.Observer, args.Time, args.Frame)
		} else {
			result, err = s.svc.Position(ctx, args.Spacecraft, args.Observer, args.Time, args.Frame)
		}
		if err != nil {
			return errPayload(err)
		}
		payload := structMap(result)
		payload["status"] = "success"
		payload["cache_size_mb"] = s.cacheSizeMB()
		return payload
	}

	// Timeseries mode.
	traj, err := s.svc.Trajectory(ctx, ephem.TrajectoryQuery{
		Target:          args.Spacecraft,
		Observer:        args.Observer,
		Start:           args.Time,
		End:             args.TimeEnd,
		Step:            args.Step,
		Frame:           args.Frame,
		IncludeVelocity: args.IncludeVelocity,
	})
	if err != nil {
		return errPayload(err)
	}

	columns := []string{"x_km", "y_km", "z_km", "r_km", "r_au"}
	var speeds []float64
	if args.IncludeVelocity {
		columns = append(columns, "vx_km_s", "vy_km_s", "vz_km_s", "speed_km_s")
		speeds = make([]float64, traj.Points)
		for i := range speeds {
			speeds[i] = math.Sqrt(traj.VxKmS[i]*traj.VxKmS[i] +
				traj.VyKmS[i]*traj.VyKmS[i] + traj.VzKmS[i]*traj.VzKmS[i])
		}
	}

	summary := map[string]any{
		"status":        "success",
		"cache_size_mb": s.cacheSizeMB(),
		"spacecraft":    args.Spacecraft,
		"observer":      traj.Observer,
		"frame":         traj.Frame,
		"time_start":    traj.Times[0],
		"time_end":      traj.Times[traj.Points-1],
		"n_points":      traj.Points,
		"columns":       columns,
		"distance_au": map[string]any{
			"min":  round6(minOf(traj.RAU)),
			"max":  round6(maxOf(traj.RAU)),
			"mean": round6(meanOf(traj.RAU)),
		},
		"distance_km": map[string]any{
			"min": round1(minOf(traj.RKm)),
			"max": round1(maxOf(traj.RKm)),
		},
	}
	if traj.Warning != "" {
		summary["warning"] = traj.Warning
	}
	if args.IncludeVelocity {
		summary["speed_km_s"] = map[string]any{
			"min":  round3(minOf(speeds)),
			"max":  round3(maxOf(speeds)),
			"mean": round3(meanOf(speeds)),
		}
	}

	summary["preview"] = trajectoryPreview(traj, speeds)

	if traj.Points > maxResponsePoints && !args.AllowLargeResponse {
		summary["status"] = "error"
		summary["message"] = fmt.Sprintf(
			"Response contains %d data points, exceeding the %d point limit. "+
				"Either increase the step size, narrow the time range, or set allow_large_response=true.",
			traj.Points, maxResponsePoints)
		return summary
	}

	records := make([]map[string]any, traj.Points)
	for i := 0; i < traj.Points; i++ {
		records[i] = trajectoryRow(traj, speeds, i, false)
	}
	summary["data"] = records
	return summary
}

// trajectoryPreview returns the first and last previewRows samples,
// rounded for display.
func trajectoryPreview(traj *ephem.Trajectory, speeds []float64) []map[string]any {
	n := previewRows
	if traj.Points < n {
		n = traj.Points
	}
	var rows []map[string]any
	for i := 0; i < n; i++ {
		rows = append(rows, trajectoryRow(traj, speeds, i, true))
	}
	tail := traj.Points - n
	if tail < n {
		tail = n
	}
	for i := tail; i < traj.Points; i++ {
		rows = append(rows, trajectoryRow(traj, speeds, i, true))
	}
	return rows
}

func trajectoryRow(traj *ephem.Trajectory, speeds []float64, i int, rounded bool) map[string]any {
	row := map[string]any{
		"time": traj.Times[i],
		"x_km": traj.XKm[i],
		"y_km": traj.YKm[i],
		"z_km": traj.ZKm[i],
		"r_km": traj.RKm[i],
		"r_au": traj.RAU[i],
	}
	if speeds != nil {
		row["vx_km_s"] = traj.VxKmS[i]
		row["vy_km_s"] = traj.VyKmS[i]
		row["vz_km_s"] = traj.VzKmS[i]
		row["speed_km_s"] = speeds[i]
	}
	if !rounded {
		return row
	}
	for key, v := range row {
		f, ok := v.(float64)
		if !ok {
			continue
		}
		switch {
		case key == "r_au":
			row[key] = round6(f)
		case len(key) > 5 && key[len(key)-5:] == "_km_s":
			row[key] = round3(f)
		default:
			row[key] = round1(f)
		}
	}
	return row
}

func (s *Server) handleDistance(ctx context.Context, raw json.RawMessage) map[string]any {
	var args struct {
		Target1   string `json:"target1"`
		Target2   string `json:"target2"`
		TimeStart string `json:"time_start"`
		TimeEnd   string `json:"time_end"`
		Step      string `json:"step"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return errPayload(err)
	}

	traj, err := s.svc.Trajectory(ctx, ephem.TrajectoryQuery{
		Target:   args.Target1,
		Observer: args.Target2,
		Start:    args.TimeStart,
		End:      args.TimeEnd,
		Step:     args.Step,
		Frame:    ephem.DefaultFrame,
	})
	if err != nil {
		return errPayload(err)
	}

	minIdx := 0
	for i, r := range traj.RKm {
		if r < traj.RKm[minIdx] {
			minIdx = i
		}
	}

	return map[string]any{
		"status":        "success",
		"cache_size_mb": s.cacheSizeMB(),
		"target1":       args.Target1,
		"target2":       args.Target2,
		"time_start":    traj.Times[0],
		"time_end":      traj.Times[traj.Points-1],
		"n_points":      traj.Points,
		"distance_au": map[string]any{
			"min":  round6(minOf(traj.RAU)),
			"max":  round6(maxOf(traj.RAU)),
			"mean": round6(meanOf(traj.RAU)),
		},
		"distance_km": map[string]any{
			"min":  round1(minOf(traj.RKm)),
			"max":  round1(maxOf(traj.RKm)),
			"mean": round1(meanOf(traj.RKm)),
		},
		"closest_approach": map[string]any{
			"time":        traj.Times[minIdx],
			"distance_km": round1(traj.RKm[minIdx]),
			"distance_au": round6(traj.RAU[minIdx]),
		},
	}
}

func (s *Server) handleTransform(ctx context.Context, raw json.RawMessage) map[string]any {
	var args struct {
		Vector     []float64 `json:"vector"`
		Time       string    `json:"time"`
		FromFrame  string    `json:"from_frame"`
		ToFrame    string    `json:"to_frame"`
		Spacecraft string    `json:"spacecraft"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return errPayload(err)
	}
	if len(args.Vector) != 3 {
		return errPayload(fmt.Errorf("expected 3-element vector, got %d elements", len(args.Vector)))
	}

	in := spice.Vector3{args.Vector[0], args.Vector[1], args.Vector[2]}
	out, err := s.svc.TransformVector(ctx, in, args.Time, args.FromFrame, args.ToFrame, args.Spacecraft)
	if err != nil {
		return errPayload(err)
	}

	return map[string]any{
		"status":        "success",
		"cache_size_mb": s.cacheSizeMB(),
		"input_vector":  args.Vector,
		"output_vector": []float64{round6(out[0]), round6(out[1]), round6(out[2])},
		"from_frame":    args.FromFrame,
		"to_frame":      args.ToFrame,
		"time":          args.Time,
		"magnitude":     round6(math.Sqrt(out[0]*out[0] + out[1]*out[1] + out[2]*out[2])),
	}
}

func (s *Server) handleListMissions(ctx context.Context, raw json.RawMessage) map[string]any {
	infos := mission.ListSupported()
	loaded := make(map[string]struct{})
	for _, name := range s.km.ListLoaded() {
		loaded[name] = struct{}{}
	}

	missions := make([]map[string]any, 0, len(infos))
	for _, info := range infos {
		kernelsLoaded := false
		if files, ok := mission.Kernels[info.Key]; ok && len(files) > 0 {
			kernelsLoaded = true
			for name := range files {
				if _, ok := loaded[name]; !ok {
					kernelsLoaded = false
					break
				}
			}
		}
		missions = append(missions, map[string]any{
			"mission_key":    info.Key,
			"naif_id":        info.NAIFID,
			"has_kernels":    info.HasKernels,
			"kernels_loaded": kernelsLoaded,
			"segmented":      info.Segmented,
		})
	}

	return map[string]any{
		"status":        "success",
		"mission_count": len(missions),
		"missions":      missions,
	}
}

func (s *Server) handleListFrames(ctx context.Context, raw json.RawMessage) map[string]any {
	frames := ephem.DescribeFrames()
	return map[string]any{
		"status":      "success",
		"frame_count": len(frames),
		"frames":      frames,
	}
}

func (s *Server) handleManageKernels(ctx context.Context, raw json.RawMessage) map[string]any {
	var args struct {
		Action    string   `json:"action"`
		Mission   string   `json:"mission"`
		Filenames []string `json:"filenames"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return errPayload(err)
	}

	switch args.Action {
	case "status":
		loaded := s.km.ListLoaded()
		cache, err := s.km.CacheInfo()
		if err != nil {
			return errPayload(err)
		}
		return map[string]any{
			"status":         "success",
			"loaded_kernels": loaded,
			"loaded_count":   len(loaded),
			"cache":          cache,
		}

	case "download", "load":
		if args.Mission == "" {
			return errMessage("mission parameter required for " + args.Action)
		}
		_, key, err := mission.Resolve(args.Mission)
		if err != nil {
			return errPayload(err)
		}
		if err := s.km.EnsureMission(ctx, key); err != nil {
			return errPayload(err)
		}
		return map[string]any{
			"status":  "success",
			"message": fmt.Sprintf("Kernels downloaded and loaded for %s", key),
			"loaded":  s.km.ListLoaded(),
		}

	case "unload_all":
		if err := s.km.UnloadAll(); err != nil {
			return errPayload(err)
		}
		return map[string]any{"status": "success", "message": "All kernels unloaded"}

	case "delete":
		if len(args.Filenames) > 0 {
			result := s.km.DeleteFiles(args.Filenames)
			payload := structMap(result)
			payload["status"] = "success"
			return payload
		}
		if args.Mission == "" {
			return errMessage("delete requires either mission or filenames parameter. " +
				"Use action=\"status\" to see cached files grouped by mission.")
		}
		key := mission.Normalize(args.Mission)
		if key != "GENERIC" {
			var err error
			_, key, err = mission.Resolve(args.Mission)
			if err != nil {
				return errPayload(err)
			}
		}
		result, err := s.km.DeleteMission(key)
		if err != nil {
			return errPayload(err)
		}
		payload := structMap(result)
		payload["status"] = "success"
		return payload

	case "check_remote":
		if args.Mission == "" {
			return errMessage("mission parameter required for check_remote")
		}
		_, key, err := mission.Resolve(args.Mission)
		if err != nil {
			return errPayload(err)
		}
		report, err := s.km.CheckRemote(ctx, key)
		if err != nil {
			return errPayload(err)
		}
		payload := structMap(report)
		payload["status"] = "success"
		payload["cache_size_mb"] = s.cacheSizeMB()
		return payload

	case "purge":
		result, err := s.km.Purge()
		if err != nil {
			return errPayload(err)
		}
		payload := structMap(result)
		payload["status"] = "success"
		return payload

	default:
		return errMessage(fmt.Sprintf(
			"Unknown action %q. Use: status, download, load, unload_all, delete, check_remote, purge",
			args.Action))
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Server) cacheSizeMB() float64 {
	size, err := s.km.CacheSizeBytes()
	if err != nil {
		return 0
	}
	return round2(float64(size) / (1024 * 1024))
}

// structMap flattens a struct with JSON tags into a map so extra keys
// like status can ride along.
func structMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

func errPayload(err error) map[string]any {
	return map[string]any{"status": "error", "message": err.Error()}
}

func errMessage(msg string) map[string]any {
	return map[string]any{"status": "error", "message": msg}
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

func meanOf(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func roundTo(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}

func round1(x float64) float64 { return roundTo(x, 1) }
func round2(x float64) float64 { return roundTo(x, 2) }
func round3(x float64) float64 { return roundTo(x, 3) }
func round6(x float64) float64 { return roundTo(x, 6) }
