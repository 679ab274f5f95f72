// Package manifest loads segment manifests for missions whose
// trajectory SPKs are split into many time-bounded files.
//
// A manifest is a JSON array ordered by segment start date:
//
//	[{"file": "...", "url": "...", "start": "YYYY-MM-DD", "stop": "YYYY-MM-DD"}, ...]
package manifest

import (
	"embed"
	"encoding/json"
	"fmt"
	"time"
)

//go:embed manifests/*.json
var manifestFS embed.FS

// Segment is one time-bounded kernel file within a mission manifest.
type Segment struct {
	File  string `json:"file"`
	URL   string `json:"url"`
	Start string `json:"start"`
	Stop  string `json:"stop"`
}

// StartDate parses the segment's start as a civil date.
func (s Segment) StartDate() (time.Time, error) {
	return time.Parse(time.DateOnly, s.Start)
}

// StopDate parses the segment's stop as a civil date.
func (s Segment) StopDate() (time.Time, error) {
	return time.Parse(time.DateOnly, s.Stop)
}

// Load reads the embedded manifest with the given filename
// (e.g. "cassini.json").
func Load(filename string) ([]Segment, error) {
	data, err := manifestFS.ReadFile("manifests/" + filename)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", filename, err)
	}
	var segs []Segment
	if err := json.Unmarshal(data, &segs); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", filename, err)
	}
	return segs, nil
}

// Overlapping returns the segments whose [start, stop] interval
// intersects [from, to]. Both interval ends are inclusive.
func Overlapping(segs []Segment, from, to time.Time) ([]Segment, error) {
	var matching []Segment
	for _, seg := range segs {
		segStart, err := seg.StartDate()
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.File, err)
		}
		segStop, err := seg.StopDate()
		if err != nil {
			return nil, fmt.Errorf("segment %s: %w", seg.File, err)
		}
		if !segStart.After(to) && !segStop.Before(from) {
			matching = append(matching, seg)
		}
	}
	return matching, nil
}

// Span returns the first start and last stop date strings of a
// non-empty manifest, used in coverage error messages.
func Span(segs []Segment) (first, last string) {
	if len(segs) == 0 {
		return "", ""
	}
	return segs[0].Start, segs[len(segs)-1].Stop
}
