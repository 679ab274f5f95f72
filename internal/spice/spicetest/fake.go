// Package spicetest provides an in-memory Toolkit for tests.
package spicetest

import (
	"fmt"
	"math"
	"time"

	"github.com/huangzesen/heliospice/internal/spice"
)

// j2000 is the ephemeris epoch used by the fake's time conversions.
// Leapseconds are ignored; tests only need consistency, not accuracy.
var j2000 = time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)

var utcLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Fake implements spice.Toolkit in memory. The zero value is usable.
// Hook fields override the default deterministic behaviors.
type Fake struct {
	// Furnished lists kernel paths in load order.
	Furnished []string

	// Bodies maps names resolvable by BodyToID.
	Bodies map[string]int

	// FurnishErr, when set, is consulted before loading a kernel.
	FurnishErr func(path string) error

	// PositionFn and StateFn override the default linear-motion model.
	PositionFn func(target string, et float64) (spice.Vector3, error)
	StateFn    func(target string, et float64) (spice.State6, error)

	// TransformErr, when set, fails FrameTransform.
	TransformErr error

	// CoverageFn overrides the default one-day SPK coverage window.
	CoverageFn func(path string, body int) (start, stop float64, ok bool, err error)

	// ClearCalls counts ClearAll invocations.
	ClearCalls int
}

var _ spice.Toolkit = (*Fake)(nil)

func (f *Fake) Furnish(path string) error {
	if f.FurnishErr != nil {
		if err := f.FurnishErr(path); err != nil {
			return err
		}
	}
	f.Furnished = append(f.Furnished, path)
	return nil
}

func (f *Fake) Unload(path string) error {
	for i, p := range f.Furnished {
		if p == path {
			f.Furnished = append(f.Furnished[:i], f.Furnished[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("kernel not loaded: %s", path)
}

func (f *Fake) ClearAll() error {
	f.Furnished = nil
	f.ClearCalls++
	return nil
}

func (f *Fake) UTCToET(utc string) (float64, error) {
	for _, layout := range utcLayouts {
		if t, err := time.Parse(layout, utc); err == nil {
			return t.Sub(j2000).Seconds(), nil
		}
	}
	return 0, fmt.Errorf("unparseable UTC time: %q", utc)
}

func (f *Fake) ETToUTC(et float64, format string, prec int) (string, error) {
	t := j2000.Add(time.Duration(et * float64(time.Second)))
	switch format {
	case "ISOC":
		layout := "2006-01-02T15:04:05"
		if prec > 0 {
			layout += "." + "000000000"[:prec]
		}
		return t.UTC().Format(layout), nil
	default:
		return "", fmt.Errorf("unsupported format %q", format)
	}
}

func (f *Fake) BodyToID(name string) (int, error) {
	if id, ok := f.Bodies[name]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("body name not known to the kernel pool: %s", name)
}

// Position defaults to a linear motion model so trajectories are
// monotone and easy to assert on: x grows with et, y and z are fixed.
func (f *Fake) Position(target string, et float64, frame, abcorr, observer string) (spice.Vector3, float64, error) {
	if f.PositionFn != nil {
		pos, err := f.PositionFn(target, et)
		return pos, lightTime(pos), err
	}
	pos := spice.Vector3{et / 1e3, 1000, -500}
	return pos, lightTime(pos), nil
}

func (f *Fake) State(target string, et float64, frame, abcorr, observer string) (spice.State6, float64, error) {
	if f.StateFn != nil {
		st, err := f.StateFn(target, et)
		return st, lightTime(spice.Vector3{st[0], st[1], st[2]}), err
	}
	pos, lt, _ := f.Position(target, et, frame, abcorr, observer)
	return spice.State6{pos[0], pos[1], pos[2], 1e-3, 0, 0}, lt, nil
}

func (f *Fake) FrameTransform(from, to string, et float64) (spice.Matrix3, error) {
	if f.TransformErr != nil {
		return spice.Matrix3{}, f.TransformErr
	}
	// Identity keeps transformed vectors assertable.
	return spice.Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}, nil
}

// SPKCoverage defaults to one day starting at the epoch.
func (f *Fake) SPKCoverage(path string, body int) (float64, float64, bool, error) {
	if f.CoverageFn != nil {
		return f.CoverageFn(path, body)
	}
	return 0, 86400, true, nil
}

const cKmPerSec = 299792.458

func lightTime(pos spice.Vector3) float64 {
	return math.Sqrt(pos[0]*pos[0]+pos[1]*pos[1]+pos[2]*pos[2]) / cKmPerSec
}
