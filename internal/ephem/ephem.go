// Package ephem computes spacecraft positions, states, and
// trajectories through the kernel cache manager.
//
// All toolkit calls run under the manager's lock; trajectory sweeps
// hold it for the whole sweep so no other caller can mutate the pool
// mid-series.
package ephem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/huangzesen/heliospice/internal/kernel"
	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/spice"
)

// AUKm is the astronomical unit in km (IAU 2012).
const AUKm = 149597870.7

// MaxTrajectoryPoints caps a single trajectory sweep. Requests denser
// than this are coarsened to exactly MaxTrajectoryPoints+1 samples.
const MaxTrajectoryPoints = 100_000

const (
	// DefaultObserver for queries that do not name one.
	DefaultObserver = "SUN"
	// DefaultFrame for queries that do not name one.
	DefaultFrame = "ECLIPJ2000"
)

// Service answers ephemeris queries. It owns no state beyond its
// dependencies, so a single instance serves all callers.
type Service struct {
	km  *kernel.Manager
	log *zap.SugaredLogger
}

// NewService creates an ephemeris service on top of a kernel manager.
func NewService(km *kernel.Manager, log *zap.SugaredLogger) *Service {
	return &Service{km: km, log: log}
}

// Position is a single-epoch position sample.
type Position struct {
	XKm        float64 `json:"x_km"`
	YKm        float64 `json:"y_km"`
	ZKm        float64 `json:"z_km"`
	RKm        float64 `json:"r_km"`
	RAU        float64 `json:"r_au"`
	LightTimeS float64 `json:"light_time_s"`
	Target     string  `json:"target"`
	Observer   string  `json:"observer"`
	Frame      string  `json:"frame"`
	Time       string  `json:"time"`
}

// State is a single-epoch position and velocity sample.
type State struct {
	XKm        float64 `json:"x_km"`
	YKm        float64 `json:"y_km"`
	ZKm        float64 `json:"z_km"`
	VxKmS      float64 `json:"vx_km_s"`
	VyKmS      float64 `json:"vy_km_s"`
	VzKmS      float64 `json:"vz_km_s"`
	RKm        float64 `json:"r_km"`
	RAU        float64 `json:"r_au"`
	SpeedKmS   float64 `json:"speed_km_s"`
	LightTimeS float64 `json:"light_time_s"`
	Target     string  `json:"target"`
	Observer   string  `json:"observer"`
	Frame      string  `json:"frame"`
	Time       string  `json:"time"`
}

// TrajectoryQuery describes a position timeseries request.
type TrajectoryQuery struct {
	Target          string
	Observer        string
	Start           string
	End             string
	Step            string
	Frame           string
	IncludeVelocity bool
}

// Trajectory is a position (and optionally velocity) timeseries in
// column form. All slices share one length.
type Trajectory struct {
	Times    []string  `json:"times"`
	XKm      []float64 `json:"x_km"`
	YKm      []float64 `json:"y_km"`
	ZKm      []float64 `json:"z_km"`
	RKm      []float64 `json:"r_km"`
	RAU      []float64 `json:"r_au"`
	VxKmS    []float64 `json:"vx_km_s,omitempty"`
	VyKmS    []float64 `json:"vy_km_s,omitempty"`
	VzKmS    []float64 `json:"vz_km_s,omitempty"`
	Target   string    `json:"target"`
	Observer string    `json:"observer"`
	Frame    string    `json:"frame"`
	Points   int       `json:"points"`
	Warning  string    `json:"warning,omitempty"`
}

// ResolveBody resolves a body name to (NAIF ID, canonical key). The
// mission registry is tried first; unrecognized names fall through to
// the toolkit's own name table, which requires the generic kernels.
func (s *Service) ResolveBody(ctx context.Context, name string) (int, string, error) {
	id, key, err := mission.Resolve(name)
	if err == nil {
		return id, key, nil
	}
	if !errors.Is(err, mission.ErrNotFound) {
		return 0, "", err
	}

	if err := s.km.EnsureGeneric(ctx); err != nil {
		return 0, "", err
	}
	var tkID int
	lookupErr := s.km.Locked(func(tk spice.Toolkit) error {
		var err error
		tkID, err = tk.BodyToID(strings.TrimSpace(name))
		return err
	})
	if lookupErr != nil {
		return 0, "", fmt.Errorf("cannot resolve body name %q: %w", name, mission.ErrNotFound)
	}
	return tkID, strings.ToUpper(strings.TrimSpace(name)), nil
}

// ensureKernels loads everything needed to query the given bodies over
// [start, end]. Fixed-set missions ignore the range; segmented ones
// load only overlapping segments.
func (s *Service) ensureKernels(ctx context.Context, start, end string, keys ...string) error {
	if err := s.km.EnsureGeneric(ctx); err != nil {
		return err
	}
	for _, key := range keys {
		if _, ok := mission.Kernels[key]; ok {
			if err := s.km.EnsureMission(ctx, key); err != nil {
				return err
			}
			continue
		}
		if mission.IsSegmented(key) {
			from, err := civilDate(start)
			if err != nil {
				return err
			}
			to, err := civilDate(end)
			if err != nil {
				return err
			}
			if err := s.km.EnsureSegmented(ctx, key, from, to); err != nil {
				return err
			}
		}
	}
	return nil
}

// civilDate extracts the leading YYYY-MM-DD of a UTC time string, used
// to match manifest segments.
func civilDate(ts string) (time.Time, error) {
	ts = strings.TrimSpace(ts)
	if len(ts) > 10 {
		ts = ts[:10]
	}
	d, err := time.Parse(time.DateOnly, ts)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected a time starting with YYYY-MM-DD: %w", err)
	}
	return d, nil
}

// Position returns the position of target relative to observer at a
// single UTC time.
func (s *Service) Position(ctx context.Context, target, observer, utc, frame string) (*Position, error) {
	observer, frame = applyDefaults(observer, frame)

	targetID, targetKey, err := s.ResolveBody(ctx, target)
	if err != nil {
		return nil, err
	}
	observerID, observerKey, err := s.ResolveBody(ctx, observer)
	if err != nil {
		return nil, err
	}
	if err := s.ensureKernels(ctx, utc, utc, targetKey, observerKey); err != nil {
		return nil, err
	}

	var pos spice.Vector3
	var lt float64
	err = s.km.Locked(func(tk spice.Toolkit) error {
		et, err := tk.UTCToET(strings.TrimSpace(utc))
		if err != nil {
			return err
		}
		pos, lt, err = tk.Position(strconv.Itoa(targetID), et, frame, "NONE", strconv.Itoa(observerID))
		return err
	})
	if err != nil {
		return nil, err
	}

	r := vecNorm(pos)
	return &Position{
		XKm: pos[0], YKm: pos[1], ZKm: pos[2],
		RKm: r, RAU: r / AUKm,
		LightTimeS: lt,
		Target:     targetKey,
		Observer:   observerKey,
		Frame:      frame,
		Time:       utc,
	}, nil
}

// State returns position and velocity at a single UTC time.
func (s *Service) State(ctx context.Context, target, observer, utc, frame string) (*State, error) {
	observer, frame = applyDefaults(observer, frame)

	targetID, targetKey, err := s.ResolveBody(ctx, target)
	if err != nil {
		return nil, err
	}
	observerID, observerKey, err := s.ResolveBody(ctx, observer)
	if err != nil {
		return nil, err
	}
	if err := s.ensureKernels(ctx, utc, utc, targetKey, observerKey); err != nil {
		return nil, err
	}

	var st spice.State6
	var lt float64
	err = s.km.Locked(func(tk spice.Toolkit) error {
		et, err := tk.UTCToET(strings.TrimSpace(utc))
		if err != nil {
			return err
		}
		st, lt, err = tk.State(strconv.Itoa(targetID), et, frame, "NONE", strconv.Itoa(observerID))
		return err
	})
	if err != nil {
		return nil, err
	}

	r := vecNorm(spice.Vector3{st[0], st[1], st[2]})
	speed := vecNorm(spice.Vector3{st[3], st[4], st[5]})
	return &State{
		XKm: st[0], YKm: st[1], ZKm: st[2],
		VxKmS: st[3], VyKmS: st[4], VzKmS: st[5],
		RKm: r, RAU: r / AUKm,
		SpeedKmS:   speed,
		LightTimeS: lt,
		Target:     targetKey,
		Observer:   observerKey,
		Frame:      frame,
		Time:       utc,
	}, nil
}

// Trajectory computes a position timeseries over [Start, End] at the
// requested step. The whole sweep runs in one critical section.
func (s *Service) Trajectory(ctx context.Context, q TrajectoryQuery) (*Trajectory, error) {
	q.Observer, q.Frame = applyDefaults(q.Observer, q.Frame)
	if q.Step == "" {
		q.Step = "1h"
	}

	targetID, targetKey, err := s.ResolveBody(ctx, q.Target)
	if err != nil {
		return nil, err
	}
	observerID, observerKey, err := s.ResolveBody(ctx, q.Observer)
	if err != nil {
		return nil, err
	}
	if err := s.ensureKernels(ctx, q.Start, q.End, targetKey, observerKey); err != nil {
		return nil, err
	}

	stepSec, err := ParseStep(q.Step)
	if err != nil {
		return nil, err
	}
	if stepSec <= 0 {
		return nil, fmt.Errorf("step must be positive, got %q", q.Step)
	}

	traj := &Trajectory{
		Target:   targetKey,
		Observer: observerKey,
		Frame:    q.Frame,
	}

	err = s.km.Locked(func(tk spice.Toolkit) error {
		etStart, err := tk.UTCToET(strings.TrimSpace(q.Start))
		if err != nil {
			return err
		}
		etEnd, err := tk.UTCToET(strings.TrimSpace(q.End))
		if err != nil {
			return err
		}
		if etEnd < etStart {
			return fmt.Errorf("time_end %q precedes time_start %q", q.End, q.Start)
		}

		n := int((etEnd-etStart)/stepSec) + 1
		if n < 1 {
			n = 1
		}
		if n > MaxTrajectoryPoints {
			stepSec = (etEnd - etStart) / MaxTrajectoryPoints
			n = MaxTrajectoryPoints + 1
			traj.Warning = fmt.Sprintf("trajectory capped at %dk points; step adjusted to %.1fs",
				MaxTrajectoryPoints/1000, stepSec)
			s.log.Warnf("trajectory capped at %d points; step adjusted to %.1fs", MaxTrajectoryPoints, stepSec)
		}

		traj.Times = make([]string, 0, n)
		traj.XKm = make([]float64, 0, n)
		traj.YKm = make([]float64, 0, n)
		traj.ZKm = make([]float64, 0, n)
		traj.RKm = make([]float64, 0, n)
		traj.RAU = make([]float64, 0, n)
		if q.IncludeVelocity {
			traj.VxKmS = make([]float64, 0, n)
			traj.VyKmS = make([]float64, 0, n)
			traj.VzKmS = make([]float64, 0, n)
		}

		targetStr := strconv.Itoa(targetID)
		observerStr := strconv.Itoa(observerID)
		for i := 0; i < n; i++ {
			et := etStart
			if n > 1 {
				// Evenly spaced samples, last one exactly at etEnd.
				et = etStart + (etEnd-etStart)*float64(i)/float64(n-1)
			}

			var pos spice.Vector3
			if q.IncludeVelocity {
				st, _, err := tk.State(targetStr, et, q.Frame, "NONE", observerStr)
				if err != nil {
					return err
				}
				pos = spice.Vector3{st[0], st[1], st[2]}
				traj.VxKmS = append(traj.VxKmS, st[3])
				traj.VyKmS = append(traj.VyKmS, st[4])
				traj.VzKmS = append(traj.VzKmS, st[5])
			} else {
				p, _, err := tk.Position(targetStr, et, q.Frame, "NONE", observerStr)
				if err != nil {
					return err
				}
				pos = p
			}

			utc, err := tk.ETToUTC(et, "ISOC", 3)
			if err != nil {
				return err
			}

			r := vecNorm(pos)
			traj.Times = append(traj.Times, utc)
			traj.XKm = append(traj.XKm, pos[0])
			traj.YKm = append(traj.YKm, pos[1])
			traj.ZKm = append(traj.ZKm, pos[2])
			traj.RKm = append(traj.RKm, r)
			traj.RAU = append(traj.RAU, r/AUKm)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	traj.Points = len(traj.Times)
	s.log.Infof("computed trajectory: %s rel. %s, %d points, %s to %s",
		targetKey, observerKey, traj.Points, traj.Times[0], traj.Times[len(traj.Times)-1])
	return traj, nil
}

// ParseStep parses a step like "1h", "30m", "1d", "90s", or a bare
// number of seconds into seconds.
func ParseStep(step string) (float64, error) {
	step = strings.ToLower(strings.TrimSpace(step))
	if step == "" {
		return 0, fmt.Errorf("empty step")
	}

	mult := 1.0
	switch step[len(step)-1] {
	case 'd':
		mult = 86400
		step = step[:len(step)-1]
	case 'h':
		mult = 3600
		step = step[:len(step)-1]
	case 'm':
		mult = 60
		step = step[:len(step)-1]
	case 's':
		step = step[:len(step)-1]
	}

	v, err := strconv.ParseFloat(step, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid step %q: %w", step, err)
	}
	return v * mult, nil
}

func applyDefaults(observer, frame string) (string, string) {
	if observer == "" {
		observer = DefaultObserver
	}
	if frame == "" {
		frame = DefaultFrame
	}
	return observer, frame
}

func vecNorm(v spice.Vector3) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
