package ephem

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/huangzesen/heliospice/internal/mission"
	"github.com/huangzesen/heliospice/internal/spice"
)

// FrameAliases maps common heliophysics frame names to SPICE frame
// strings. RTN has no SPICE frame and is computed from geometry.
var FrameAliases = map[string]string{
	// Inertial frames
	"J2000":      "J2000",
	"ECLIPJ2000": "ECLIPJ2000",
	"ECLIPB1950": "ECLIPB1950",
	// Heliospheric frames (require a heliospheric FK loaded)
	"HCI":  "HCI",
	"HEE":  "HEE",
	"HAE":  "HAE",
	"HEEQ": "HEEQ",
	// Earth-centered frames
	"GSE": "GSE",
	"GEI": "GEI",
	// Spacecraft-dependent
	"RTN": "RTN",
	// Convenience aliases
	"ECLIPTIC":   "ECLIPJ2000",
	"EQUATORIAL": "J2000",
	"INERTIAL":   "J2000",
}

// FrameInfo describes one canonical frame for discovery tooling.
type FrameInfo struct {
	Frame       string `json:"frame"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	UseWhen     string `json:"use_when"`
}

// frameDescriptions holds guidance for each canonical frame, in
// display order.
var frameDescriptions = []FrameInfo{
	{
		Frame:       "J2000",
		FullName:    "Earth Mean Equator and Equinox of J2000",
		Description: "Inertial frame with XY plane on Earth's equator at epoch J2000.0. Standard SPICE reference frame.",
		UseWhen:     "General-purpose inertial reference. Planetary orbits appear tilted ~23.4 deg due to Earth's axial tilt.",
	},
	{
		Frame:       "ECLIPJ2000",
		FullName:    "Ecliptic plane at J2000 epoch",
		Description: "Inertial frame with XY plane on the ecliptic (the plane the planets orbit in) at epoch J2000.0. X-axis toward vernal equinox.",
		UseWhen:     "Orbit plots and trajectory visualization. Planetary and spacecraft orbits lie roughly in the XY plane. Good default for heliocentric positions.",
	},
	{
		Frame:       "ECLIPB1950",
		FullName:    "Ecliptic plane at B1950 epoch",
		Description: "Ecliptic inertial frame at the older B1950 epoch.",
		UseWhen:     "Legacy data or catalogs that use B1950 coordinates.",
	},
	{
		Frame:       "HCI",
		FullName:    "Heliocentric Inertial",
		Description: "Sun-centered inertial frame. Z-axis along solar rotation axis, X-axis toward ascending node of solar equator on ecliptic.",
		UseWhen:     "Heliospheric structure analysis. Solar wind studies where solar rotation axis matters.",
	},
	{
		Frame:       "HEE",
		FullName:    "Heliocentric Earth Ecliptic",
		Description: "Sun-centered frame. X-axis toward Earth, Z-axis toward ecliptic north. Rotates with the Sun-Earth line.",
		UseWhen:     "Sun-Earth geometry. CME propagation studies, solar wind arrival at Earth.",
	},
	{
		Frame:       "HAE",
		FullName:    "Heliocentric Aries Ecliptic",
		Description: "Sun-centered ecliptic frame. Nearly identical to ECLIPJ2000.",
		UseWhen:     "Similar to ECLIPJ2000 but centered on the Sun.",
	},
	{
		Frame:       "HEEQ",
		FullName:    "Heliocentric Earth Equatorial (Stonyhurst)",
		Description: "Sun-centered frame. Z-axis along solar rotation axis, X-axis in plane containing Sun-Earth line. Also known as Stonyhurst coordinates.",
		UseWhen:     "Mapping features to solar surface (active regions, coronal holes). Comparing spacecraft positions relative to solar longitude.",
	},
	{
		Frame:       "GSE",
		FullName:    "Geocentric Solar Ecliptic",
		Description: "Earth-centered frame. X-axis toward Sun, Z-axis toward ecliptic north. Rotates with the Sun-Earth line.",
		UseWhen:     "Near-Earth spacecraft (ACE, Wind, DSCOVR, MMS). Magnetospheric physics, bow shock and magnetopause studies.",
	},
	{
		Frame:       "GEI",
		FullName:    "Geocentric Equatorial Inertial",
		Description: "Earth-centered inertial frame. Equivalent to J2000 but Earth-centered.",
		UseWhen:     "Earth-orbiting satellites. Similar to J2000 for near-Earth work.",
	},
	{
		Frame:       "RTN",
		FullName:    "Radial-Tangential-Normal",
		Description: "Spacecraft-dependent frame. R points from Sun to spacecraft, T is in the direction of orbital motion (perpendicular to R in orbital plane), N completes the right-handed system.",
		UseWhen:     "Solar wind analysis at a spacecraft. Magnetic field and plasma velocity decomposition (e.g., PSP, Solar Orbiter, ACE). Requires spacecraft parameter.",
	},
}

// spiceNativeFrames are safe to hand straight to pxform.
var spiceNativeFrames = map[string]struct{}{
	"J2000":      {},
	"ECLIPJ2000": {},
	"ECLIPB1950": {},
}

// ResolveFrame maps a frame name through the alias table. Unknown
// names pass through unchanged in case the toolkit knows them.
func ResolveFrame(name string) string {
	key := strings.ToUpper(strings.TrimSpace(name))
	if canon, ok := FrameAliases[key]; ok {
		return canon
	}
	return key
}

// ListFrames returns the supported frame names, sorted.
func ListFrames() []string {
	names := make([]string, 0, len(FrameAliases))
	for name := range FrameAliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DescribeFrames returns the canonical frames with usage guidance.
// Convenience aliases like ECLIPTIC are not included.
func DescribeFrames() []FrameInfo {
	out := make([]FrameInfo, len(frameDescriptions))
	copy(out, frameDescriptions)
	return out
}

// TransformVector transforms a 3-vector between coordinate frames at a
// UTC time. RTN transforms require the spacecraft whose position
// defines the frame.
func (s *Service) TransformVector(ctx context.Context, v spice.Vector3, utc, fromFrame, toFrame, spacecraft string) (spice.Vector3, error) {
	src := ResolveFrame(fromFrame)
	dst := ResolveFrame(toFrame)
	if src == dst {
		return v, nil
	}

	if err := s.km.EnsureGeneric(ctx); err != nil {
		return spice.Vector3{}, err
	}

	var et float64
	err := s.km.Locked(func(tk spice.Toolkit) error {
		var err error
		et, err = tk.UTCToET(strings.TrimSpace(utc))
		return err
	})
	if err != nil {
		return spice.Vector3{}, err
	}

	if src == "RTN" || dst == "RTN" {
		return s.transformRTN(ctx, v, et, src, dst, spacecraft)
	}

	var mat spice.Matrix3
	err = s.km.Locked(func(tk spice.Toolkit) error {
		var err error
		mat, err = tk.FrameTransform(src, dst, et)
		return err
	})
	if err != nil {
		return spice.Vector3{}, fmt.Errorf("cannot transform from %q to %q: %w (available frames: %s)",
			src, dst, err, strings.Join(ListFrames(), ", "))
	}
	return matVec(mat, v), nil
}

// transformRTN handles transforms where one side is the spacecraft
// RTN frame, routing through J2000.
func (s *Service) transformRTN(ctx context.Context, v spice.Vector3, et float64, src, dst, spacecraft string) (spice.Vector3, error) {
	if spacecraft == "" {
		return spice.Vector3{}, fmt.Errorf("spacecraft parameter is required for RTN transforms")
	}

	rtn, err := s.rtnMatrix(ctx, spacecraft, et) // J2000 -> RTN
	if err != nil {
		return spice.Vector3{}, err
	}

	if src == "RTN" {
		// RTN -> J2000 -> dst. Rotation inverse is the transpose.
		vj := matVec(transpose(rtn), v)
		if _, native := spiceNativeFrames[dst]; !native {
			return vj, nil
		}
		var mat spice.Matrix3
		err := s.km.Locked(func(tk spice.Toolkit) error {
			var err error
			mat, err = tk.FrameTransform("J2000", dst, et)
			return err
		})
		if err != nil {
			return spice.Vector3{}, err
		}
		return matVec(mat, vj), nil
	}

	// src -> J2000 -> RTN.
	vj := v
	if _, native := spiceNativeFrames[src]; native {
		var mat spice.Matrix3
		err := s.km.Locked(func(tk spice.Toolkit) error {
			var err error
			mat, err = tk.FrameTransform(src, "J2000", et)
			return err
		})
		if err != nil {
			return spice.Vector3{}, err
		}
		vj = matVec(mat, v)
	}
	return matVec(rtn, vj), nil
}

// sunPoleJ2000 is the IAU_SUN rotation pole in J2000 coordinates
// (RA 286.13 deg, Dec 63.87 deg).
var sunPoleJ2000 = func() spice.Vector3 {
	ra := 286.13 * math.Pi / 180
	dec := 63.87 * math.Pi / 180
	return spice.Vector3{
		math.Cos(dec) * math.Cos(ra),
		math.Cos(dec) * math.Sin(ra),
		math.Sin(dec),
	}
}()

// rtnMatrix computes the J2000 -> RTN rotation for a spacecraft at et.
// R is the Sun-to-spacecraft unit vector, T is cross(sun north, R)
// normalized, N completes the triad.
func (s *Service) rtnMatrix(ctx context.Context, spacecraft string, et float64) (spice.Matrix3, error) {
	scID, scKey, err := mission.Resolve(spacecraft)
	if err != nil {
		// Accept a raw NAIF ID string.
		id, convErr := strconv.Atoi(strings.TrimSpace(spacecraft))
		if convErr != nil {
			return spice.Matrix3{}, err
		}
		scID, scKey = id, spacecraft
	}

	// RTN needs the spacecraft SPK; segmented missions are not
	// supported here since no time range is available to pick segments.
	if _, ok := mission.Kernels[scKey]; ok {
		if err := s.km.EnsureMission(ctx, scKey); err != nil {
			return spice.Matrix3{}, err
		}
	}

	var pos spice.Vector3
	err = s.km.Locked(func(tk spice.Toolkit) error {
		var err error
		pos, _, err = tk.Position(strconv.Itoa(scID), et, "J2000", "NONE", "10")
		return err
	})
	if err != nil {
		return spice.Matrix3{}, err
	}

	r := unit(pos)
	t := cross(sunPoleJ2000, r)
	if vecNorm(t) < 1e-10 {
		// Degenerate: spacecraft along the Sun's rotation axis.
		t = spice.Vector3{0, 1, 0}
	} else {
		t = unit(t)
	}
	n := unit(cross(r, t))

	// Rows are the RTN basis vectors expressed in J2000.
	return spice.Matrix3{r, t, n}, nil
}

func matVec(m spice.Matrix3, v spice.Vector3) spice.Vector3 {
	var out spice.Vector3
	for i := 0; i < 3; i++ {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

func transpose(m spice.Matrix3) spice.Matrix3 {
	var out spice.Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

func cross(a, b spice.Vector3) spice.Vector3 {
	return spice.Vector3{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func unit(v spice.Vector3) spice.Vector3 {
	n := vecNorm(v)
	if n == 0 {
		return v
	}
	return spice.Vector3{v[0] / n, v[1] / n, v[2] / n}
}
