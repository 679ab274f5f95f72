// Package spice defines the boundary to the NAIF CSPICE toolkit.
//
// The toolkit's kernel pool is process-global and not thread safe, so
// all access must be serialized by the caller (see kernel.Manager).
// The real binding is compiled in with the "cspice" build tag; without
// it every call reports ErrToolkitUnavailable so that cache management
// still works on hosts without CSPICE installed.
package spice

import "errors"

// ErrToolkitUnavailable is returned by the stub toolkit when the
// binary was built without the cspice tag.
var ErrToolkitUnavailable = errors.New("CSPICE toolkit not available in this build")

// Vector3 is a position or velocity vector in km or km/s.
type Vector3 [3]float64

// State6 is position (km) followed by velocity (km/s).
type State6 [6]float64

// Matrix3 is a 3x3 rotation matrix in row-major order.
type Matrix3 [3][3]float64

// Toolkit is the subset of CSPICE operations the engine needs.
// Implementations are NOT safe for concurrent use.
type Toolkit interface {
	// Furnish loads a kernel file into the pool (furnsh_c).
	Furnish(path string) error

	// Unload removes a single kernel from the pool (unload_c).
	Unload(path string) error

	// ClearAll unloads every kernel and resets the pool (kclear_c).
	ClearAll() error

	// UTCToET converts a UTC time string to ephemeris time, seconds
	// past J2000 (utc2et_c). Requires a leapsecond kernel.
	UTCToET(utc string) (float64, error)

	// ETToUTC formats ephemeris time as a UTC string (et2utc_c).
	// Format is a CSPICE format code such as "ISOC"; prec is the
	// number of fractional-second digits.
	ETToUTC(et float64, format string, prec int) (string, error)

	// BodyToID resolves a body name known to the pool (bodn2c_c).
	BodyToID(name string) (int, error)

	// Position returns the position of target relative to observer at
	// et in the given frame, plus one-way light time (spkpos_c).
	// Target and observer are NAIF IDs rendered as strings.
	Position(target string, et float64, frame, abcorr, observer string) (Vector3, float64, error)

	// State returns position and velocity of target relative to
	// observer, plus light time (spkezr_c).
	State(target string, et float64, frame, abcorr, observer string) (State6, float64, error)

	// FrameTransform returns the rotation from one frame to another at
	// et (pxform_c).
	FrameTransform(from, to string, et float64) (Matrix3, error)

	// SPKCoverage returns the overall coverage window of an SPK file
	// for a body, as ephemeris times (spkcov_c). ok is false when the
	// file holds no coverage for that body.
	SPKCoverage(path string, body int) (start, stop float64, ok bool, err error)
}
