//go:build !cspice

package spice

// NewToolkit returns the stub toolkit. Build with -tags cspice and a
// CSPICE installation to get the real binding.
func NewToolkit() Toolkit {
	return stub{}
}

// stub satisfies Toolkit on builds without CSPICE. Cache management
// (download, delete, purge, remote checks) works; anything touching
// the kernel pool reports ErrToolkitUnavailable.
type stub struct{}

func (stub) Furnish(string) error  { return ErrToolkitUnavailable }
func (stub) Unload(string) error   { return ErrToolkitUnavailable }
func (stub) ClearAll() error       { return ErrToolkitUnavailable }
func (stub) UTCToET(string) (float64, error) {
	return 0, ErrToolkitUnavailable
}
func (stub) ETToUTC(float64, string, int) (string, error) {
	return "", ErrToolkitUnavailable
}
func (stub) BodyToID(string) (int, error) {
	return 0, ErrToolkitUnavailable
}
func (stub) Position(string, float64, string, string, string) (Vector3, float64, error) {
	return Vector3{}, 0, ErrToolkitUnavailable
}
func (stub) State(string, float64, string, string, string) (State6, float64, error) {
	return State6{}, 0, ErrToolkitUnavailable
}
func (stub) FrameTransform(string, string, float64) (Matrix3, error) {
	return Matrix3{}, ErrToolkitUnavailable
}
func (stub) SPKCoverage(string, int) (float64, float64, bool, error) {
	return 0, 0, false, ErrToolkitUnavailable
}
