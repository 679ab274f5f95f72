//go:build cspice

package spice

// #cgo CFLAGS: -I${SRCDIR}/../../third_party/cspice/include
// #cgo LDFLAGS: -L${SRCDIR}/../../third_party/cspice/lib -lcspice -lm
// #include <stdlib.h>
// #include "SpiceUsr.h"
//
// /* SPICEDOUBLE_CELL is a macro, so the cell plumbing for spkcov_c
//    has to live on the C side. Returns -1 on toolkit error, 0 when
//    the file has no coverage for the body, 1 on success. */
// static int spk_coverage(ConstSpiceChar *path, SpiceInt body,
//                         SpiceDouble *first, SpiceDouble *last) {
//     SPICEDOUBLE_CELL(cover, 2000);
//     SpiceDouble b, e;
//     SpiceInt n;
//     scard_c(0, &cover);
//     spkcov_c(path, body, &cover);
//     if (failed_c()) return -1;
//     n = wncard_c(&cover);
//     if (n == 0) return 0;
//     wnfetd_c(&cover, 0, &b, &e);
//     *first = b;
//     wnfetd_c(&cover, n - 1, &b, &e);
//     *last = e;
//     return 1;
// }
import "C"

import (
	"errors"
	"unsafe"
)

// NewToolkit returns the real CSPICE binding.
func NewToolkit() Toolkit {
	// RETURN mode makes CSPICE set the failed flag instead of aborting
	// the process, so errors surface as Go errors.
	action := C.CString("SET")
	device := C.CString("RETURN")
	defer C.free(unsafe.Pointer(action))
	defer C.free(unsafe.Pointer(device))
	C.erract_c(action, 0, device)
	return cspice{}
}

type cspice struct{}

const errMsgLen = 1841

// checkErr inspects the CSPICE failed flag, returning and clearing the
// pending long error message if set.
func checkErr() error {
	if C.failed_c() == C.SPICEFALSE {
		return nil
	}
	var buf [errMsgLen]C.char
	opt := C.CString("LONG")
	defer C.free(unsafe.Pointer(opt))
	C.getmsg_c(opt, errMsgLen, &buf[0])
	C.reset_c()
	return errors.New(C.GoString(&buf[0]))
}

func (cspice) Furnish(path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	C.furnsh_c(cpath)
	return checkErr()
}

func (cspice) Unload(path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	C.unload_c(cpath)
	return checkErr()
}

func (cspice) ClearAll() error {
	C.kclear_c()
	return checkErr()
}

func (cspice) UTCToET(utc string) (float64, error) {
	cutc := C.CString(utc)
	defer C.free(unsafe.Pointer(cutc))
	var et C.SpiceDouble
	C.utc2et_c(cutc, &et)
	if err := checkErr(); err != nil {
		return 0, err
	}
	return float64(et), nil
}

func (cspice) ETToUTC(et float64, format string, prec int) (string, error) {
	cformat := C.CString(format)
	defer C.free(unsafe.Pointer(cformat))
	var buf [64]C.char
	C.et2utc_c(C.SpiceDouble(et), cformat, C.SpiceInt(prec), 64, &buf[0])
	if err := checkErr(); err != nil {
		return "", err
	}
	return C.GoString(&buf[0]), nil
}

func (cspice) BodyToID(name string) (int, error) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))
	var code C.SpiceInt
	var found C.SpiceBoolean
	C.bodn2c_c(cname, &code, &found)
	if err := checkErr(); err != nil {
		return 0, err
	}
	if found == C.SPICEFALSE {
		return 0, errors.New("body name not known to the kernel pool: " + name)
	}
	return int(code), nil
}

func (cspice) Position(target string, et float64, frame, abcorr, observer string) (Vector3, float64, error) {
	ctarget := C.CString(target)
	cframe := C.CString(frame)
	cabcorr := C.CString(abcorr)
	cobserver := C.CString(observer)
	defer C.free(unsafe.Pointer(ctarget))
	defer C.free(unsafe.Pointer(cframe))
	defer C.free(unsafe.Pointer(cabcorr))
	defer C.free(unsafe.Pointer(cobserver))

	var pos [3]C.SpiceDouble
	var lt C.SpiceDouble
	C.spkpos_c(ctarget, C.SpiceDouble(et), cframe, cabcorr, cobserver, &pos[0], &lt)
	if err := checkErr(); err != nil {
		return Vector3{}, 0, err
	}
	return Vector3{float64(pos[0]), float64(pos[1]), float64(pos[2])}, float64(lt), nil
}

func (cspice) State(target string, et float64, frame, abcorr, observer string) (State6, float64, error) {
	ctarget := C.CString(target)
	cframe := C.CString(frame)
	cabcorr := C.CString(abcorr)
	cobserver := C.CString(observer)
	defer C.free(unsafe.Pointer(ctarget))
	defer C.free(unsafe.Pointer(cframe))
	defer C.free(unsafe.Pointer(cabcorr))
	defer C.free(unsafe.Pointer(cobserver))

	var state [6]C.SpiceDouble
	var lt C.SpiceDouble
	C.spkezr_c(ctarget, C.SpiceDouble(et), cframe, cabcorr, cobserver, &state[0], &lt)
	if err := checkErr(); err != nil {
		return State6{}, 0, err
	}
	var out State6
	for i := range out {
		out[i] = float64(state[i])
	}
	return out, float64(lt), nil
}

func (cspice) FrameTransform(from, to string, et float64) (Matrix3, error) {
	cfrom := C.CString(from)
	cto := C.CString(to)
	defer C.free(unsafe.Pointer(cfrom))
	defer C.free(unsafe.Pointer(cto))

	var mat [3][3]C.SpiceDouble
	C.pxform_c(cfrom, cto, C.SpiceDouble(et), &mat[0])
	if err := checkErr(); err != nil {
		return Matrix3{}, err
	}
	var out Matrix3
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = float64(mat[i][j])
		}
	}
	return out, nil
}

func (cspice) SPKCoverage(path string, body int) (float64, float64, bool, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	var first, last C.SpiceDouble
	rc := C.spk_coverage(cpath, C.SpiceInt(body), &first, &last)
	if rc < 0 {
		return 0, 0, false, checkErr()
	}
	if rc == 0 {
		return 0, 0, false, nil
	}
	return float64(first), float64(last), true, nil
}
