package kernel

import "errors"

var (
	// ErrNoKernels reports a mission with no configured kernel sources.
	ErrNoKernels = errors.New("no kernels defined for mission")

	// ErrSegmented reports a single-file operation attempted on a
	// mission whose kernels are segmented.
	ErrSegmented = errors.New("mission uses segmented kernels")

	// ErrNoCoverage reports a time range no manifest segment overlaps.
	ErrNoCoverage = errors.New("no kernel segments cover the requested range")

	// ErrEmptyManifest reports a segment manifest with no entries.
	ErrEmptyManifest = errors.New("segment manifest is empty")

	// ErrDownload reports a kernel fetch that failed before a cached
	// copy existed.
	ErrDownload = errors.New("kernel download failed")
)
