// Package mission maps spacecraft and body names to NAIF IDs and to the
// SPICE kernel sources that cover them.
package mission

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound reports a name that no resolution strategy recognized.
var ErrNotFound = errors.New("mission not found")

// NAIFIDs maps canonical mission keys (uppercase, underscore-normalized)
// to NAIF body/spacecraft IDs. Negative IDs are spacecraft; positive are
// natural bodies or barycenters.
// Sourced from https://naif.jpl.nasa.gov/pub/naif/toolkit_docs/C/req/naif_ids.html
var NAIFIDs = map[string]int{
	// Heliophysics missions
	"PSP":      -96,
	"SOLO":     -144,
	"ACE":      -92,
	"WIND":     -8,
	"DSCOVR":   -78,
	"MMS1":     -189,
	"MMS2":     -190,
	"MMS3":     -191,
	"MMS4":     -192,
	"STEREO_A": -234,
	"STEREO_B": -235,
	"HELIOS_1": -301,
	"HELIOS_2": -302,
	"ULYSSES":  -55,
	"THEMIS_A": -650,
	"THEMIS_B": -651, // aka ARTEMIS P1
	"THEMIS_C": -652, // aka ARTEMIS P2
	"THEMIS_D": -653,
	"THEMIS_E": -654,
	// Planetary / deep-space missions
	"CASSINI":        -82,
	"JUNO":           -61,
	"VOYAGER_1":      -31,
	"VOYAGER_2":      -32,
	"MAVEN":          -202,
	"GALILEO":        -77,
	"PIONEER_10":     -23,
	"PIONEER_11":     -24,
	"MESSENGER":      -236,
	"NEW_HORIZONS":   -98,
	"DAWN":           -203,
	"LUCY":           -49,
	"EUROPA_CLIPPER": -159,
	"PSYCHE":         -255,
	"JUICE":          -28,
	"BEPICOLOMBO":    -121,
	"MARS_2020":      -168,
	"MRO":            -74,
	// Natural bodies (for observer/target)
	"SUN":     10,
	"EARTH":   399,
	"MOON":    301,
	"MERCURY": 199,
	"VENUS":   299,
	"MARS":    4, // Barycenter - body center (499) not in de440s.bsp
	"JUPITER": 5, // Barycenter - body center (599) not in de440s.bsp
	"SATURN":  6, // Barycenter - body center (699) not in de440s.bsp
	"URANUS":  7, // Barycenter - body center (799) not in de440s.bsp
	"NEPTUNE": 8, // Barycenter - body center (899) not in de440s.bsp
	"PLUTO":   9, // Barycenter - body center (999) not in de440s.bsp
	// Barycenters
	"SSB":              0, // Solar System Barycenter
	"EARTH_BARYCENTER": 3,
	"MARS_BARYCENTER":  4,
	"JUPITER_BARYCENTER": 5,
	"SATURN_BARYCENTER":  6,
}

// aliases maps common names to canonical mission keys.
var aliases = map[string]string{
	"PARKER":             "PSP",
	"PARKER SOLAR PROBE": "PSP",
	"SOLAR ORBITER":      "SOLO",
	"SOLAR_ORBITER":      "SOLO",
	"SOLORB":             "SOLO",
	"MMS":                "MMS1",
	"STEREOA":            "STEREO_A",
	"STEREO-A":           "STEREO_A",
	"STEREOB":            "STEREO_B",
	"STEREO-B":           "STEREO_B",
	"VOYAGER1":           "VOYAGER_1",
	"VOYAGER 1":          "VOYAGER_1",
	"VGR1":               "VOYAGER_1",
	"VOYAGER2":           "VOYAGER_2",
	"VOYAGER 2":          "VOYAGER_2",
	"VGR2":               "VOYAGER_2",
	"PIONEER10":          "PIONEER_10",
	"PIONEER 10":         "PIONEER_10",
	"PIONEER11":          "PIONEER_11",
	"PIONEER 11":         "PIONEER_11",
	"NEWHORIZONS":        "NEW_HORIZONS",
	"NEW HORIZONS":       "NEW_HORIZONS",
	"NH":                 "NEW_HORIZONS",
	"HELIOS1":            "HELIOS_1",
	"HELIOS 1":           "HELIOS_1",
	"HELIOS2":            "HELIOS_2",
	"HELIOS 2":           "HELIOS_2",
	"THEMIS":             "THEMIS_A",
	"ARTEMIS_P1":         "THEMIS_B",
	"ARTEMIS P1":         "THEMIS_B",
	"ARTEMIS_P2":         "THEMIS_C",
	"ARTEMIS P2":         "THEMIS_C",
	"EUROPA CLIPPER":     "EUROPA_CLIPPER",
	"EUROPACLIPPER":      "EUROPA_CLIPPER",
	"CLIPPER":            "EUROPA_CLIPPER",
	"PERSEVERANCE":       "MARS_2020",
	"MARS2020":           "MARS_2020",
	"MARS 2020":          "MARS_2020",
	"BEPI":               "BEPICOLOMBO",
	"BEPI COLOMBO":       "BEPICOLOMBO",
	"BEPI_COLOMBO":       "BEPICOLOMBO",
	"MPO":                "BEPICOLOMBO",
}

// Info describes one supported mission for listing purposes.
type Info struct {
	Key        string `json:"mission_key"`
	NAIFID     int    `json:"naif_id"`
	HasKernels bool   `json:"has_kernels"`
	Segmented  bool   `json:"segmented"`
}

// Normalize converts a user-supplied name into canonical key form.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(name)), "-", "_")
}

// Resolve resolves a mission name to (NAIF ID, canonical key).
// Lookup is case-insensitive with alias support: direct match first,
// then the alias table, then an underscore-insensitive compact match.
func Resolve(name string) (int, string, error) {
	key := Normalize(name)

	if id, ok := NAIFIDs[key]; ok {
		return id, key, nil
	}

	alias, ok := aliases[key]
	if !ok {
		alias, ok = aliases[strings.ToUpper(strings.TrimSpace(name))]
	}
	if ok {
		if id, found := NAIFIDs[alias]; found {
			return id, alias, nil
		}
	}

	compact := strings.ReplaceAll(key, "_", "")
	for canon, id := range NAIFIDs {
		if strings.ReplaceAll(canon, "_", "") == compact {
			return id, canon, nil
		}
	}

	return 0, "", fmt.Errorf("unknown mission %q, supported: %s: %w",
		name, strings.Join(SpacecraftKeys(), ", "), ErrNotFound)
}

// HasKernels reports whether a mission key has kernel support, either a
// fixed kernel set or a segment manifest.
func HasKernels(key string) bool {
	_, fixed := Kernels[key]
	_, segmented := SegmentedMissions[key]
	return fixed || segmented
}

// IsSegmented reports whether a mission's trajectory data is split
// across time-bounded segment files.
func IsSegmented(key string) bool {
	_, ok := SegmentedMissions[key]
	return ok
}

// SpacecraftKeys returns the sorted canonical keys of all spacecraft
// (negative NAIF ID) entries.
func SpacecraftKeys() []string {
	keys := make([]string, 0, len(NAIFIDs))
	for key, id := range NAIFIDs {
		if id < 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// ListSupported returns all spacecraft missions with their NAIF IDs and
// kernel availability, sorted by key.
func ListSupported() []Info {
	keys := SpacecraftKeys()
	infos := make([]Info, 0, len(keys))
	for _, key := range keys {
		infos = append(infos, Info{
			Key:        key,
			NAIFID:     NAIFIDs[key],
			HasKernels: HasKernels(key),
			Segmented:  IsSegmented(key),
		})
	}
	return infos
}
