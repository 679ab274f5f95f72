package manifest

import (
	"regexp"
	"sort"
)

// BuildConfig describes how to rebuild a mission's manifest from the
// remote archive: which directory to scan, which SPK filenames belong
// to the mission, and which body to read coverage for.
type BuildConfig struct {
	BaseURL string
	Pattern *regexp.Regexp
	NAIFID  int
	Output  string
}

// BuildConfigs holds the rebuild configuration for every segmented
// mission, keyed by mission key.
var BuildConfigs = map[string]BuildConfig{
	"CASSINI": {
		BaseURL: "https://naif.jpl.nasa.gov/pub/naif/pds/data/co-s_j_e_v-spice-6-v1.0/cosp_1000/data/spk/",
		Pattern: regexp.MustCompile(`(?i)^\d{6}R[BU]?_SCPSE_\d{5}_\d{5}\.bsp$`),
		NAIFID:  -82,
		Output:  "cassini.json",
	},
	"MRO": {
		BaseURL: "https://naif.jpl.nasa.gov/pub/naif/MRO/kernels/spk/",
		Pattern: regexp.MustCompile(`(?i)^mro_psp\d+.*\.bsp$`),
		NAIFID:  -74,
		Output:  "mro.json",
	},
	"MARS_2020": {
		BaseURL: "https://naif.jpl.nasa.gov/pub/naif/MARS2020/kernels/spk/",
		Pattern: regexp.MustCompile(`(?i)^m2020_.*\.bsp$`),
		NAIFID:  -168,
		Output:  "mars2020.json",
	},
}

// BuildableMissions lists the mission keys with a BuildConfig, sorted.
func BuildableMissions() []string {
	keys := make([]string, 0, len(BuildConfigs))
	for key := range BuildConfigs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
