package mission

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveDirect(t *testing.T) {
	tests := []struct {
		name    string
		wantID  int
		wantKey string
	}{
		{"PSP", -96, "PSP"},
		{"psp", -96, "PSP"},
		{"SOLO", -144, "SOLO"},
		{"stereo-a", -234, "STEREO_A"},
		{"Earth", 399, "EARTH"},
		{"sun", 10, "SUN"},
		{"mars", 4, "MARS"},
		{"ssb", 0, "SSB"},
	}
	for _, tt := range tests {
		id, key, err := Resolve(tt.name)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error: %v", tt.name, err)
			continue
		}
		if id != tt.wantID || key != tt.wantKey {
			t.Errorf("Resolve(%q) = (%d, %q), want (%d, %q)", tt.name, id, key, tt.wantID, tt.wantKey)
		}
	}
}

func TestResolveAliases(t *testing.T) {
	tests := []struct {
		name    string
		wantKey string
	}{
		{"Parker Solar Probe", "PSP"},
		{"parker", "PSP"},
		{"Solar Orbiter", "SOLO"},
		{"voyager 1", "VOYAGER_1"},
		{"VGR2", "VOYAGER_2"},
		{"new horizons", "NEW_HORIZONS"},
		{"nh", "NEW_HORIZONS"},
		{"mms", "MMS1"},
		{"Perseverance", "MARS_2020"},
		{"bepi", "BEPICOLOMBO"},
		{"artemis p1", "THEMIS_B"},
	}
	for _, tt := range tests {
		_, key, err := Resolve(tt.name)
		if err != nil {
			t.Errorf("Resolve(%q): unexpected error: %v", tt.name, err)
			continue
		}
		if key != tt.wantKey {
			t.Errorf("Resolve(%q) key = %q, want %q", tt.name, key, tt.wantKey)
		}
	}
}

func TestResolveCompact(t *testing.T) {
	// Underscore-insensitive fallback: "stereoa" -> STEREO_A via alias,
	// "mars2020" -> MARS_2020 via alias, "helios1" via alias; compact
	// fallback itself covers names like "voyager_1" written "VOYAGER1".
	_, key, err := Resolve("VOYAGER1")
	if err != nil {
		t.Fatalf("Resolve(VOYAGER1): %v", err)
	}
	if key != "VOYAGER_1" {
		t.Errorf("Resolve(VOYAGER1) key = %q, want VOYAGER_1", key)
	}
}

func TestResolveUnknown(t *testing.T) {
	_, _, err := Resolve("SPUTNIK")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve(SPUTNIK) error = %v, want ErrNotFound", err)
	}
	// The message enumerates supported spacecraft to aid discovery.
	if !strings.Contains(err.Error(), "PSP") || !strings.Contains(err.Error(), "CASSINI") {
		t.Errorf("error should list supported spacecraft, got: %v", err)
	}
}

func TestHasKernels(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"PSP", true},
		{"SOLO", true},
		{"CASSINI", true}, // segmented only
		{"MRO", true},     // segmented only
		{"ACE", false},    // NAIF ID known, no kernel source
		{"EARTH", false},
	}
	for _, tt := range tests {
		if got := HasKernels(tt.key); got != tt.want {
			t.Errorf("HasKernels(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestIsSegmented(t *testing.T) {
	if !IsSegmented("CASSINI") {
		t.Error("CASSINI should be segmented")
	}
	if IsSegmented("PSP") {
		t.Error("PSP should not be segmented")
	}
}

func TestListSupportedSpacecraftOnly(t *testing.T) {
	infos := ListSupported()
	if len(infos) == 0 {
		t.Fatal("no supported missions listed")
	}
	for i, info := range infos {
		if NAIFIDs[info.Key] >= 0 {
			t.Errorf("ListSupported included non-spacecraft %q", info.Key)
		}
		if i > 0 && infos[i-1].Key >= info.Key {
			t.Errorf("ListSupported not sorted at %q", info.Key)
		}
	}
}

func TestGenericKernelOrder(t *testing.T) {
	// The leapsecond kernel must come first so ET conversions are valid
	// before any SPK coverage is inspected.
	if GenericKernels[0].Name != "naif0012.tls" {
		t.Fatalf("first generic kernel = %q, want naif0012.tls", GenericKernels[0].Name)
	}
	last := GenericKernels[len(GenericKernels)-1]
	if last.Name != "de440s.bsp" {
		t.Fatalf("last generic kernel = %q, want de440s.bsp", last.Name)
	}
}

func TestFileOwners(t *testing.T) {
	owners := FileOwners()
	tests := []struct {
		file string
		want string
	}{
		{"naif0012.tls", "GENERIC"},
		{"de440s.bsp", "GENERIC"},
		{"vgr1.x2100.bsp", "VOYAGER_1"},
		{"juno_rec_orbit.bsp", "JUNO"},
		{"050513RB_SCPSE_04342_05034.bsp", "CASSINI"},
		{"random.bsp", ""},
	}
	for _, tt := range tests {
		if got := owners[tt.file]; got != tt.want {
			t.Errorf("FileOwners()[%q] = %q, want %q", tt.file, got, tt.want)
		}
	}
}
