package mission

import "github.com/huangzesen/heliospice/internal/manifest"

const naifBase = "https://naif.jpl.nasa.gov/pub/naif"

// KernelFile names one downloadable kernel and its source URL.
type KernelFile struct {
	Name string
	URL  string
}

// GenericKernels are needed by every mission. Order matters: the
// leapsecond and constants kernels must be furnished before any SPK so
// that time conversions work while coverage is inspected.
var GenericKernels = []KernelFile{
	{"naif0012.tls", naifBase + "/generic_kernels/lsk/naif0012.tls"},
	{"pck00011.tpc", naifBase + "/generic_kernels/pck/pck00011.tpc"},
	{"gm_de440.tpc", naifBase + "/generic_kernels/pck/gm_de440.tpc"},
	{"de440s.bsp", naifBase + "/generic_kernels/spk/planets/de440s.bsp"},
}

// Kernels maps mission keys to their fixed kernel sets {filename: url}.
// Each mission needs at minimum an SPK (trajectory) file.
var Kernels = map[string]map[string]string{
	"PSP": {
		"spp_nom_20180812_20300101_v043_PostV7.bsp": "https://cdaweb.gsfc.nasa.gov/pub/data/psp/ephemeris/spice/ephemerides/" +
			"spp_nom_20180812_20300101_v043_PostV7.bsp",
	},
	"SOLO": {
		"solo_ANC_soc-orbit-stp_20200210-20301120_399_V1_00513_V01.bsp": "https://spiftp.esac.esa.int/data/SPICE/SOLAR-ORBITER/kernels/spk/" +
			"solo_ANC_soc-orbit-stp_20200210-20301120_399_V1_00513_V01.bsp",
	},
	"STEREO_A": {
		"STEREO-A_merged.bsp": naifBase + "/STEREO/kernels/spk/STEREO-A_merged.bsp",
	},
	"STEREO_B": {
		"behind_2026_029_01.epm.bsp": "https://sohoftp.nascom.nasa.gov/solarsoft/stereo/gen/data/spice/epm/behind/" +
			"behind_2026_029_01.epm.bsp",
	},
	"JUNO": {
		"juno_rec_orbit.bsp": naifBase + "/JUNO/kernels/spk/juno_rec_orbit.bsp",
	},
	"VOYAGER_1": {
		"vgr1.x2100.bsp": naifBase + "/VOYAGER/kernels/spk/vgr1.x2100.bsp",
	},
	"VOYAGER_2": {
		"vgr2.x2100.bsp": naifBase + "/VOYAGER/kernels/spk/vgr2.x2100.bsp",
	},
	"MAVEN": {
		"maven_orb_rec.bsp": naifBase + "/MAVEN/kernels/spk/maven_orb_rec.bsp",
	},
	"NEW_HORIZONS": {
		"nh_pred_alleph_od161.bsp": naifBase + "/pds/data/nh-j_p_ss-spice-6-v1.0/nhsp_1000/data/spk/" +
			"nh_pred_alleph_od161.bsp",
	},
	"ULYSSES": {
		"ulysses_1990_2009_2050.bsp": naifBase + "/ULYSSES/kernels/spk/ulysses_1990_2009_2050.bsp",
	},
	"PIONEER_10": {
		"p10-a.bsp": naifBase + "/PIONEER10/kernels/spk/p10-a.bsp",
	},
	"PIONEER_11": {
		"p11-a.bsp": naifBase + "/PIONEER11/kernels/spk/p11-a.bsp",
	},
	"GALILEO": {
		"gll_951120_021126_raj2021.bsp": naifBase + "/GLL/kernels/spk/gll_951120_021126_raj2021.bsp",
	},
	"HELIOS_1": {
		"100528R_helios1_74345_81272.bsp":  naifBase + "/HELIOS/kernels/spk/100528R_helios1_74345_81272.bsp",
		"160707AP_helios1_81272_86074.bsp": naifBase + "/HELIOS/kernels/spk/160707AP_helios1_81272_86074.bsp",
	},
	"HELIOS_2": {
		"100607R_helios2_76016_80068.bsp": naifBase + "/HELIOS/kernels/spk/100607R_helios2_76016_80068.bsp",
	},
	"MESSENGER": {
		"msgr_040803_150430_150430_od431sc_2.bsp": naifBase + "/pds/data/mess-e_v_h-spice-6-v1.0/messsp_1000/data/spk/" +
			"msgr_040803_150430_150430_od431sc_2.bsp",
	},
	"THEMIS_A": {
		"THEMIS_A_definitive_trajectory.bsp": naifBase + "/THEMIS/kernels/spk/THEMIS_A_definitive_trajectory.bsp",
	},
	"THEMIS_B": {
		"THEMIS_B_definitive_trajectory.bsp": naifBase + "/THEMIS/kernels/spk/THEMIS_B_definitive_trajectory.bsp",
	},
	"THEMIS_C": {
		"THEMIS_C_definitive_trajectory.bsp": naifBase + "/THEMIS/kernels/spk/THEMIS_C_definitive_trajectory.bsp",
	},
	"THEMIS_D": {
		"THEMIS_D_definitive_trajectory.bsp": naifBase + "/THEMIS/kernels/spk/THEMIS_D_definitive_trajectory.bsp",
	},
	"THEMIS_E": {
		"THEMIS_E_definitive_trajectory.bsp": naifBase + "/THEMIS/kernels/spk/THEMIS_E_definitive_trajectory.bsp",
	},
	"DAWN": {
		// Remote name is capitalized; the cached file keeps lowercase.
		"dawn_ephem_2018.bsp": naifBase + "/DAWN/kernels/spk/Dawn_ephem_2018.bsp",
	},
	"LUCY": {
		"lcy_250917_330402_250730_OD093-R-MEF2-P-TCM37a-P_v1.bsp": naifBase + "/LUCY/kernels/spk/" +
			"lcy_250917_330402_250730_OD093-R-MEF2-P-TCM37a-P_v1.bsp",
	},
	"EUROPA_CLIPPER": {
		"trj_251001-260516-dco2601141914-cruise013-predict-OD078-v1.bsp": naifBase + "/EUROPACLIPPER/kernels/spk/" +
			"trj_251001-260516-dco2601141914-cruise013-predict-OD078-v1.bsp",
	},
	"PSYCHE": {
		"psyche_sc-eph_250912-260601_260114_v1.bsp": naifBase + "/PSYCHE/kernels/spk/" +
			"psyche_sc-eph_250912-260601_260114_v1.bsp",
	},
	"JUICE": {
		"juice_crema_5_1_150lb_23_1_v01.bsp": naifBase + "/JUICE/kernels/spk/" +
			"juice_crema_5_1_150lb_23_1_v01.bsp",
	},
	"BEPICOLOMBO": {
		"bc_mtm_scp_cruise_20181016_20251205_v01.bsp": naifBase + "/BEPICOLOMBO/kernels/spk/" +
			"bc_mtm_scp_cruise_20181016_20251205_v01.bsp",
	},
}

// SegmentedMissions maps missions whose trajectory SPKs are split into
// many time-bounded files to the embedded manifest describing them.
var SegmentedMissions = map[string]string{
	"CASSINI":   "cassini.json",
	"MRO":       "mro.json",
	"MARS_2020": "mars2020.json",
}

// FileOwners maps every known kernel filename to its owning mission
// key. Generic kernels map to "GENERIC"; manifest segment files map to
// their segmented mission. Unknown filenames are absent.
func FileOwners() map[string]string {
	owners := make(map[string]string)
	for _, g := range GenericKernels {
		owners[g.Name] = "GENERIC"
	}
	for key, set := range Kernels {
		for name := range set {
			owners[name] = key
		}
	}
	for key, manifestFile := range SegmentedMissions {
		segs, err := manifest.Load(manifestFile)
		if err != nil {
			continue
		}
		for _, seg := range segs {
			owners[seg.File] = key
		}
	}
	return owners
}
