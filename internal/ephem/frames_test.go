package ephem

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/huangzesen/heliospice/internal/spice"
)

func TestResolveFrame(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"j2000", "J2000"},
		{"ECLIPTIC", "ECLIPJ2000"},
		{"equatorial", "J2000"},
		{"inertial", "J2000"},
		{"rtn", "RTN"},
		{"IAU_MARS", "IAU_MARS"}, // unknown names pass through
	}
	for _, tt := range tests {
		if got := ResolveFrame(tt.in); got != tt.want {
			t.Errorf("ResolveFrame(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestListFramesSorted(t *testing.T) {
	frames := ListFrames()
	require.Contains(t, frames, "RTN")
	require.Contains(t, frames, "ECLIPTIC")
	for i := 1; i < len(frames); i++ {
		require.Less(t, frames[i-1], frames[i])
	}
}

func TestDescribeFramesCanonicalOnly(t *testing.T) {
	infos := DescribeFrames()
	require.Len(t, infos, 10)
	for _, info := range infos {
		require.NotEmpty(t, info.FullName)
		require.NotEmpty(t, info.Description)
		require.NotEmpty(t, info.UseWhen)
		// No convenience aliases in the described set.
		require.NotEqual(t, "ECLIPTIC", info.Frame)
	}
}

func TestTransformSameFrame(t *testing.T) {
	s, fake, _ := newTestService(t)
	v := spice.Vector3{1, 2, 3}

	// Aliases of the same canonical frame short-circuit entirely.
	got, err := s.TransformVector(context.Background(), v, "2024-01-01T00:00:00", "ECLIPTIC", "ECLIPJ2000", "")
	require.NoError(t, err)
	require.Equal(t, v, got)
	require.Empty(t, fake.Furnished)
}

func TestTransformNativeFrames(t *testing.T) {
	s, _, _ := newTestService(t)
	v := spice.Vector3{100, -200, 300}

	// The fake's transform is the identity, so the vector survives.
	got, err := s.TransformVector(context.Background(), v, "2024-01-01T00:00:00", "J2000", "ECLIPJ2000", "")
	require.NoError(t, err)
	require.Equal(t, v, got)
}

func TestTransformRTNRequiresSpacecraft(t *testing.T) {
	s, _, _ := newTestService(t)
	_, err := s.TransformVector(context.Background(), spice.Vector3{1, 0, 0},
		"2024-01-01T00:00:00", "RTN", "J2000", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "spacecraft")
}

func TestTransformRTNPreservesNorm(t *testing.T) {
	s, _, _ := newTestService(t)
	v := spice.Vector3{3, 4, 12}

	got, err := s.TransformVector(context.Background(), v, "2024-01-01T00:00:00", "J2000", "RTN", "EARTH")
	require.NoError(t, err)
	require.InDelta(t, 13.0, math.Sqrt(got[0]*got[0]+got[1]*got[1]+got[2]*got[2]), 1e-9)
}

func TestTransformRTNRoundTrip(t *testing.T) {
	s, _, _ := newTestService(t)
	v := spice.Vector3{42, -7, 19}

	rtn, err := s.TransformVector(context.Background(), v, "2024-01-01T00:00:00", "J2000", "RTN", "EARTH")
	require.NoError(t, err)
	back, err := s.TransformVector(context.Background(), rtn, "2024-01-01T00:00:00", "RTN", "J2000", "EARTH")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.InDelta(t, v[i], back[i], 1e-9)
	}
}

func TestRTNMatrixOrthonormal(t *testing.T) {
	s, _, _ := newTestService(t)
	m, err := s.rtnMatrix(context.Background(), "EARTH", 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		row := spice.Vector3{m[i][0], m[i][1], m[i][2]}
		require.InDelta(t, 1.0, vecNorm(row), 1e-9, "row %d not unit length", i)
	}
	// Rows pairwise orthogonal.
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			dot := m[i][0]*m[j][0] + m[i][1]*m[j][1] + m[i][2]*m[j][2]
			require.InDelta(t, 0.0, dot, 1e-9)
		}
	}
}

func TestCrossAndTranspose(t *testing.T) {
	c := cross(spice.Vector3{1, 0, 0}, spice.Vector3{0, 1, 0})
	require.Equal(t, spice.Vector3{0, 0, 1}, c)

	m := spice.Matrix3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	tr := transpose(m)
	require.Equal(t, spice.Matrix3{{1, 4, 7}, {2, 5, 8}, {3, 6, 9}}, tr)
}
