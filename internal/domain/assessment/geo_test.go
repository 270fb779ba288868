package assessment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lon1 float64
		lat2, lon2 float64
		expected   float64
		tolerance  float64
	}{
		{
			name: "same point",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 40.7128, lon2: -74.0060,
			expected:  0,
			tolerance: 0.001,
		},
		{
			name: "new york to london",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 51.5074, lon2: -0.1278,
			expected:  5570,
			tolerance: 20,
		},
		{
			name: "luanda to lisbon",
			lat1: -8.83, lon1: 13.23,
			lat2: 38.72, lon2: -9.14,
			expected:  5755,
			tolerance: 30,
		},
		{
			name: "antipodal points",
			lat1: 0, lon1: 0,
			lat2: 0, lon2: 180,
			expected:  20015,
			tolerance: 10,
		},
		{
			name: "short hop",
			lat1: 48.8566, lon1: 2.3522,
			lat2: 48.8606, lon2: 2.3376,
			expected:  1.15,
			tolerance: 0.1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.expected, got, tt.tolerance)
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	forward := DistanceKm(-8.83, 13.23, 51.5074, -0.1278)
	backward := DistanceKm(51.5074, -0.1278, -8.83, 13.23)
	assert.InDelta(t, forward, backward, 1e-9)
}

func TestDistanceKm_NaNPropagates(t *testing.T) {
	assert.True(t, math.IsNaN(DistanceKm(math.NaN(), 0, 0, 0)))
}
