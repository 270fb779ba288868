package assessment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContext_CacheKey(t *testing.T) {
	tests := []struct {
		name     string
		ctx      Context
		expected string
	}{
		{
			name: "all components present",
			ctx: Context{
				UserID:     "u1",
				IP:         "203.0.113.1",
				DeviceID:   "dev-1",
				MethodCode: "password",
				ResourceID: "app-42",
			},
			expected: "u:u1|ip:203.0.113.1|d:dev-1|m:password|r:app-42",
		},
		{
			name:     "missing components omitted",
			ctx:      Context{IP: "203.0.113.1", MethodCode: "otp"},
			expected: "ip:203.0.113.1|m:otp",
		},
		{
			name:     "only user",
			ctx:      Context{UserID: "u1"},
			expected: "u:u1",
		},
		{
			name:     "empty context",
			ctx:      Context{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.ctx.CacheKey())
		})
	}
}

func TestContext_CacheKey_Deterministic(t *testing.T) {
	ctx := Context{UserID: "u1", IP: "198.51.100.7", DeviceID: "d9"}
	assert.Equal(t, ctx.CacheKey(), ctx.CacheKey())
}

func TestContext_Sanitized(t *testing.T) {
	ctx := Context{
		UserID: "u1",
		Attributes: map[string]string{
			"password":        "hunter2",
			"user_pin":        "1234",
			"client_secret":   "abc",
			"credential_type": "x509",
			"refresh_token":   "tok",
			"channel":         "mobile",
			"locale":          "pt-AO",
		},
	}

	clean := ctx.Sanitized()

	assert.Equal(t, map[string]string{
		"channel": "mobile",
		"locale":  "pt-AO",
	}, clean.Attributes)

	// Original is untouched.
	assert.Len(t, ctx.Attributes, 7)
}

func TestContext_Sanitized_NoAttributes(t *testing.T) {
	ctx := Context{UserID: "u1"}
	assert.Nil(t, ctx.Sanitized().Attributes)
}

func TestGeolocation_Valid(t *testing.T) {
	tests := []struct {
		name  string
		geo   Geolocation
		valid bool
	}{
		{"luanda", Geolocation{Latitude: -8.83, Longitude: 13.23}, true},
		{"boundary", Geolocation{Latitude: 90, Longitude: -180}, true},
		{"nan latitude", Geolocation{Latitude: math.NaN(), Longitude: 0}, false},
		{"inf longitude", Geolocation{Latitude: 0, Longitude: math.Inf(1)}, false},
		{"latitude out of range", Geolocation{Latitude: 91, Longitude: 0}, false},
		{"longitude out of range", Geolocation{Latitude: 0, Longitude: 181}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.geo.Valid())
		})
	}
}

func TestDeviceAttributes_Anomalous(t *testing.T) {
	assert.False(t, DeviceAttributes{}.Anomalous())
	assert.True(t, DeviceAttributes{Emulated: true}.Anomalous())
	assert.True(t, DeviceAttributes{Rooted: true}.Anomalous())
	assert.True(t, DeviceAttributes{DeveloperMode: true}.Anomalous())
}
