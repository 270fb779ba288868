package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidleathers/auth-risk-engine/internal/domain/assessment"
)

func TestContextBuilderDefaults(t *testing.T) {
	fixed := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	b := &ContextBuilder{now: func() time.Time { return fixed }}

	t.Run("timestamp defaults to now", func(t *testing.T) {
		ctx := b.Build(Request{UserID: "u1"}, Ambient{})
		assert.Equal(t, fixed, ctx.Timestamp)
	})

	t.Run("explicit timestamp wins", func(t *testing.T) {
		ts := fixed.Add(-time.Hour)
		ctx := b.Build(Request{}, Ambient{Timestamp: ts})
		assert.Equal(t, ts, ctx.Timestamp)
	})

	t.Run("previous timestamp falls back to last login", func(t *testing.T) {
		last := fixed.Add(-24 * time.Hour)
		ctx := b.Build(Request{}, Ambient{LastSuccessfulLogin: &last})
		require.NotNil(t, ctx.PreviousTimestamp)
		assert.Equal(t, last, *ctx.PreviousTimestamp)
	})

	t.Run("method type falls back to authentication type", func(t *testing.T) {
		ctx := b.Build(Request{}, Ambient{AuthenticationType: "password"})
		assert.Equal(t, "password", ctx.MethodType)

		ctx = b.Build(Request{MethodType: "webauthn"}, Ambient{AuthenticationType: "password"})
		assert.Equal(t, "webauthn", ctx.MethodType)
	})
}

func TestContextBuilderNormalizesGeo(t *testing.T) {
	b := NewContextBuilder()

	t.Run("invalid coordinates dropped", func(t *testing.T) {
		ctx := b.Build(Request{
			Geolocation: &assessment.Geolocation{Latitude: 120, Longitude: 0},
		}, Ambient{})
		assert.Nil(t, ctx.Geo)
	})

	t.Run("country uppercased", func(t *testing.T) {
		ctx := b.Build(Request{
			Geolocation: &assessment.Geolocation{Latitude: 38.72, Longitude: -9.14, Country: "pt"},
		}, Ambient{})
		require.NotNil(t, ctx.Geo)
		assert.Equal(t, "PT", ctx.Geo.Country)
	})

	t.Run("input geolocation not mutated", func(t *testing.T) {
		geo := &assessment.Geolocation{Latitude: 38.72, Longitude: -9.14, Country: "pt"}
		b.Build(Request{Geolocation: geo}, Ambient{})
		assert.Equal(t, "pt", geo.Country)
	})
}

func TestContextBuilderCopiesAttributes(t *testing.T) {
	b := NewContextBuilder()
	attrs := map[string]string{"channel": "mobile"}

	ctx := b.Build(Request{Attributes: attrs}, Ambient{})
	attrs["channel"] = "web"

	assert.Equal(t, "mobile", ctx.Attributes["channel"])
}
