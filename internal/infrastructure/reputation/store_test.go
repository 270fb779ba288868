package reputation

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lookups(t *testing.T) {
	store := NewStore(Data{
		DenyListIPs:       []string{"203.0.113.1", "198.51.100.9"},
		AnonymizerIPs:     []string{"192.0.2.44"},
		HighRiskCountries: []string{"kp", "IR"},
	})

	assert.True(t, store.IsDenied("203.0.113.1"))
	assert.False(t, store.IsDenied("192.0.2.44"))

	assert.True(t, store.IsAnonymizer("192.0.2.44"))
	assert.False(t, store.IsAnonymizer("203.0.113.1"))

	// Country lookup is case insensitive both ways.
	assert.True(t, store.IsHighRiskCountry("KP"))
	assert.True(t, store.IsHighRiskCountry("ir"))
	assert.False(t, store.IsHighRiskCountry("AO"))

	assert.Equal(t, 2, store.DenyListSize())
}

func TestStore_MergesSources(t *testing.T) {
	store := NewStore(
		Data{DenyListIPs: []string{"203.0.113.1"}},
		Data{DenyListIPs: []string{"203.0.113.2", ""}},
	)

	assert.True(t, store.IsDenied("203.0.113.1"))
	assert.True(t, store.IsDenied("203.0.113.2"))
	assert.False(t, store.IsDenied(""))
	assert.Equal(t, 2, store.DenyListSize())
}

func TestStaticSource_Load(t *testing.T) {
	src := NewStaticSource([]string{"203.0.113.1"}, []string{"192.0.2.44"}, []string{"KP"})

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.1"}, data.DenyListIPs)
	assert.Equal(t, []string{"192.0.2.44"}, data.AnonymizerIPs)
	assert.Equal(t, []string{"KP"}, data.HighRiskCountries)
}

func TestRedisSource_Load(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	mr.SAdd(DenyListKey, "203.0.113.1", "203.0.113.2")
	mr.SAdd(AnonymizerKey, "192.0.2.44")
	mr.SAdd(HighRiskCountriesKey, "KP")

	src := NewRedisSourceFromClient(client, nil)

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"203.0.113.1", "203.0.113.2"}, data.DenyListIPs)
	assert.Equal(t, []string{"192.0.2.44"}, data.AnonymizerIPs)
	assert.Equal(t, []string{"KP"}, data.HighRiskCountries)
}

func TestRedisSource_EmptySets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	src := NewRedisSourceFromClient(client, nil)

	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, data.DenyListIPs)
	assert.Empty(t, data.AnonymizerIPs)
	assert.Empty(t, data.HighRiskCountries)
}
