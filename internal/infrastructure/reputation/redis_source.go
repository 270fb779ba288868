package reputation

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/auth-risk-engine/internal/infrastructure/config"
)

// Redis set keys holding the shared reputation data.
const (
	DenyListKey          = "risk:reputation:denylist"
	AnonymizerKey        = "risk:reputation:anonymizers"
	HighRiskCountriesKey = "risk:reputation:highrisk_countries"
)

const loadTimeout = 5 * time.Second

// RedisSource loads reputation sets maintained out-of-band (threat feeds,
// abuse reports) from redis. Used only at initialization/refresh time.
type RedisSource struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisSource connects to redis and verifies reachability.
func NewRedisSource(cfg *config.RedisConfig, logger *zap.Logger) (*RedisSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisSource{client: client, logger: logger}, nil
}

// NewRedisSourceFromClient wraps an existing client, mainly for tests.
func NewRedisSourceFromClient(client *redis.Client, logger *zap.Logger) *RedisSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSource{client: client, logger: logger}
}

// Load reads all three reputation sets. A missing set is simply empty.
func (s *RedisSource) Load(ctx context.Context) (Data, error) {
	ctx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()

	var data Data
	var err error

	if data.DenyListIPs, err = s.client.SMembers(ctx, DenyListKey).Result(); err != nil {
		return Data{}, fmt.Errorf("loading deny list: %w", err)
	}
	if data.AnonymizerIPs, err = s.client.SMembers(ctx, AnonymizerKey).Result(); err != nil {
		return Data{}, fmt.Errorf("loading anonymizer list: %w", err)
	}
	if data.HighRiskCountries, err = s.client.SMembers(ctx, HighRiskCountriesKey).Result(); err != nil {
		return Data{}, fmt.Errorf("loading high-risk countries: %w", err)
	}

	s.logger.Info("loaded reputation data from redis",
		zap.Int("deny_list", len(data.DenyListIPs)),
		zap.Int("anonymizers", len(data.AnonymizerIPs)),
		zap.Int("high_risk_countries", len(data.HighRiskCountries)))

	return data, nil
}

// Close releases the redis connection.
func (s *RedisSource) Close() error {
	return s.client.Close()
}
