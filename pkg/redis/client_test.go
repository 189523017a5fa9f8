package redis

import (
	"testing"

	"github.com/fungalflux/storefront-backend/pkg/config"
)

func TestOptionsFromConfigPrefersURL(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		URL:     "redis://:sekrit@redis.internal:6380/2",
		Address: "ignored:6379",
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "redis.internal:6380" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.DB != 2 {
		t.Fatalf("unexpected db: %d", opts.DB)
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{
		Address:  "localhost:6379",
		Password: "sekrit",
		DB:       1,
		PoolSize: 5,
	})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected addr: %s", opts.Addr)
	}
	if opts.Password != "sekrit" || opts.DB != 1 || opts.PoolSize != 5 {
		t.Fatalf("discrete settings not applied: %+v", opts)
	}
}

func TestOptionsFromConfigRequiresEndpoint(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither url nor address is set")
	}
}
