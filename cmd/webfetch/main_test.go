package main

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestConfigLogPretty(t *testing.T) {
	parsed, err := env.ParseAs[config]()
	if err != nil {
		t.Fatalf("ParseAs failed: %v", err)
	}
	if !parsed.LogPretty {
		t.Error("LogPretty default = false, want pretty console output by default")
	}

	t.Setenv("WEBCACHE_LOG_PRETTY", "false")
	parsed, err = env.ParseAs[config]()
	if err != nil {
		t.Fatalf("ParseAs failed: %v", err)
	}
	if parsed.LogPretty {
		t.Error("LogPretty = true with WEBCACHE_LOG_PRETTY=false, want JSON output")
	}
}

func TestEffectiveDir(t *testing.T) {
	cfg.CacheDir = "./from-env"

	cacheDir = ""
	if got := effectiveDir(); got != "./from-env" {
		t.Errorf("effectiveDir = %q, want env fallback", got)
	}

	cacheDir = "./from-flag"
	if got := effectiveDir(); got != "./from-flag" {
		t.Errorf("effectiveDir = %q, want flag override", got)
	}
}

func TestEffectiveTTL(t *testing.T) {
	cfg.TTL = time.Hour

	ttl = -1
	if got := effectiveTTL(); got != time.Hour {
		t.Errorf("effectiveTTL = %v, want env fallback", got)
	}

	ttl = 0
	if got := effectiveTTL(); got != 0 {
		t.Errorf("effectiveTTL = %v, want explicit no-expiration", got)
	}

	ttl = 5 * time.Minute
	if got := effectiveTTL(); got != 5*time.Minute {
		t.Errorf("effectiveTTL = %v, want flag override", got)
	}
}
