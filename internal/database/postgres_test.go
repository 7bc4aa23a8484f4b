package database

import (
	"testing"

	"user-admin-service/internal/config"
)

func TestOpenInvalidDSN(t *testing.T) {
	cfg := &config.Config{DatabaseURL: "%"}
	if _, err := Open(cfg); err == nil {
		t.Fatal("expected postgres open error for invalid DSN")
	}
}

func TestOpenRedisParsesURL(t *testing.T) {
	client, err := OpenRedis(&config.Config{})
	if err != nil || client != nil {
		t.Fatalf("expected nil client without REDIS_URL, got client=%v err=%v", client, err)
	}

	if _, err := OpenRedis(&config.Config{RedisURL: "not-a-url"}); err == nil {
		t.Fatal("expected parse error for malformed redis url")
	}

	client, err = OpenRedis(&config.Config{RedisURL: "redis://localhost:6379/0"})
	if err != nil || client == nil {
		t.Fatalf("expected client for valid url, got client=%v err=%v", client, err)
	}
	_ = client.Close()
}
