package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BUSINESS_OPEN", "")
	t.Setenv("BUSINESS_CLOSE", "")
	t.Setenv("WORKING_DAYS", "")
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("MAX_LISTED_SLOTS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BusinessOpen != 9*time.Hour || cfg.BusinessClose != 17*time.Hour {
		t.Fatalf("expected 09:00-17:00 business hours, got %s-%s", cfg.BusinessOpen, cfg.BusinessClose)
	}
	if cfg.SlotInterval != 30*time.Minute {
		t.Fatalf("expected 30m interval, got %s", cfg.SlotInterval)
	}
	if cfg.DefaultDuration != time.Hour {
		t.Fatalf("expected 60m default duration, got %s", cfg.DefaultDuration)
	}
	if len(cfg.WorkingDays) != 5 || cfg.WorkingDays[0] != time.Monday {
		t.Fatalf("expected Mon-Fri working days, got %v", cfg.WorkingDays)
	}
	if cfg.MaxSelectionRetries != 3 {
		t.Fatalf("expected 3 selection retries, got %d", cfg.MaxSelectionRetries)
	}
	if cfg.MaxListedSlots != 10 {
		t.Fatalf("expected 10 listed slots, got %d", cfg.MaxListedSlots)
	}
	if cfg.StoreBackend != "memory" {
		t.Fatalf("expected memory store backend, got %s", cfg.StoreBackend)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("BUSINESS_OPEN", "08:30")
	t.Setenv("BUSINESS_CLOSE", "18:00")
	t.Setenv("SLOT_INTERVAL", "15m")
	t.Setenv("WORKING_DAYS", "Mon, wednesday ,fri,bogus,mon")
	t.Setenv("STORE_BACKEND", " Postgres ")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.BusinessOpen != 8*time.Hour+30*time.Minute {
		t.Fatalf("expected 08:30 open, got %s", cfg.BusinessOpen)
	}
	if cfg.BusinessClose != 18*time.Hour {
		t.Fatalf("expected 18:00 close, got %s", cfg.BusinessClose)
	}
	if cfg.SlotInterval != 15*time.Minute {
		t.Fatalf("expected 15m interval, got %s", cfg.SlotInterval)
	}
	want := []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	if len(cfg.WorkingDays) != len(want) {
		t.Fatalf("expected %v, got %v", want, cfg.WorkingDays)
	}
	for i := range want {
		if cfg.WorkingDays[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, cfg.WorkingDays)
		}
	}
	if cfg.StoreBackend != "postgres" {
		t.Fatalf("expected postgres backend, got %q", cfg.StoreBackend)
	}
	if !cfg.UseMemoryQueue {
		t.Fatalf("expected memory queue enabled")
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("BUSINESS_OPEN", "nine")
	t.Setenv("SLOT_INTERVAL", "soon")
	t.Setenv("WORKER_COUNT", "many")
	cfg := Load()
	if cfg.BusinessOpen != 9*time.Hour {
		t.Fatalf("expected default open on bad input, got %s", cfg.BusinessOpen)
	}
	if cfg.SlotInterval != 30*time.Minute {
		t.Fatalf("expected default interval on bad input, got %s", cfg.SlotInterval)
	}
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected default worker count on bad input, got %d", cfg.WorkerCount)
	}
}
