package cacheinfra

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/viccon/sturdyc"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGateway(t *testing.T) (*MemoryGateway, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cfg := Config{
		Capacity:           100,
		NumShards:          4,
		TTL:                time.Hour,
		EvictionPercentage: 10,
	}
	gw, err := NewMemoryGateway(cfg, WithClock(clock.Now))
	if err != nil {
		t.Fatalf("NewMemoryGateway() failed: %v", err)
	}
	return gw, clock
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != MaxTTL {
		t.Errorf("expected TTL to be MaxTTL, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
		errorMsg  string
	}{
		{
			name:      "valid default config",
			cfg:       DefaultConfig(),
			wantError: false,
		},
		{
			name:      "invalid capacity - zero",
			cfg:       Config{Capacity: 0, NumShards: 256, TTL: time.Minute, EvictionPercentage: 10},
			wantError: true,
			errorMsg:  "must be greater than 0",
		},
		{
			name:      "invalid num shards - zero",
			cfg:       Config{Capacity: 1000, NumShards: 0, TTL: time.Minute, EvictionPercentage: 10},
			wantError: true,
			errorMsg:  "must be greater than 0",
		},
		{
			name:      "invalid TTL - zero",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: 0, EvictionPercentage: 10},
			wantError: true,
			errorMsg:  "must be greater than 0",
		},
		{
			name:      "invalid eviction percentage - too high",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 101},
			wantError: true,
			errorMsg:  "must be between 1 and 100",
		},
		{
			name:      "invalid eviction interval - negative",
			cfg:       Config{Capacity: 1000, NumShards: 256, TTL: time.Minute, EvictionPercentage: 10, EvictionInterval: -time.Second},
			wantError: true,
			errorMsg:  "must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error but got: %v", err)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	if opts := (Config{}).ToSturdycOptions(); len(opts) != 0 {
		t.Errorf("expected no options, got %d", len(opts))
	}

	cfg := Config{EvictionInterval: time.Minute}
	if opts := cfg.ToSturdycOptions(); len(opts) != 1 {
		t.Errorf("expected 1 option, got %d", len(opts))
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	want := "config error in field Capacity: must be greater than 0"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestNewMemoryGateway_InvalidConfig(t *testing.T) {
	if _, err := NewMemoryGateway(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}

func TestMemoryGateway_SetGet(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	if _, ok, _ := gw.Get(ctx, "missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	if err := gw.Set(ctx, "k1", "payload", Permanent, []string{"a", "b", "a"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	entry, ok, err := gw.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if entry.Payload != "payload" {
		t.Errorf("expected payload %q, got %v", "payload", entry.Payload)
	}
	if len(entry.Tags) != 2 {
		t.Errorf("expected deduplicated tags, got %v", entry.Tags)
	}
	if !entry.Expires.IsZero() {
		t.Errorf("expected permanent entry, got expiry %v", entry.Expires)
	}
}

func TestMemoryGateway_MaxAge(t *testing.T) {
	gw, clock := newTestGateway(t)
	ctx := context.Background()

	if err := gw.Set(ctx, "short", 1, 10*time.Second, nil); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	clock.Advance(9 * time.Second)
	if _, ok, _ := gw.Get(ctx, "short"); !ok {
		t.Fatal("expected hit inside max-age")
	}

	clock.Advance(time.Second)
	if _, ok, _ := gw.Get(ctx, "short"); ok {
		t.Fatal("expected miss once max-age elapsed")
	}
}

func TestMemoryGateway_ZeroMaxAgeStoresNothing(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	if err := gw.Set(ctx, "k", 1, 0, []string{"t"}); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, ok, _ := gw.Get(ctx, "k"); ok {
		t.Fatal("expected nothing stored for zero max-age")
	}
}

func TestMemoryGateway_InvalidateTags(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	gw.Set(ctx, "site.one.1", 1, Permanent, []string{"api", "api:site", "api:site:request_one"})
	gw.Set(ctx, "site.one.2", 2, Permanent, []string{"api", "api:site", "api:site:request_one"})
	gw.Set(ctx, "group.multiple.100.1", 3, Permanent, []string{"api", "api:group", "api:group:request_multiple"})

	if err := gw.InvalidateTags(ctx, "api:site"); err != nil {
		t.Fatalf("InvalidateTags() failed: %v", err)
	}

	for _, key := range []string{"site.one.1", "site.one.2"} {
		if _, ok, _ := gw.Get(ctx, key); ok {
			t.Errorf("expected %s to be invalidated", key)
		}
	}
	if _, ok, _ := gw.Get(ctx, "group.multiple.100.1"); !ok {
		t.Error("expected entry with other tags to survive")
	}

	if err := gw.InvalidateTags(ctx, "unknown"); err != nil {
		t.Errorf("invalidating an unknown tag should not fail: %v", err)
	}
}

func TestMemoryGateway_Delete(t *testing.T) {
	gw, _ := newTestGateway(t)
	ctx := context.Background()

	gw.Set(ctx, "a", 1, Permanent, nil)
	gw.Set(ctx, "b", 2, Permanent, nil)
	gw.Set(ctx, "c", 3, Permanent, nil)

	if err := gw.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}

	keys := gw.Keys()
	sort.Strings(keys)
	if len(keys) != 1 || keys[0] != "c" {
		t.Errorf("expected only c to remain, got %v", keys)
	}
}

func TestMemoryGateway_PermanentOutlivesDefaultTTLWindow(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		ttl         time.Duration
		advance     time.Duration
		wantPresent bool
	}{
		{name: "default ttl keeps permanent entries", ttl: DefaultConfig().TTL, advance: 10 * 365 * 24 * time.Hour, wantPresent: true},
		{name: "short ttl caps permanent entries", ttl: 50 * time.Millisecond, advance: 120 * time.Millisecond, wantPresent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := sturdyc.NewTestClock(start)
			cfg := DefaultConfig()
			cfg.Capacity = 100
			cfg.NumShards = 4
			cfg.TTL = tt.ttl

			gw, err := NewMemoryGateway(cfg, WithClock(clock.Now), WithSturdycClock(clock))
			if err != nil {
				t.Fatalf("NewMemoryGateway() failed: %v", err)
			}
			if gw.TTL() != tt.ttl {
				t.Errorf("expected TTL %v, got %v", tt.ttl, gw.TTL())
			}

			if err := gw.Set(ctx, "k", "v", Permanent, nil); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			clock.Add(tt.advance)

			if _, ok, _ := gw.Get(ctx, "k"); ok != tt.wantPresent {
				t.Errorf("expected present=%v, got %v", tt.wantPresent, ok)
			}
		})
	}
}

func TestMemoryGateway_TagIndexPruned(t *testing.T) {
	gw, clock := newTestGateway(t)
	ctx := context.Background()

	gw.Set(ctx, "site.one.1", 1, Permanent, []string{"api", "api:site:request_one:1"})
	gw.Set(ctx, "site.one.2", 2, 10*time.Second, []string{"api", "api:site:request_one:2"})
	gw.Set(ctx, "site.one.3", 3, Permanent, []string{"api", "api:site:request_one:3"})

	if got := gw.TaggedKeys("api"); got != 3 {
		t.Fatalf("expected 3 keys under api, got %d", got)
	}

	if err := gw.Delete(ctx, "site.one.1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if got := gw.TaggedKeys("api:site:request_one:1"); got != 0 {
		t.Errorf("expected deleted key to leave its id tag, got %d", got)
	}
	if got := gw.TaggedKeys("api"); got != 2 {
		t.Errorf("expected 2 keys under api after delete, got %d", got)
	}

	clock.Advance(11 * time.Second)
	if _, ok, _ := gw.Get(ctx, "site.one.2"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if got := gw.TaggedKeys("api:site:request_one:2"); got != 0 {
		t.Errorf("expected expired key to leave its id tag, got %d", got)
	}
	if got := gw.TaggedKeys("api"); got != 1 {
		t.Errorf("expected 1 key under api after expiry, got %d", got)
	}

	gw.Set(ctx, "site.one.3", 4, Permanent, []string{"api:site:request_one:3b"})
	if got := gw.TaggedKeys("api:site:request_one:3"); got != 0 {
		t.Errorf("expected overwrite to drop stale tags, got %d", got)
	}

	if err := gw.InvalidateTags(ctx, "api:site:request_one:3b"); err != nil {
		t.Fatalf("InvalidateTags() failed: %v", err)
	}
	if got := gw.TaggedKeys("api"); got != 0 {
		t.Errorf("expected empty index, got %d under api", got)
	}
}
