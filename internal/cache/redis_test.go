package cache

import (
	"errors"
	"testing"
	"time"
)

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "single part",
			parts: []string{"test"},
		},
		{
			name:  "multiple parts",
			parts: []string{"feed_recommended_reels", "20", "cursor-token"},
		},
		{
			name:  "empty parts",
			parts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed1 := HashKey(tt.parts...)
			hashed2 := HashKey(tt.parts...)

			// Hash should be consistent
			if hashed1 != hashed2 {
				t.Errorf("HashKey() should be consistent, got %s and %s", hashed1, hashed2)
			}

			// Hash should be 32 characters (MD5 hex)
			if len(hashed1) != 32 {
				t.Errorf("HashKey() should return 32 character hex string, got length %d", len(hashed1))
			}
		})
	}
}

func TestHashKey_PartOrderMatters(t *testing.T) {
	if HashKey("a", "b") == HashKey("b", "a") {
		t.Error("HashKey() should distinguish part order")
	}
	if HashKey("a", "b") == HashKey("a|b") {
		t.Error("HashKey() should keep part boundaries distinct")
	}
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "simple key",
			key:      "test",
			expected: "feedengine:test",
		},
		{
			name:     "key with colon",
			key:      "reels:20",
			expected: "feedengine:reels:20",
		},
		{
			name:     "empty key",
			key:      "",
			expected: "feedengine:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cache.NamespaceKey(tt.key)
			if result != tt.expected {
				t.Errorf("NamespaceKey() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestCache_DisabledIsSafe(t *testing.T) {
	var cache *Cache

	if _, err := cache.Get("key"); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Get on nil cache = %v, want ErrCacheDisabled", err)
	}
	if err := cache.Set("key", "value", time.Second); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("Set on nil cache = %v, want ErrCacheDisabled", err)
	}
	if err := cache.SetJSON("key", map[string]int{"a": 1}, time.Second); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("SetJSON on nil cache = %v, want ErrCacheDisabled", err)
	}
	var out map[string]int
	if err := cache.GetJSON("key", &out); !errors.Is(err, ErrCacheDisabled) {
		t.Errorf("GetJSON on nil cache = %v, want ErrCacheDisabled", err)
	}
}
