package httpx

import (
	"testing"
	"time"
)

func TestMemoryRateLimiterDeniesPastLimit(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	policy := ratePolicy{Limit: 3, Window: time.Minute}
	for i := 1; i <= 3; i++ {
		d := rl.Allow("ip:10.0.0.1", policy)
		if !d.allowed {
			t.Fatalf("request %d should be within budget", i)
		}
		if d.count != i {
			t.Fatalf("expected count %d, got %d", i, d.count)
		}
	}
	d := rl.Allow("ip:10.0.0.1", policy)
	if d.allowed {
		t.Fatal("fourth request should be denied")
	}
	if d.count != 3 {
		t.Fatalf("denied decision should report the window count, got %d", d.count)
	}
}

func TestMemoryRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	policy := ratePolicy{Limit: 1, Window: time.Minute}
	if d := rl.Allow("ip:10.0.0.1", policy); !d.allowed {
		t.Fatal("first key should be allowed")
	}
	if d := rl.Allow("ip:10.0.0.1", policy); d.allowed {
		t.Fatal("first key should be exhausted")
	}
	if d := rl.Allow("ip:10.0.0.2", policy); !d.allowed {
		t.Fatal("second key has its own window")
	}
}

func TestMemoryRateLimiterWindowExpiryResets(t *testing.T) {
	rl := NewMemoryRateLimiter()
	defer rl.Close()

	policy := ratePolicy{Limit: 1, Window: 20 * time.Millisecond}
	if d := rl.Allow("admin:abc", policy); !d.allowed {
		t.Fatal("first request should be allowed")
	}
	if d := rl.Allow("admin:abc", policy); d.allowed {
		t.Fatal("second request inside the window should be denied")
	}
	time.Sleep(30 * time.Millisecond)
	if d := rl.Allow("admin:abc", policy); !d.allowed {
		t.Fatal("request after window expiry should start a fresh window")
	}
}

func TestMemoryRateLimiterSweepDropsExpiredWindows(t *testing.T) {
	rl := NewMemoryRateLimiter().(*memoryRateLimiter)
	defer rl.Close()

	policy := ratePolicy{Limit: 5, Window: time.Minute}
	rl.Allow("ip:10.0.0.1", policy)
	rl.Allow("ip:10.0.0.2", policy)

	rl.sweep(time.Now().Add(2 * time.Minute))

	rl.mu.Lock()
	remaining := len(rl.windows)
	rl.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected sweep to drop expired windows, %d remain", remaining)
	}
}

func TestMemoryRateLimiterCloseIsIdempotent(t *testing.T) {
	rl := NewMemoryRateLimiter()
	rl.Close()
	rl.Close()
}

func TestRatePolicyWithDefaults(t *testing.T) {
	p := ratePolicy{Limit: 10}.withDefaults()
	if p.Window != time.Minute {
		t.Fatalf("expected default window of one minute, got %v", p.Window)
	}
}

func TestRateMetricKeyStripsIdentity(t *testing.T) {
	if got := rateMetricKey("admin:1f6b"); got != "admin" {
		t.Fatalf("expected admin, got %q", got)
	}
	if got := rateMetricKey("ip:10.0.0.1"); got != "ip" {
		t.Fatalf("expected ip, got %q", got)
	}
}
