package filter

import (
	"context"
	"testing"
	"time"

	"github.com/tkingovr/companybook/internal/policy"
)

func TestRateLimiter_GlobalLimit(t *testing.T) {
	f := NewRateLimitFilter(RateLimit{Max: 2, Window: time.Minute})

	for _, name := range []string{"Acme", "Globex"} {
		fc := NewFilterContext(name)
		if err := f.Process(context.Background(), fc); err != nil {
			t.Fatal(err)
		}
		if fc.Halted {
			t.Errorf("insert of %s should not be rate limited", name)
		}
	}

	fc := NewFilterContext("Initech")
	if err := f.Process(context.Background(), fc); err != nil {
		t.Fatal(err)
	}
	if !fc.Halted {
		t.Error("3rd insert should hit global rate limit")
	}
	if fc.MatchedRule != "rate_limit:global" {
		t.Errorf("expected rule rate_limit:global, got %s", fc.MatchedRule)
	}
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	f := NewRateLimitFilter(RateLimit{Max: 1, Window: time.Minute})
	f.now = func() time.Time { return now }

	fc := NewFilterContext("Acme")
	f.Process(context.Background(), fc)
	if fc.Halted {
		t.Error("first insert should be allowed")
	}

	fc = NewFilterContext("Globex")
	f.Process(context.Background(), fc)
	if !fc.Halted {
		t.Error("second insert should be rate limited")
	}

	now = now.Add(61 * time.Second)

	fc = NewFilterContext("Initech")
	f.Process(context.Background(), fc)
	if fc.Halted {
		t.Error("insert after window expiry should be allowed")
	}
}

func TestRateLimiter_SkipsHalted(t *testing.T) {
	f := NewRateLimitFilter(RateLimit{Max: 1, Window: time.Minute})

	// Already denied requests do not consume the budget
	fc := NewFilterContext("test")
	fc.deny("block-test", "denied")
	f.Process(context.Background(), fc)
	if fc.MatchedRule != "block-test" {
		t.Errorf("halted context should keep its rule, got %s", fc.MatchedRule)
	}

	fc = NewFilterContext("Acme")
	f.Process(context.Background(), fc)
	if fc.Halted {
		t.Error("budget should not have been consumed by halted request")
	}
}

func TestRateLimiter_Reset(t *testing.T) {
	f := NewRateLimitFilter(RateLimit{Max: 1, Window: time.Minute})

	fc := NewFilterContext("Acme")
	f.Process(context.Background(), fc)

	f.Reset()

	fc = NewFilterContext("Globex")
	f.Process(context.Background(), fc)
	if fc.Halted {
		t.Error("after reset, insert should be allowed")
	}
}

func TestRateLimitFromPolicy(t *testing.T) {
	rl, err := RateLimitFromPolicy(nil)
	if err != nil || rl != nil {
		t.Fatalf("nil settings: got %v, %v", rl, err)
	}

	rl, err = RateLimitFromPolicy(&policy.RateLimitSettings{
		Global: &policy.RateLimitRule{Max: 30, Window: "1m"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rl.Max != 30 || rl.Window != time.Minute {
		t.Errorf("unexpected rate limit %+v", rl)
	}

	_, err = RateLimitFromPolicy(&policy.RateLimitSettings{
		Global: &policy.RateLimitRule{Max: 30, Window: "soon"},
	})
	if err == nil {
		t.Error("expected error for invalid window")
	}

	_, err = RateLimitFromPolicy(&policy.RateLimitSettings{
		Global: &policy.RateLimitRule{Max: 0, Window: "1m"},
	})
	if err == nil {
		t.Error("expected error for zero max")
	}
}
