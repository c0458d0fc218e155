package cache

import (
	"math"
	"testing"

	"github.com/homestead/homestead/internal/model"
)

func TestHashIP(t *testing.T) {
	t.Parallel()

	ips := []string{"192.168.1.1", "192.168.1.2", "::1", "2001:db8::8a2e:370:7334", ""}
	seen := map[string]string{}
	for _, ip := range ips {
		h := hashIP(ip)
		if len(h) != 16 {
			t.Errorf("hashIP(%q) length = %d, want 16", ip, len(h))
		}
		if h != hashIP(ip) {
			t.Errorf("hashIP(%q) is not deterministic", ip)
		}
		if prev, ok := seen[h]; ok {
			t.Errorf("hashIP(%q) collides with %q", ip, prev)
		}
		seen[h] = ip
	}
}

func TestGCRAParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		perSecond     float64
		burst         int
		wantEmission  float64
		wantTolerance float64
	}{
		{"ten per second", 10, 20, 100, 1900},
		{"one per minute", 1.0 / 60, 5, 60000, 240000},
		{"burst of one", 2, 1, 500, 0},
		{"zero burst", 2, 0, 500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, tol := gcraParams(tt.perSecond, tt.burst)
			if math.Abs(e-tt.wantEmission) > 1e-6 || math.Abs(tol-tt.wantTolerance) > 1e-6 {
				t.Errorf("gcraParams(%v, %d) = %v, %v, want %v, %v", tt.perSecond, tt.burst, e, tol, tt.wantEmission, tt.wantTolerance)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"all brief", AllBriefKey(model.LangDE), "homepage:recipes:rezepte:all_brief"},
		{"tag", TagKey(model.LangEN, "bread"), "homepage:recipes:recipes:tag:bread"},
		{"in season", InSeasonKey(model.LangDE, 7), "homepage:recipes:rezepte:in_season:7"},
		{"category", CategoryKey(model.LangDE, "Brot"), "homepage:recipes:rezepte:category:Brot"},
		{"icon", IconKey(model.LangEN, "🍞"), "homepage:recipes:recipes:icon:🍞"},
		{"balance", BalanceKey("alice"), "homepage:cospend:balance:alice"},
		{"all balances", AllBalancesKey(), "homepage:cospend:balance:all"},
		{"debts", DebtsKey("alice"), "homepage:cospend:debts:alice"},
		{"payment list", PaymentListKey(20, 40), "homepage:cospend:payments:list:20:40"},
		{"payment", PaymentKey("01H"), "homepage:cospend:payment:01H"},
		{"favorites", FavoritesKey("bob"), "homepage:favorites:bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if tt.got != tt.expected {
				t.Errorf("key = %q, want %q", tt.got, tt.expected)
			}
		})
	}
}
