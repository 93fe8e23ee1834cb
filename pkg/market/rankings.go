package market

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// List sizes for the daily post sections.
const (
	TrendN = 3
	UpN    = 3
	VolN   = 3
)

// stableKeywords marks stablecoins excluded from the gainer and alt-volume
// rankings. Matching is by containment so wrapped variants (e.g. a bridged
// USDC) are excluded too.
var stableKeywords = []string{
	"usdt", "usdc", "dai", "tusd", "busd", "fdusd", "usde", "susde",
	"usdp", "pyusd", "gusd", "eurc", "usdd", "lusd", "frax",
}

// volAltExcluded keeps BTC and ETH out of the alt-volume ranking so it
// never degenerates into the same three majors every day.
var volAltExcluded = []string{"btc", "eth"}

// IsStable reports whether a symbol looks like a stablecoin.
func IsStable(symbol string) bool {
	s := strings.ToLower(symbol)
	if s == "" {
		return false
	}
	return lo.SomeBy(stableKeywords, func(k string) bool {
		return strings.Contains(s, k)
	})
}

// TrendingSymbols returns up to n uppercase trending symbols in rank order.
func TrendingSymbols(coins []TrendingCoin, n int) []string {
	symbols := lo.FilterMap(coins, func(c TrendingCoin, _ int) (string, bool) {
		return strings.ToUpper(c.Symbol), c.Symbol != ""
	})
	symbols = lo.Uniq(symbols)
	if len(symbols) > n {
		symbols = symbols[:n]
	}
	return symbols
}

// gainer is one gainer candidate with its sort keys.
type gainer struct {
	change float64
	volume float64
	label  string
}

// PickTopGainers returns up to n "SYM +X.X%" labels for the biggest 24h
// risers. Stablecoins are excluded. Candidates need 24h volume at or above
// minVolume; when too few clear the bar, the remainder is filled from the
// rest of the market ordered by volume so the list never comes up short on
// a quiet day.
func PickTopGainers(markets []Market, n int, minVolume float64) []string {
	var candidates, fallback []gainer

	for _, m := range markets {
		sym := strings.ToUpper(m.Symbol)
		if sym == "" || IsStable(sym) {
			continue
		}
		change, ok := m.Change24h()
		if !ok {
			continue
		}

		g := gainer{
			change: change,
			volume: m.TotalVolume,
			label:  fmt.Sprintf("%s %+.1f%%", sym, change),
		}
		if m.TotalVolume >= minVolume {
			candidates = append(candidates, g)
		}
		fallback = append(fallback, g)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].change != candidates[j].change {
			return candidates[i].change > candidates[j].change
		}
		return candidates[i].volume > candidates[j].volume
	})

	out := lo.Map(candidates, func(g gainer, _ int) string { return g.label })
	if len(out) > n {
		out = out[:n]
	}

	if len(out) < n {
		sort.SliceStable(fallback, func(i, j int) bool {
			if fallback[i].volume != fallback[j].volume {
				return fallback[i].volume > fallback[j].volume
			}
			return fallback[i].change > fallback[j].change
		})
		for _, g := range fallback {
			if len(out) >= n {
				break
			}
			if !lo.Contains(out, g.label) {
				out = append(out, g.label)
			}
		}
	}

	return out
}

// PickTopVolumeAlt returns up to n symbols with the highest 24h volume,
// excluding BTC, ETH, and stablecoins.
func PickTopVolumeAlt(markets []Market, n int) []string {
	eligible := lo.Filter(markets, func(m Market, _ int) bool {
		sym := strings.ToLower(m.Symbol)
		if sym == "" || IsStable(sym) {
			return false
		}
		return !lo.Contains(volAltExcluded, sym)
	})

	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].TotalVolume > eligible[j].TotalVolume
	})

	symbols := lo.Map(eligible, func(m Market, _ int) string {
		return strings.ToUpper(m.Symbol)
	})
	if len(symbols) > n {
		symbols = symbols[:n]
	}
	return symbols
}
