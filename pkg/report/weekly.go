package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shoshosho1210/coinrader/pkg/market"
)

// SymbolCount is one frequency-ranking entry.
type SymbolCount struct {
	Symbol string
	Count  int
}

// WeeklyIntelligence aggregates a window of daily snapshots into the
// figures the weekly note reports. Pointer fields are nil when the
// underlying data was absent for the whole window.
type WeeklyIntelligence struct {
	Days      int
	StartDate string
	EndDate   string

	BTCReturn *float64
	ETHReturn *float64

	FGIAvg    *float64
	FGILatest *int

	DomAvg    *float64
	DomChange float64

	RSILatest *float64

	AvgBreadth *float64

	TrendTop  []SymbolCount
	GainerTop []SymbolCount
}

// ComputeWeekly aggregates snapshots (oldest first) into the weekly
// figures. Returns nil when there are no snapshots.
func ComputeWeekly(snaps []*market.Snapshot) *WeeklyIntelligence {
	if len(snaps) == 0 {
		return nil
	}

	agg := &WeeklyIntelligence{
		Days:      len(snaps),
		StartDate: snaps[0].Summary.Date,
		EndDate:   snaps[len(snaps)-1].Summary.Date,
	}

	agg.BTCReturn = weeklyReturn(snaps, "bitcoin")
	agg.ETHReturn = weeklyReturn(snaps, "ethereum")

	var fgiValues []int
	var domValues []float64
	var rsiValues []float64
	var breadths []float64
	trendCounts := make(map[string]int)
	trendOrder := make([]string, 0)
	gainerCounts := make(map[string]int)
	gainerOrder := make([]string, 0)

	for _, snap := range snaps {
		fgiValues = append(fgiValues, snap.Summary.Sentiment.FGI)
		domValues = append(domValues, snap.Summary.Sentiment.BTCDominance)

		if tech := snap.Summary.Technical; tech != nil && tech.BTCRSI != nil {
			rsiValues = append(rsiValues, *tech.BTCRSI)
		}
		if breadth, ok := snap.Breadth(); ok {
			breadths = append(breadths, breadth)
		}

		for _, sym := range snap.Summary.TopMovers.Trending {
			if trendCounts[sym] == 0 {
				trendOrder = append(trendOrder, sym)
			}
			trendCounts[sym]++
		}
		if movers := snap.Summary.TopMovers.TopGainer; len(movers) > 0 {
			sym := strings.ToUpper(movers[0].Symbol)
			if gainerCounts[sym] == 0 {
				gainerOrder = append(gainerOrder, sym)
			}
			gainerCounts[sym]++
		}
	}

	if len(fgiValues) > 0 {
		sum := 0
		for _, v := range fgiValues {
			sum += v
		}
		avg := float64(sum) / float64(len(fgiValues))
		agg.FGIAvg = &avg
		latest := fgiValues[len(fgiValues)-1]
		agg.FGILatest = &latest
	}
	if len(domValues) > 0 {
		sum := 0.0
		for _, v := range domValues {
			sum += v
		}
		avg := sum / float64(len(domValues))
		agg.DomAvg = &avg
		if len(domValues) > 1 {
			agg.DomChange = domValues[len(domValues)-1] - domValues[0]
		}
	}
	if len(rsiValues) > 0 {
		latest := rsiValues[len(rsiValues)-1]
		agg.RSILatest = &latest
	}
	if len(breadths) > 0 {
		sum := 0.0
		for _, v := range breadths {
			sum += v
		}
		avg := sum / float64(len(breadths))
		agg.AvgBreadth = &avg
	}

	agg.TrendTop = mostCommon(trendCounts, trendOrder, 5)
	agg.GainerTop = mostCommon(gainerCounts, gainerOrder, 5)

	return agg
}

// weeklyReturn computes the percent change of a coin between the first
// and last snapshot of the window, nil when either price is missing.
func weeklyReturn(snaps []*market.Snapshot, coinID string) *float64 {
	start, sok := snaps[0].Price(coinID)
	end, eok := snaps[len(snaps)-1].Price(coinID)
	if !sok || !eok || start == 0 {
		return nil
	}
	ret := (end/start - 1) * 100
	return &ret
}

// mostCommon returns the n highest-count symbols, ties broken by first
// appearance in the window.
func mostCommon(counts map[string]int, order []string, n int) []SymbolCount {
	out := make([]SymbolCount, 0, len(order))
	for _, sym := range order {
		out = append(out, SymbolCount{Symbol: sym, Count: counts[sym]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// pct formats a percentage figure with sign, "—" when absent.
func pct(v *float64) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

// moodDescription classifies the index reading for the note body.
func moodDescription(fgi *int) string {
	switch {
	case fgi == nil:
		return "中立"
	case *fgi < 25:
		return "極度の恐怖（絶好の仕込み時）"
	case *fgi < 45:
		return "恐怖"
	case *fgi > 75:
		return "強欲（過熱注意）"
	default:
		return "中立"
	}
}

// MoodLabel is the short classification used in the announcement text.
func MoodLabel(fgi *int) string {
	switch {
	case fgi == nil:
		return "中立"
	case *fgi < 30:
		return "恐怖"
	case *fgi > 70:
		return "強欲"
	default:
		return "中立"
	}
}

// domDirection describes the dominance drift over the window.
func domDirection(change float64) string {
	switch {
	case change > 0.5:
		return "上昇（資金の集中）"
	case change < -0.5:
		return "低下（アルトへの分散）"
	default:
		return "横ばい"
	}
}

// RenderWeeklyNote renders the weekly intelligence note as markdown.
// siteURL is the dashboard link printed in the footer.
func RenderWeeklyNote(agg *WeeklyIntelligence, siteURL string) string {
	var lines []string

	lines = append(lines, "# CoinRader 週次マーケット・インテリジェンス")
	lines = append(lines, fmt.Sprintf("集計期間: %s 〜 %s (%d日間)", agg.StartDate, agg.EndDate, agg.Days))
	lines = append(lines, "")

	lines = append(lines, "## 1. 週間エグゼクティブ・サマリー")
	lines = append(lines, fmt.Sprintf("- **主要資産騰落率:** BTC %s / ETH %s", pct(agg.BTCReturn), pct(agg.ETHReturn)))
	fgiText := "—"
	if agg.FGILatest != nil {
		fgiText = fmt.Sprintf("%d", *agg.FGILatest)
	}
	lines = append(lines, fmt.Sprintf("- **市場の心理状態:** 指数 %s（%s）", fgiText, moodDescription(agg.FGILatest)))
	lines = append(lines, fmt.Sprintf("- **資金フロー:** BTCドミナンスは **%s** の傾向", domDirection(agg.DomChange)))
	lines = append(lines, "")

	lines = append(lines, "## 2. 需給・テクニカル分析")
	domAvg := 0.0
	if agg.DomAvg != nil {
		domAvg = *agg.DomAvg
	}
	lines = append(lines, fmt.Sprintf("- **BTCドミナンス:** 平均 %.2f%%", domAvg))
	if agg.RSILatest != nil {
		lines = append(lines, fmt.Sprintf("- **BTCテクニカル:** RSI(14)は **%.1f**。", *agg.RSILatest))
		lines = append(lines, fmt.Sprintf("  - 現在の価格水準はテクニカル的に「%s」を示唆しています。", rsiZone(*agg.RSILatest)))
	} else {
		lines = append(lines, "- **BTCテクニカル:** RSI(14)は **—**。")
	}
	breadth := 0.0
	if agg.AvgBreadth != nil {
		breadth = *agg.AvgBreadth
	}
	lines = append(lines, fmt.Sprintf("- **騰落分布:** 週間平均で市場の **%.1f%%** の銘柄が上昇。", breadth))
	lines = append(lines, "")

	lines = append(lines, "## 3. 今週の注目セクター & 銘柄")
	lines = append(lines, "### "+fireEmoji+" トレンド頻出（市場の関心）")
	for _, entry := range agg.TrendTop {
		lines = append(lines, fmt.Sprintf("- **%s**: 週内 %d回ランクイン", entry.Symbol, entry.Count))
	}
	lines = append(lines, "")
	lines = append(lines, "### "+rocketEmoji+" 急上昇の常連（強いモメンタム）")
	if len(agg.GainerTop) > 0 {
		for _, entry := range agg.GainerTop {
			lines = append(lines, fmt.Sprintf("- **%s**: 強い買い需要を確認", entry.Symbol))
		}
	} else {
		lines = append(lines, "- 特筆すべき急騰銘柄なし")
	}
	lines = append(lines, "")

	lines = append(lines, "## 4. 総評と来週の展望")
	lines = append(lines, weeklyOutlook(agg))
	lines = append(lines, "")
	lines = append(lines, "---")
	lines = append(lines, chartEmoji+" 詳細分析ダッシュボード: "+siteURL)
	lines = append(lines, "※ 本レポートはAIによる自動生成であり、投資助言ではありません。")

	return strings.Join(lines, "\n")
}

// rsiZone classifies the RSI reading.
func rsiZone(rsi float64) string {
	switch {
	case rsi < 30:
		return "売られすぎ（反発警戒）"
	case rsi > 70:
		return "買われすぎ（調整警戒）"
	default:
		return "中立圏内"
	}
}

// weeklyOutlook picks the closing read from the BTC return and dominance
// drift combination.
func weeklyOutlook(agg *WeeklyIntelligence) string {
	btcRet := 0.0
	if agg.BTCReturn != nil {
		btcRet = *agg.BTCReturn
	}
	switch {
	case btcRet > 0 && agg.DomChange < 0:
		return "今週はBTCが堅調な中でドミナンスが低下しており、典型的な「アルトコインへの資金循環」が見られました。"
	case btcRet < 0 && agg.DomChange > 0:
		return "全体的にリスクオフの動きが強く、資金がアルトからBTCへ退避する「クオリティへの逃避」が鮮明です。"
	default:
		return "市場は方向感を模索中ですが、RSIとFGIの乖離を注視する必要があります。"
	}
}

// RenderWeeklyAnnouncement renders the short announcement that points at
// the full note.
func RenderWeeklyAnnouncement(agg *WeeklyIntelligence, siteURL string) string {
	fgiText := "—"
	if agg.FGILatest != nil {
		fgiText = fmt.Sprintf("%d", *agg.FGILatest)
	}
	domAvg := 0.0
	if agg.DomAvg != nil {
		domAvg = *agg.DomAvg
	}
	highlights := make([]string, 0, 2)
	for i, entry := range agg.TrendTop {
		if i >= 2 {
			break
		}
		highlights = append(highlights, entry.Symbol)
	}

	lines := []string{
		"【週次マーケット分析レポート】",
		fmt.Sprintf("期間: %s〜%s", agg.StartDate, agg.EndDate),
		"",
		fmt.Sprintf("市場心理: %s (%s)", fgiText, MoodLabel(agg.FGILatest)),
		fmt.Sprintf("BTCドミナンス: %.1f%%", domAvg),
		fmt.Sprintf("注目銘柄: %s", strings.Join(highlights, ", ")),
		"",
		"\U0001F4DD 続きはサイトの週報をチェック",
		siteURL,
		"#暗号資産 #CoinRader",
	}
	return strings.Join(lines, "\n")
}
