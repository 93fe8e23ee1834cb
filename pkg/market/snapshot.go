package market

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/storage"
)

// JST is the timezone the site publishes in; snapshot dates and filenames
// follow it regardless of where the poster runs.
var JST = time.FixedZone("JST", 9*60*60)

// snapshotDir is the directory under the content root holding one JSON
// document per day.
const snapshotDir = "daily"

// Sentiment is the day's market mood reading.
type Sentiment struct {
	FGI          int     `json:"fgi"`
	BTCDominance float64 `json:"btc_dominance"`
}

// Technical carries the day's technical indicators. BTCRSI is nil when the
// chart fetch failed or the series was too short.
type Technical struct {
	BTCRSI *float64 `json:"btc_rsi"`
}

// Mover is one top-gainer entry.
type Mover struct {
	Symbol    string  `json:"symbol"`
	ChangePct float64 `json:"change_pct"`
}

// TopMovers lists the day's ranked coins.
type TopMovers struct {
	Trending     []string `json:"trending"`
	TopGainer    []Mover  `json:"top_gainer"`
	TopVolumeAlt []string `json:"top_volume_alt"`
}

// Summary is the digest the weekly note aggregates.
type Summary struct {
	Date      string     `json:"date"`
	Sentiment Sentiment  `json:"sentiment"`
	Technical *Technical `json:"technical,omitempty"`
	TopMovers TopMovers  `json:"top_movers"`
}

// Snapshot is one day of market data: the digest plus the raw market rows
// it was derived from.
type Snapshot struct {
	Summary Summary  `json:"summary"`
	RawData []Market `json:"raw_data"`
}

// Price returns the current price of a coin by CoinGecko id, and whether
// the snapshot carries that coin.
func (s *Snapshot) Price(coinID string) (float64, bool) {
	for _, m := range s.RawData {
		if m.ID == coinID {
			return m.CurrentPrice, true
		}
	}
	return 0, false
}

// Breadth returns the percentage of snapshot coins with a positive 24h
// change, and false when the snapshot has no raw rows.
func (s *Snapshot) Breadth() (float64, bool) {
	if len(s.RawData) == 0 {
		return 0, false
	}
	ups := 0
	for _, m := range s.RawData {
		if change, ok := m.Change24h(); ok && change > 0 {
			ups++
		}
	}
	return float64(ups) / float64(len(s.RawData)) * 100, true
}

// Builder assembles one day's snapshot from the market data sources.
type Builder struct {
	source    Source
	fearGreed *FearGreedClient
	minVolume float64
	logger    *observability.Logger
}

// NewBuilder creates a snapshot builder. minVolume is the 24h volume bar
// for the gainer ranking.
func NewBuilder(source Source, fearGreed *FearGreedClient, minVolume float64, logger *observability.Logger) *Builder {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Builder{
		source:    source,
		fearGreed: fearGreed,
		minVolume: minVolume,
		logger:    logger.WithField("component", "snapshot"),
	}
}

// Build fetches the day's data and assembles a snapshot dated at now in
// JST. Trending and markets are required; sentiment and technical inputs
// degrade to neutral/absent values so a partial upstream outage still
// produces a usable snapshot.
func (b *Builder) Build(ctx context.Context, now time.Time) (*Snapshot, error) {
	var (
		trending []TrendingCoin
		markets  []Market
		closes   []float64
		dom      float64
		fgi      FearGreed
		domErr   error
		fgiErr   error
		rsiErr   error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		trending, err = b.source.Trending(gctx)
		return err
	})
	g.Go(func() (err error) {
		markets, err = b.source.Markets(gctx)
		return err
	})
	g.Go(func() error {
		dom, domErr = b.source.BTCDominance(gctx)
		return nil
	})
	g.Go(func() error {
		closes, rsiErr = b.source.BTCDailyCloses(gctx, DefaultRSIPeriod*2+1)
		return nil
	})
	g.Go(func() error {
		if b.fearGreed == nil {
			fgiErr = fmt.Errorf("fear & greed client not configured")
			return nil
		}
		fgi, fgiErr = b.fearGreed.Latest(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("snapshot build failed: %w", err)
	}

	if domErr != nil {
		b.logger.WithError(domErr).Warn("BTC dominance unavailable, recording zero")
		dom = 0
	}
	if fgiErr != nil {
		b.logger.WithError(fgiErr).Warn("Fear & Greed index unavailable, recording neutral")
		fgi = FearGreed{Value: 50, Classification: "Neutral"}
	}

	snap := &Snapshot{
		Summary: Summary{
			Date: now.In(JST).Format("2006-01-02"),
			Sentiment: Sentiment{
				FGI:          fgi.Value,
				BTCDominance: dom,
			},
			TopMovers: TopMovers{
				Trending:     TrendingSymbols(trending, TrendN),
				TopGainer:    topGainerMovers(markets, UpN, b.minVolume),
				TopVolumeAlt: PickTopVolumeAlt(markets, VolN),
			},
		},
		RawData: markets,
	}

	if rsiErr != nil {
		b.logger.WithError(rsiErr).Warn("BTC chart unavailable, skipping RSI")
	} else if rsi, ok := RSI(closes, DefaultRSIPeriod); ok {
		snap.Summary.Technical = &Technical{BTCRSI: &rsi}
	}

	return snap, nil
}

// topGainerMovers mirrors PickTopGainers but keeps structured entries for
// the snapshot instead of display labels.
func topGainerMovers(markets []Market, n int, minVolume float64) []Mover {
	labels := PickTopGainers(markets, n, minVolume)
	movers := make([]Mover, 0, len(labels))
	for _, label := range labels {
		sym, _, _ := strings.Cut(label, " ")
		for _, m := range markets {
			if strings.EqualFold(m.Symbol, sym) {
				change, _ := m.Change24h()
				movers = append(movers, Mover{Symbol: sym, ChangePct: change})
				break
			}
		}
	}
	return movers
}

// Store persists snapshots as data/daily/YYYYMMDD.json documents.
type Store struct {
	files  *storage.LocalFiles
	logger *observability.Logger
}

// NewStore creates a snapshot store over the content root.
func NewStore(files *storage.LocalFiles, logger *observability.Logger) *Store {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Store{files: files, logger: logger.WithField("component", "snapshot_store")}
}

// Save writes the snapshot under its JST date and returns the file path.
func (s *Store) Save(snap *Snapshot) (string, error) {
	date, err := time.ParseInLocation("2006-01-02", snap.Summary.Date, JST)
	if err != nil {
		return "", fmt.Errorf("snapshot has invalid date %q: %w", snap.Summary.Date, err)
	}
	rel := path.Join(snapshotDir, date.Format("20060102")+".json")
	return s.files.WriteJSON(rel, snap)
}

// LoadLast returns up to n most recent snapshots in date order, oldest
// first. Files that do not look like date-named snapshots or that fail to
// parse are skipped, matching how a half-written file from a crashed run
// should not poison the weekly aggregate.
func (s *Store) LoadLast(n int) ([]*Snapshot, error) {
	names, err := s.files.List(snapshotDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var dated []string
	for _, name := range names {
		if isSnapshotName(name) {
			dated = append(dated, name)
		}
	}
	sort.Strings(dated)
	if len(dated) > n {
		dated = dated[len(dated)-n:]
	}

	out := make([]*Snapshot, 0, len(dated))
	for _, name := range dated {
		var snap Snapshot
		if err := s.files.ReadJSON(path.Join(snapshotDir, name), &snap); err != nil {
			s.logger.WithError(err).WithField("file", name).Warn("Skipping unreadable snapshot")
			continue
		}
		out = append(out, &snap)
	}
	return out, nil
}

// isSnapshotName reports whether a filename is an 8-digit date .json.
func isSnapshotName(name string) bool {
	if !strings.HasSuffix(name, ".json") || len(name) < 13 {
		return false
	}
	for _, r := range name[:8] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
