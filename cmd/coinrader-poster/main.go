package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/shoshosho1210/coinrader/pkg/analytics"
	"github.com/shoshosho1210/coinrader/pkg/config"
	"github.com/shoshosho1210/coinrader/pkg/market"
	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/report"
	"github.com/shoshosho1210/coinrader/pkg/storage"
)

var (
	dailySchedule  = flag.String("daily-schedule", getEnv("POSTER_DAILY_SCHEDULE", "5 7 * * *"), "Cron schedule for the daily post (JST morning by default)")
	weeklySchedule = flag.String("weekly-schedule", getEnv("POSTER_WEEKLY_SCHEDULE", "30 7 * * 0"), "Cron schedule for the weekly note (Sunday)")
	rollupSchedule = flag.String("rollup-schedule", getEnv("POSTER_ROLLUP_SCHEDULE", "5 0 * * *"), "Cron schedule for click stats rollups")
	alertSchedule  = flag.String("alert-schedule", getEnv("POSTER_ALERT_SCHEDULE", "0 */6 * * *"), "Cron schedule for analytics alert checks")
	runOnce        = flag.Bool("run-once", false, "Run the daily pipeline once and exit (for testing and backfills)")
	runWeekly      = flag.Bool("weekly", false, "With --run-once, also generate the weekly note")
	postDate       = flag.String("date", "", "Date to generate (YYYY-MM-DD, JST). If empty, today. Only used with --run-once")
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// poster owns the scheduled content and rollup jobs.
type poster struct {
	cfg        *config.Config
	log        *logrus.Logger
	metrics    *observability.Metrics
	builder    *market.Builder
	store      *market.Store
	publisher  report.Publisher
	redis      *storage.RedisClient
	aggregator *analytics.Aggregator
	alerter    *analytics.Alerter
	owner      string
}

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	files, err := storage.NewLocalFiles(cfg.Storage.DataDir)
	if err != nil {
		log.WithError(err).Fatal("Failed to open content root")
	}

	redisClient, err := storage.NewRedisClient(cfg.Storage)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, running without poster locks or shared cache")
		redisClient = nil
	}

	// Market data: live client behind the two-level cache
	cg := market.NewClient(cfg.Market.CoinGeckoAPIKey, nil, market.WithMetrics(metrics))
	var source market.Source = cg
	if cfg.Storage.CacheEnabled {
		source = market.NewCache(cg, redisClient, cfg.Storage, nil, metrics)
	}
	fng := market.NewFearGreedClient(market.DefaultFearGreedURL, metrics)

	// Publish locally, and to S3 when configured
	publishers := report.MultiPublisher{report.NewLocalPublisher(files)}
	if cfg.Storage.S3Enabled {
		s3, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			log.WithError(err).Fatal("S3 enabled but client creation failed")
		}
		publishers = append(publishers, report.NewS3Publisher(s3, "", nil))
	}

	p := &poster{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		builder:   market.NewBuilder(source, fng, cfg.Market.MinGainersVolumeJPY, nil),
		store:     market.NewStore(files, nil),
		publisher: publishers,
		redis:     redisClient,
		owner:     uuid.NewString(),
	}

	// Rollups need the database; the content pipeline does not. A poster
	// deployed without CR_DATABASE_URL still publishes posts.
	if cfg.Storage.DatabaseURL != "" {
		connManager, err := storage.NewConnectionManager(cfg.Storage, nil)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to database")
		}
		defer connManager.Close()
		if err := analytics.EnsureSchema(context.Background(), connManager.Primary(), connManager.Driver()); err != nil {
			log.WithError(err).Fatal("Failed to ensure click schema")
		}
		p.aggregator = analytics.NewAggregator(connManager.Primary())
		p.alerter = analytics.NewAlerter(connManager.Primary())
	} else {
		log.Warn("No database configured, rollup and alert jobs disabled")
	}

	if *runOnce {
		date := time.Now().In(market.JST)
		if *postDate != "" {
			date, err = time.ParseInLocation("2006-01-02", *postDate, market.JST)
			if err != nil {
				log.WithError(err).Fatal("Invalid date")
			}
		}

		if err := p.runDaily(context.Background(), date); err != nil {
			log.WithError(err).Fatal("Daily pipeline failed")
		}
		if *runWeekly {
			if err := p.runWeekly(context.Background()); err != nil {
				log.WithError(err).Fatal("Weekly note failed")
			}
		}
		log.Info("Run-once completed")
		return
	}

	c := cron.New(cron.WithLocation(market.JST))

	mustSchedule(log, c, *dailySchedule, "daily post", func() {
		if err := p.runDaily(context.Background(), time.Now().In(market.JST)); err != nil {
			log.WithError(err).Error("Daily pipeline failed")
		}
	})
	mustSchedule(log, c, *weeklySchedule, "weekly note", func() {
		if err := p.runWeekly(context.Background()); err != nil {
			log.WithError(err).Error("Weekly note failed")
		}
	})
	if p.aggregator != nil {
		mustSchedule(log, c, *rollupSchedule, "stats rollup", func() {
			yesterday := time.Now().UTC().AddDate(0, 0, -1)
			if err := p.runRollup(context.Background(), yesterday); err != nil {
				log.WithError(err).Error("Stats rollup failed")
			}
		})
		mustSchedule(log, c, *alertSchedule, "alert checks", func() {
			if err := p.alerter.CheckAllAlerts(context.Background()); err != nil {
				log.WithError(err).Error("Alert checks failed")
			}
		})
	}

	// Metrics for the scheduled jobs on the health port
	healthMux := http.NewServeMux()
	observability.RegisterMetricsEndpoint(healthMux, registry)
	go func() {
		addr := cfg.Server.Host + ":" + cfg.Server.HealthPort
		if err := http.ListenAndServe(addr, healthMux); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Metrics server failed")
		}
	}()

	c.Start()
	log.WithFields(logrus.Fields{
		"daily":  *dailySchedule,
		"weekly": *weeklySchedule,
		"rollup": *rollupSchedule,
	}).Info("coinrader poster started")

	waitForSignal(log)

	ctx := c.Stop()
	<-ctx.Done()
	log.Info("Poster stopped")
}

func waitForSignal(log *logrus.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.WithField("signal", sig.String()).Info("Shutting down")
}

func mustSchedule(log *logrus.Logger, c *cron.Cron, spec, name string, job func()) {
	if _, err := c.AddFunc(spec, job); err != nil {
		log.WithError(err).Fatalf("Failed to schedule %s", name)
	}
}

// runDaily builds the day's snapshot, renders the post and share page,
// and publishes everything.
func (p *poster) runDaily(ctx context.Context, date time.Time) error {
	dateDash := date.In(market.JST).Format("2006-01-02")
	dateCompact := date.In(market.JST).Format("20060102")
	log := p.log.WithField("date", dateDash)

	// With replicated posters only one may publish a given day
	if p.redis != nil {
		ok, err := p.redis.AcquireLock(ctx, "poster:daily:"+dateCompact, p.owner, time.Hour)
		if err != nil {
			log.WithError(err).Warn("Poster lock check failed, continuing")
		} else if !ok {
			log.Info("Another poster already owns today's post, skipping")
			return nil
		}
	}

	snap, err := p.builder.Build(ctx, date)
	if err != nil {
		p.recordPublish("daily_post", err)
		return fmt.Errorf("building snapshot: %w", err)
	}
	if _, err := p.store.Save(snap); err != nil {
		p.recordPublish("daily_post", err)
		return fmt.Errorf("saving snapshot: %w", err)
	}

	page, err := report.BuildSharePage(p.cfg.Market.SiteBaseURL, dateCompact, dateDash)
	if err != nil {
		p.recordPublish("share_page", err)
		return fmt.Errorf("rendering share page: %w", err)
	}
	sharePath := p.cfg.Market.ShareDir + "/" + page.Name
	if err := p.publisher.Publish(ctx, sharePath, page.HTML, "text/html; charset=utf-8"); err != nil {
		p.recordPublish("share_page", err)
		return fmt.Errorf("publishing share page: %w", err)
	}
	p.recordPublish("share_page", nil)

	link := page.URL
	if !p.cfg.Market.UseShareURLInPost {
		link = p.cfg.Market.SiteBaseURL + "/"
	}
	post := report.RenderDailyPost(report.DailyPostInput{
		DateDash:  dateDash,
		Trending:  snap.Summary.TopMovers.Trending,
		Gainers:   market.PickTopGainers(snap.RawData, market.UpN, p.cfg.Market.MinGainersVolumeJPY),
		VolumeAlt: snap.Summary.TopMovers.TopVolumeAlt,
		Link:      link,
	})

	// The short variant carries the same text today; the workflow that
	// consumes these files expects both names.
	artifacts := map[string]string{
		"daily_post_full.txt":  post,
		"daily_post_short.txt": post,
		"daily_share_url.txt":  page.URL,
	}
	for name, content := range artifacts {
		if err := p.publisher.Publish(ctx, name, []byte(content), "text/plain; charset=utf-8"); err != nil {
			p.recordPublish("daily_post", err)
			return fmt.Errorf("publishing %s: %w", name, err)
		}
	}
	p.recordPublish("daily_post", nil)

	log.WithField("share_url", page.URL).Info("Daily post published")
	return nil
}

// runWeekly aggregates the recent snapshots into the weekly note and its
// announcement text.
func (p *poster) runWeekly(ctx context.Context) error {
	days := p.cfg.Market.WeekDays
	snaps, err := p.store.LoadLast(days)
	if err != nil {
		p.recordPublish("weekly_note", err)
		return fmt.Errorf("loading snapshots: %w", err)
	}

	agg := report.ComputeWeekly(snaps)
	if agg == nil {
		p.log.Warn("No snapshots available, skipping weekly note")
		return nil
	}

	note := report.RenderWeeklyNote(agg, p.cfg.Market.ShareSiteURL)
	announcement := report.RenderWeeklyAnnouncement(agg, p.cfg.Market.ShareSiteURL)

	if err := p.publisher.Publish(ctx, "weekly_note_draft.md", []byte(note), "text/markdown; charset=utf-8"); err != nil {
		p.recordPublish("weekly_note", err)
		return fmt.Errorf("publishing weekly note: %w", err)
	}
	if err := p.publisher.Publish(ctx, "weekly_summary.txt", []byte(announcement), "text/plain; charset=utf-8"); err != nil {
		p.recordPublish("weekly_note", err)
		return fmt.Errorf("publishing weekly summary: %w", err)
	}
	p.recordPublish("weekly_note", nil)

	p.log.WithFields(logrus.Fields{
		"days":  agg.Days,
		"start": agg.StartDate,
		"end":   agg.EndDate,
	}).Info("Weekly note published")
	return nil
}

// runRollup aggregates one day of click events into the stats tables.
func (p *poster) runRollup(ctx context.Context, date time.Time) error {
	start := time.Now()
	err := p.aggregator.AggregateAll(ctx, date)

	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.RollupRunsTotal.WithLabelValues("daily", status).Inc()
	p.metrics.RollupDuration.WithLabelValues("daily").Observe(time.Since(start).Seconds())

	if err != nil {
		return err
	}
	p.log.WithField("date", date.Format("2006-01-02")).Info("Stats rollup completed")
	return nil
}

func (p *poster) recordPublish(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.metrics.PostsPublishedTotal.WithLabelValues(kind, status).Inc()
}
