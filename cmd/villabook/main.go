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

	"villabook/internal/booking"
	"villabook/internal/config"
	"villabook/internal/database"
	"villabook/internal/events"
	"villabook/internal/ledger"
	"villabook/internal/metrics"
	"villabook/internal/models"
	"villabook/internal/notify"
	"villabook/internal/pricing"
	"villabook/internal/registry"
	"villabook/internal/report"
	"villabook/internal/sweeper"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	seedPath := flag.String("seed", "", "seed seasons from a YAML file and exit")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("VILLABOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.New(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	if *seedPath != "" {
		if err := seedSeasons(context.Background(), db, *seedPath); err != nil {
			logger.Fatal().Err(err).Msg("seed seasons failed")
		}
		logger.Info().Str("path", *seedPath).Msg("seasons seeded")
		return
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ldg := ledger.New(rdb, &logger)
	if _, err := ldg.Provision(ctx, time.Now(), cfg.HorizonDays()); err != nil {
		logger.Fatal().Err(err).Msg("provision horizon failed")
	}

	catalog := pricing.NewCatalog(db, &logger)
	reg := registry.New(db, &logger)
	bus := events.NewEventBus()

	svc := booking.NewService(ldg, catalog, reg, db, bus, booking.Options{
		HoldWindow:           cfg.HoldWindow(),
		SuggestionWindowDays: cfg.SuggestionWindowDays(),
		MaxSuggestions:       cfg.MaxSuggestions(),
	}, &logger)

	forwarder := notify.NewForwarder(bus, &logNotifier{logger: &logger},
		cfg.Notify.RatePerSecond, cfg.Notify.Burst, cfg.Notify.QueueSize, &logger)
	go forwarder.Run(ctx)

	sw := sweeper.New(svc, cfg.SweepInterval(), &logger)
	go sw.Start(ctx)

	if cfg.Backup.Enabled {
		backupDir := cfg.Backup.Dir
		if backupDir == "" {
			backupDir = "data/backups"
		}
		go db.RunBackups(ctx, database.BackupOptions{
			Dir:           backupDir,
			Interval:      cfg.BackupInterval(),
			RetentionDays: cfg.Backup.RetentionDays,
		})
	}

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	exporter := report.NewExporter(db, &logger)
	go startOpsServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, exporter, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Msg("villabook core started")
	<-ctx.Done()
	sw.Stop()
	logger.Info().Msg("villabook core stopped")
}

// logNotifier stands in for the external notification collaborator at
// this process boundary: delivery is their job, we only hand over facts.
type logNotifier struct {
	logger *zerolog.Logger
}

func (n *logNotifier) Notify(_ context.Context, eventType string, payload []byte) error {
	n.logger.Info().Str("event", eventType).RawJSON("payload", payload).Msg("domain event")
	return nil
}

func startOpsServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, exporter *report.Exporter, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(ctxPing).Err(); err != nil {
			http.Error(w, "redis not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/export.xlsx", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := exporter.WriteXLSX(r.Context(), w); err != nil {
			logger.Error().Err(err).Msg("export failed")
			http.Error(w, "export failed", http.StatusInternalServerError)
		}
	})

	runServer(ctx, fmt.Sprintf(":%d", port), mux, "ops", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	runServer(ctx, fmt.Sprintf(":%d", port), mux, "metrics", logger)
}

func runServer(ctx context.Context, addr string, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msgf("%s server listening", name)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}

type seedFile struct {
	Seasons []struct {
		SeasonID      string `yaml:"season_id"`
		Name          string `yaml:"name"`
		StartDate     string `yaml:"start_date"`
		EndDate       string `yaml:"end_date"`
		NightlyRate   int64  `yaml:"nightly_rate"`
		MinimumNights int    `yaml:"minimum_nights"`
		CleaningFee   int64  `yaml:"cleaning_fee"`
		Active        *bool  `yaml:"active"`
	} `yaml:"seasons"`
}

func seedSeasons(ctx context.Context, db *database.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	for _, s := range file.Seasons {
		start, err := models.ParseDate(s.StartDate)
		if err != nil {
			return err
		}
		end, err := models.ParseDate(s.EndDate)
		if err != nil {
			return err
		}
		active := true
		if s.Active != nil {
			active = *s.Active
		}
		season := models.SeasonRate{
			SeasonID:      s.SeasonID,
			Name:          s.Name,
			StartDate:     start,
			EndDate:       end,
			NightlyRate:   s.NightlyRate,
			MinimumNights: s.MinimumNights,
			CleaningFee:   s.CleaningFee,
			Active:        active,
		}
		if err := db.InsertSeason(ctx, season); err != nil {
			return fmt.Errorf("season %s: %w", s.SeasonID, err)
		}
	}
	return nil
}
