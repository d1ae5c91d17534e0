// README: Entry point; loads config, wires the meter, tariff and trip services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"firebase.google.com/go/v4/db"

	"autometer/internal/ai"
	"autometer/internal/config"
	httptransport "autometer/internal/http"
	"autometer/internal/infra"
	"autometer/internal/maps"
	"autometer/internal/modules/location"
	"autometer/internal/modules/meter"
	"autometer/internal/modules/pricing"
	"autometer/internal/modules/tariff"
	"autometer/internal/observability/metrics"
	"autometer/internal/service"
)

const stopAllTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("meter-api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	var (
		rdb    *redis.Client
		dbPool *pgxpool.Pool
		fbDB   *db.Client
		err    error
	)
	if cfg.Redis.Addr != "" {
		rdb, err = infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer rdb.Close()
	}
	if cfg.DB.DSN != "" {
		dbPool, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return err
		}
		defer dbPool.Close()
	}
	if cfg.Firebase.DatabaseURL != "" {
		fbDB, err = infra.NewFirebaseDB(ctx, cfg.Firebase.DatabaseURL, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
	}

	store, err := tariffStore(ctx, cfg, rdb, dbPool)
	if err != nil {
		return err
	}
	tariffs := tariff.NewService(store, logger.Named("tariff"))
	if _, err := tariffs.Refresh(ctx); err != nil {
		// Keep serving with the defaults; the refresher retries.
		logger.Warn("initial tariff load failed", zap.Error(err))
	}

	prices := pricing.NewService(tariffs, pricing.NewClock(cfg.Location()))

	meterCfg := meter.DefaultConfig()
	meterCfg.TickInterval = cfg.Meter.TickInterval
	meterCfg.Bounds = location.Bounds{MinKm: cfg.Meter.FilterMinKm, MaxKm: cfg.Meter.FilterMaxKm}
	meterCfg.SourceOptions.MinInterval = cfg.Meter.PositionMinInterval
	meterCfg.SourceOptions.MinDistanceM = cfg.Meter.PositionMinDistanceM
	meters := meter.NewService(prices, location.NewFactory(rdb, fbDB), meterCfg, logger.Named("meter"))

	deps := httptransport.ServerDeps{
		Meters:  meters,
		Tariffs: tariffs,
		Log:     logger,
	}

	if cfg.Maps.APIKey != "" {
		client, err := maps.NewClient(cfg.Maps.APIKey)
		if err != nil {
			return err
		}
		opts := maps.Options{Country: cfg.Maps.Country, Language: cfg.Maps.Language, Timeout: cfg.Maps.Timeout}
		routes := maps.NewRouteService(client, opts)

		var parser ai.TripQueryParser
		if cfg.AI.GeminiKey != "" {
			gemini, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey)
			if err != nil {
				return err
			}
			defer gemini.Close()
			parser = gemini
		}

		deps.Trips = service.NewTripPlanner(routes, prices, tariffs, parser, cfg.Location(), logger.Named("trips"))
		deps.Autocomplete = service.NewAutocompleter(maps.NewPlacesService(client, opts), cfg.Maps.AutocompleteDebounce, cfg.Maps.Country)
		deps.Geocoder = routes
	} else {
		logger.Info("METER_MAPS_API_KEY not set; trip estimates disabled")
	}

	server := httptransport.NewServer(cfg.HTTP.Addr, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tariffs.RunRefresher(gctx, cfg.Tariff.Refresh)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), stopAllTimeout)
		defer cancel()
		meters.StopAll(stopCtx)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("meter-api stopped")
	return nil
}

func tariffStore(ctx context.Context, cfg config.Config, rdb *redis.Client, dbPool *pgxpool.Pool) (tariff.Store, error) {
	switch cfg.Tariff.Backend {
	case config.TariffBackendRedis:
		return tariff.NewRedisStore(rdb), nil
	case config.TariffBackendPostgres:
		store := tariff.NewPostgresStore(dbPool)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return tariff.NewMemoryStore(), nil
	}
}
