package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"funding-radar/internal/bot"
	"funding-radar/internal/cache"
	"funding-radar/internal/collector"
	"funding-radar/internal/config"
	"funding-radar/internal/db"
	"funding-radar/internal/handler"
	"funding-radar/internal/job"
	"funding-radar/internal/provider"
	"funding-radar/internal/repository"
	"funding-radar/internal/service"
	"funding-radar/internal/timeseries"
	"funding-radar/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	_ "funding-radar/docs"
)

// @title           Funding Radar API
// @version         1.0
// @description     Perp funding-rate normalization and arbitrage detection across seven exchanges.

// @host      localhost:8080
// @BasePath  /
func main() {
	godotenv.Load()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db.InitPostgres(ctx, cfg.DatabaseURL)
	cache.InitRedis(ctx, cfg.RedisURL)

	tp, tracer, err := tracing.InitTracer(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	var snapshotRepo *repository.SnapshotRepository
	if db.Pool != nil {
		snapshotRepo = repository.NewSnapshotRepository(db.Pool, tracer)
		if err := snapshotRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
	}

	store, err := timeseries.NewStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open time-series store: %v", err)
	}

	vest := provider.NewVestAdapter(tracer)
	extended := provider.NewExtendedAdapter(tracer)
	hyperliquid := provider.NewHyperliquidAdapter(tracer)
	paradex := provider.NewParadexAdapter(tracer, cfg.MarketConcurrency)
	adapters := []provider.Adapter{
		vest,
		paradex,
		extended,
		hyperliquid,
		provider.NewBackpackAdapter(tracer, cfg.MarketConcurrency),
		provider.NewOrderlyAdapter(tracer),
		provider.NewHibachiAdapter(tracer, cfg.MarketConcurrency),
	}
	historyAdapters := []provider.HistoryAdapter{vest, paradex, extended, hyperliquid}

	col := collector.New(adapters, time.Duration(cfg.AdapterTimeoutSecs)*time.Second, tracer)
	backfiller := timeseries.NewBackfiller(store, historyAdapters, tracer)

	var sink service.SnapshotSink
	if snapshotRepo != nil {
		sink = snapshotRepo
	}
	fundingService := service.NewFundingService(
		tracer, col, sink, store, backfiller, cache.Client,
		time.Duration(cfg.CacheTTLSecs)*time.Second,
	)

	collectorJob := job.NewCollectorJob(tracer, fundingService, time.Duration(cfg.CollectIntervalSecs)*time.Second)
	go collectorJob.Start(ctx)

	queue := job.NewBackfillQueue(tracer, backfiller, cfg.BackfillWorkers)
	queue.Start(ctx)

	bot.StartTelegramBot(fundingService, cfg.TelegramBotToken)

	var snapshotReader handler.SnapshotReader
	if snapshotRepo != nil {
		snapshotReader = snapshotRepo
	}
	h := handler.New(tracer, fundingService, snapshotReader, backfiller, queue, cfg.CronSecret, cfg.BackfillTokens)

	r := gin.Default()
	r.Use(otelgin.Middleware("funding-radar"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()
	queue.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
