package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ivanoskov/sg_finance_bot/internal/advice"
	"github.com/ivanoskov/sg_finance_bot/internal/bot"
	"github.com/ivanoskov/sg_finance_bot/internal/charts"
	"github.com/ivanoskov/sg_finance_bot/internal/config"
	"github.com/ivanoskov/sg_finance_bot/internal/logger"
	"github.com/ivanoskov/sg_finance_bot/internal/ops"
	"github.com/ivanoskov/sg_finance_bot/internal/repository"
	"github.com/ivanoskov/sg_finance_bot/internal/router"
	"github.com/ivanoskov/sg_finance_bot/internal/scheduler"
	"github.com/ivanoskov/sg_finance_bot/internal/service"
	"github.com/ivanoskov/sg_finance_bot/internal/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	if err := logger.Init(cfg.LogDevelopment, logger.LogLevel(cfg.LogLevel)); err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	lg := logger.Get()

	repo, err := newRepository(cfg)
	if err != nil {
		lg.Fatal("failed to open store", zap.Error(err))
	}
	defer repo.Close()

	feedback, err := newFeedbackRepository(cfg)
	if err != nil {
		lg.Fatal("failed to open feedback sink", zap.Error(err))
	}

	tracker := service.NewExpenseTracker(repo, cfg.Location())
	advisor := advice.NewAdvisor(
		advice.NewGeminiProvider(cfg.GeminiAPIKey, cfg.AdviceBaseURL, cfg.AdviceModel),
		cfg.AdviceTimeout,
	)
	rt := router.New(repo, tracker, advisor, feedback, charts.NewChartGenerator(), router.Options{
		MaxTextLength: cfg.MaxTextLength,
		MenuImagePath: cfg.MenuImagePath,
	})

	pool := worker.NewWorkerPool(cfg.QueueSize, cfg.LaneIdleTimeout)
	pool.Start()

	tg, err := bot.NewBot(cfg.TelegramToken, rt, pool)
	if err != nil {
		lg.Fatal("failed to start telegram bot", zap.Error(err))
	}

	sched, err := scheduler.New(cfg.ReminderSchedule, cfg.Location(), service.NewReminder(tracker, advisor, tg))
	if err != nil {
		lg.Fatal("failed to create scheduler", zap.Error(err))
	}
	sched.Start()

	var opsServer *ops.Server
	if cfg.OpsAddr != "" {
		opsServer = ops.NewServer(cfg.OpsAddr, pool)
		go func() {
			if err := opsServer.Start(); err != nil {
				lg.Error("ops server stopped", zap.Error(err))
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := tg.Start(ctx); err != nil {
			lg.Error("telegram polling stopped", zap.Error(err))
		}
	}()
	lg.Info("Bot is running",
		zap.String("store", cfg.StoreBackend),
		zap.String("feedback", cfg.FeedbackBackend),
		zap.Int("queue_size", cfg.QueueSize))

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	lg.Info("Shutting down")
	cancel()
	<-done
	sched.Stop()
	pool.Stop()

	if opsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			lg.Error("failed to stop ops server", zap.Error(err))
		}
	}
	lg.Info("Bot stopped")
}

func newRepository(cfg *config.Config) (repository.Repository, error) {
	if cfg.StoreBackend == config.BackendSQLite {
		return repository.NewSQLiteRepository(cfg.SQLitePath)
	}
	return repository.NewMemoryRepository(), nil
}

func newFeedbackRepository(cfg *config.Config) (repository.FeedbackRepository, error) {
	if cfg.FeedbackBackend == config.BackendSupabase {
		return repository.NewSupabaseFeedbackRepository(cfg.SupabaseURL, cfg.SupabaseKey)
	}
	return repository.NewCSVFeedbackRepository(cfg.FeedbackCSVPath), nil
}
