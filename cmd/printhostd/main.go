package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orrn/printhost/internal/api"
	"github.com/orrn/printhost/internal/api/handlers"
	"github.com/orrn/printhost/internal/api/middleware"
	"github.com/orrn/printhost/internal/archive"
	"github.com/orrn/printhost/internal/config"
	"github.com/orrn/printhost/internal/coordinator"
	"github.com/orrn/printhost/internal/db"
	"github.com/orrn/printhost/internal/printing"
	"github.com/orrn/printhost/internal/render"
	"github.com/orrn/printhost/internal/spool"
	"github.com/orrn/printhost/internal/webhook"
)

// historyRecorder persists finished jobs into the print_history table.
type historyRecorder struct{}

func (historyRecorder) RecordPrintResult(ctx context.Context, res coordinator.Result) error {
	return db.Jobs.Insert(ctx, &db.PrintRecord{
		ID:            res.JobID.String(),
		Cookie:        res.Cookie,
		DeviceName:    res.DeviceName,
		SourceName:    res.SourceName,
		ExpectedPages: res.ExpectedPages,
		RenderedPages: res.RenderedPages,
		Success:       res.Success,
		ErrorMessage:  res.ErrorMessage,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	})
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[printhostd] failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[printhostd] invalid config: %v", err)
	}

	if err := db.Init(db.Config{Path: cfg.Database.Path}); err != nil {
		log.Fatalf("[printhostd] failed to initialize database: %v", err)
	}
	defer db.Close()

	var spooler printing.Spooler
	if cfg.Printing.SpoolerAddress != "" {
		spooler = spool.NewTCPSpooler(spool.Config{
			Address:           cfg.Printing.SpoolerAddress,
			ConnectionTimeout: cfg.Printing.ConnectionTimeout,
			WriteTimeout:      cfg.Printing.WriteTimeout,
		})
		log.Printf("[printhostd] spooling to %s", cfg.Printing.SpoolerAddress)
	} else {
		spooler = spool.Discard{}
		log.Printf("[printhostd] no spooler address configured, output is discarded")
	}

	queue := printing.NewJobQueue()
	engine := render.NewEngine(render.Config{
		SourceName:  cfg.Printing.SourceName,
		PageSize:    cfg.Printing.PageSize,
		RenderDelay: cfg.Printing.RenderDelay,
	}, queue)

	co := coordinator.New(engine, queue, spooler)
	co.SetPrintingEnabled(cfg.Printing.Enabled)
	engine.AttachSink(co.Post)

	sender := webhook.NewSender(webhookConfig(cfg))
	sender.Start()
	defer sender.Stop()

	svc := coordinator.NewService(co, historyRecorder{}, sender)
	svc.Start()
	defer svc.Stop()

	archiver := archive.NewArchiver(archive.Config{
		RetentionDays: cfg.Archive.RetentionDays,
		SweepInterval: cfg.Archive.SweepInterval,
	})
	archiver.Start()
	defer archiver.Stop()

	auth, err := middleware.NewAuthMiddleware()
	if err != nil {
		log.Fatalf("[printhostd] failed to initialize auth: %v", err)
	}

	router := api.NewRouter(
		auth,
		handlers.NewPrintHandler(svc, engine, cfg.Printing.DefaultDevice),
		handlers.NewJobHandler(),
		handlers.NewStatusHandler(svc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("[printhostd] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[printhostd] server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[printhostd] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[printhostd] server shutdown failed: %v", err)
	}
}

func webhookConfig(cfg *config.Config) webhook.Config {
	endpoints := make([]webhook.Endpoint, 0, len(cfg.Webhooks.Endpoints))
	for _, ep := range cfg.Webhooks.Endpoints {
		endpoints = append(endpoints, webhook.Endpoint{
			Name:   ep.Name,
			URL:    ep.URL,
			Secret: ep.Secret,
			Events: ep.Events,
		})
	}
	return webhook.Config{
		Endpoints:   endpoints,
		RetryCount:  cfg.Webhooks.RetryCount,
		RetryDelay:  cfg.Webhooks.RetryDelay,
		Timeout:     cfg.Webhooks.Timeout,
		WorkerCount: cfg.Webhooks.WorkerCount,
		QueueSize:   cfg.Webhooks.QueueSize,
	}
}
