package app

import (
	"log/slog"

	"github.com/francis/platform/internal/alert"
	"github.com/francis/platform/internal/delivery"
	"github.com/francis/platform/internal/dispatch"
	"github.com/francis/platform/internal/handler"
	"github.com/francis/platform/internal/handlers"
	"github.com/francis/platform/internal/infra"
	"github.com/francis/platform/internal/policy"
	"github.com/francis/platform/internal/provider"
	"github.com/francis/platform/internal/queue"
	"github.com/francis/platform/internal/registry"
	"github.com/francis/platform/internal/repository"
	"github.com/francis/platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps holds everything New needs. Pool is nil when the audit archive is
// disabled.
type Deps struct {
	Cfg    *infra.Config
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// App is the assembled pipeline with its HTTP surface.
type App struct {
	Router    chi.Router
	Events    *service.EventService
	Processor *dispatch.Processor
	Mirror    *infra.KafkaProducer
	Ingest    *infra.KafkaIngest
	Alerts    *alert.Hub
}

// New wires the pipeline with explicit dependencies; no hidden globals.
func New(deps Deps) *App {
	cfg := deps.Cfg
	logger := deps.Logger

	// Core state
	q := queue.New(cfg.QueueCapacity)
	reg := registry.New()
	alerts := alert.NewHub(cfg.AlertHistory, logger)

	// Collaborators
	accountCache := provider.NewAccountCache()
	quoteCache := provider.NewQuoteCache()
	recalc := provider.NewRecalcScheduler()
	checker := &provider.ThresholdAnomalyChecker{Limit: cfg.AnomalyThreshold}
	push := provider.NewPushClient(cfg.PushGatewayURL, cfg.PushGatewayAPIKey, logger)
	profiles := provider.NewProfileStore()

	handlerReg := handlers.DefaultRegistry(accountCache, recalc, checker, push, profiles, quoteCache, logger)

	// Outbound
	deliverer := delivery.New(cfg.DeliveryTimeout, logger)
	mirror := infra.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaMirrorTopic, cfg.KafkaEnabled, logger)

	var audit dispatch.AuditSink
	if deps.Pool != nil {
		audit = repository.NewAuditSink(deps.Pool, repository.NewAuditRepository())
	}

	// Scheduler
	proc := dispatch.New(q, reg, handlerReg, deliverer, alerts, mirror, audit, dispatch.Config{
		TickInterval:   cfg.TickInterval,
		MaxConcurrent:  cfg.MaxConcurrent,
		HandlerTimeout: cfg.HandlerTimeout,
	}, logger)

	// Ingestion
	events := service.NewEventService(q, policy.PriorityPolicy{HighValueThreshold: cfg.HighValueThreshold}, proc.Trigger, logger)
	ingest := infra.NewKafkaIngest(cfg.KafkaBrokers, cfg.KafkaIngestTopic, cfg.KafkaGroupID, cfg.KafkaEnabled, events, logger)

	// HTTP surface
	eventHandler := handler.NewEventHandler(events, logger)
	subHandler := handler.NewSubscriptionHandler(reg, logger)
	adminHandler := handler.NewAdminHandler(events, alerts)

	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.JSONContentType)

	r.Get("/health", handler.HealthHandler(deps.Pool))

	r.Route("/events", func(r chi.Router) {
		r.Post("/", eventHandler.Enqueue)
		r.Post("/banking", eventHandler.EnqueueBanking)
		r.Post("/compliance", eventHandler.EnqueueCompliance)
		r.Post("/documents", eventHandler.EnqueueDocument)
		r.Post("/market-data", eventHandler.EnqueueMarketData)
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", subHandler.Subscribe)
		r.Get("/", subHandler.List)
		r.Delete("/{id}", subHandler.Unsubscribe)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/queue/stats", adminHandler.QueueStats)
		r.Get("/alerts", adminHandler.Alerts)
	})

	return &App{
		Router:    r,
		Events:    events,
		Processor: proc,
		Mirror:    mirror,
		Ingest:    ingest,
		Alerts:    alerts,
	}
}
