package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"staybook/internal/app/commands"
	availabilityapp "staybook/internal/app/handlers/availability"
	bookingapp "staybook/internal/app/handlers/booking"
	pricingapp "staybook/internal/app/handlers/pricing"
	referralapp "staybook/internal/app/handlers/referral"
	"staybook/internal/app/middleware"
	appoutbox "staybook/internal/app/outbox"
	"staybook/internal/app/queries"
	"staybook/internal/app/uow"
	domainpricing "staybook/internal/domain/pricing"
	domainreferral "staybook/internal/domain/referral"
	domainunits "staybook/internal/domain/units"
	"staybook/internal/infra/broker/kafka"
	"staybook/internal/infra/cache"
	"staybook/internal/infra/config"
	mongodb "staybook/internal/infra/db/mongo"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
	infraoutbox "staybook/internal/infra/outbox"
	"staybook/internal/infra/pms"
	"staybook/internal/infra/quotes"
	"staybook/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := getenv("STAYBOOK_FIXTURES", filepath.Join("data", "fixtures.json"))
	if err := app.loadFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", fixturesPath)
	}

	for _, run := range app.background {
		go run(ctx)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	background []func(context.Context)
	ready      func() error

	units      domainunits.Repository
	parties    domainreferral.PartyRepository
	incentives domainreferral.IncentiveRepository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	pmsClient := &pms.Client{
		HTTP:     &http.Client{Timeout: cfg.PMSTimeout},
		BaseURL:  cfg.PMSBaseURL,
		QuoteURL: cfg.PMSQuoteURL,
		Retry:    pms.RetryPolicy{Backoff: cfg.RetryBackoff},
		Logger:   logger,
	}
	snapshots := cache.NewSnapshotStore(pmsClient, cfg.SnapshotTTL, logger)
	quoteTokens := quotes.NewStore(cfg.QuoteTokenTTL)
	idStore := memory.NewIdempotencyStore()

	var (
		app        application
		uowFactory uow.UoWFactory
		outboxImpl appoutbox.Outbox
	)
	app.ready = func() error { return nil }

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		app.units = mongodb.NewUnitRepository(client.DB)
		app.parties = mongodb.NewPartyRepository(client.DB)
		app.incentives = mongodb.NewIncentiveRepository(client.DB)
		attributions := mongodb.NewAttributionRepository(client.DB)
		ledger := mongodb.NewLedgerRepository(client.DB)
		uowFactory = mongodb.Factory{
			DB:               client.DB,
			UnitsRepo:        app.units,
			PartiesRepo:      app.parties,
			IncentivesRepo:   app.incentives,
			AttributionsRepo: attributions,
			LedgerRepo:       ledger,
		}
		store := infraoutbox.NewStore(client.DB)
		outboxImpl = store
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka producer: %w", err)
			}
			worker := &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Source:      "app://staybook",
				Backoff:     cfg.RetryBackoff,
			}
			app.background = append(app.background, func(ctx context.Context) {
				if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("outbox worker stopped", "error", err)
				}
			})
		}
	default:
		unitsRepo := memory.NewUnitRepository()
		partiesRepo := memory.NewPartyRepository()
		incentivesRepo := memory.NewIncentiveRepository()
		attributionsRepo := memory.NewAttributionRepository()
		ledgerRepo := memory.NewLedgerRepository()
		app.units = unitsRepo
		app.parties = partiesRepo
		app.incentives = incentivesRepo
		uowFactory = memory.Factory{
			UnitsRepo:        unitsRepo,
			PartiesRepo:      partiesRepo,
			IncentivesRepo:   incentivesRepo,
			AttributionsRepo: attributionsRepo,
			LedgerRepo:       ledgerRepo,
		}
		outboxImpl = memory.NewOutbox()
	}

	if len(cfg.KafkaBrokers) > 0 {
		handler := &kafka.CalendarInvalidationHandler{Snapshots: snapshots, Logger: logger}
		consumer, err := kafka.NewConsumer(cfg.KafkaBrokers, "staybook-calendar", nil, handler)
		if err != nil {
			return application{}, fmt.Errorf("kafka consumer: %w", err)
		}
		topic := cfg.KafkaTopicPrefix + "pms.calendar.v1"
		app.background = append(app.background, func(ctx context.Context) {
			if err := consumer.Run(ctx, []string{topic}); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("calendar consumer stopped", "error", err)
			}
		})
	}

	engine := &domainpricing.Engine{
		Quotes: pmsClient,
		Fees: domainpricing.FeeSchedule{
			CleaningFeeCents:  cfg.CleaningFeeCents,
			PetFeeCents:       cfg.PetFeeCents,
			TaxPercent:        cfg.TaxPercent,
			ChannelFeePercent: cfg.ChannelFeePercent,
		},
		DefaultNightlyCents: cfg.DefaultNightly,
		Logger:              logger,
	}
	resolver := domainreferral.Resolver{Parties: app.parties, Incentives: app.incentives}
	encoder := appoutbox.JSONEventEncoder{}

	commandBus := commands.NewInMemoryBus()
	attributionHandler := &referralapp.AttributeBookingHandler{
		UoWFactory: uowFactory,
		Resolver:   resolver,
		Outbox:     outboxImpl,
		Encoder:    encoder,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, referralapp.AttributeBookingCommand{}.Key(), attributionHandler)
	confirmHandler := &bookingapp.ConfirmBookingHandler{
		UoWFactory:  uowFactory,
		Snapshots:   snapshots,
		Tokens:      quoteTokens,
		Attribution: attributionHandler,
		Outbox:      outboxImpl,
		Encoder:     encoder,
		Logger:      logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.ConfirmBookingCommand{}.Key(), confirmHandler)
	createRuleHandler := &referralapp.CreateRuleHandler{UoWFactory: uowFactory}
	commands.RegisterHandler(commandBus, referralapp.CreateRuleCommand{}.Key(), createRuleHandler)
	ledgerStatusHandler := &referralapp.UpdateLedgerStatusHandler{
		UoWFactory: uowFactory,
		Outbox:     outboxImpl,
		Encoder:    encoder,
	}
	commands.RegisterHandler(commandBus, referralapp.UpdateLedgerStatusCommand{}.Key(), ledgerStatusHandler)

	queryBus := queries.NewInMemoryBus()
	checkHandler := &availabilityapp.CheckRangeHandler{
		UoWFactory: uowFactory,
		Snapshots:  snapshots,
		Pricing:    engine,
		Logger:     logger,
	}
	queries.RegisterHandler(queryBus, availabilityapp.CheckRangeQuery{}.Key(), checkHandler)
	quoteHandler := &pricingapp.QuoteStayHandler{
		UoWFactory: uowFactory,
		Snapshots:  snapshots,
		Pricing:    engine,
		Tokens:     quoteTokens,
		Resolver:   resolver,
		Logger:     logger,
	}
	queries.RegisterHandler(queryBus, pricingapp.QuoteStayQuery{}.Key(), quoteHandler)
	listRulesHandler := &referralapp.ListRulesHandler{UoWFactory: uowFactory}
	queries.RegisterHandler(queryBus, referralapp.ListRulesQuery{}.Key(), listRulesHandler)
	reportHandler := &referralapp.CommissionReportHandler{UoWFactory: uowFactory}
	queries.RegisterHandler(queryBus, referralapp.CommissionReportQuery{}.Key(), reportHandler)

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(outboxImpl),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	app.handlers = ginserver.Handlers{
		Availability: ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware},
		Pricing:      ginserver.PricingHandler{Queries: queryBusWithMiddleware},
		Booking:      ginserver.BookingHandler{Commands: commandBusWithMiddleware},
		Referral:     ginserver.ReferralHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
	}
	return app, nil
}

type fixtureFile struct {
	Units   []unitFixture  `json:"units"`
	Parties []partyFixture `json:"parties"`
}

type unitFixture struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Currency           string `json:"currency"`
	BaseNightlyCents   int64  `json:"base_nightly_cents"`
	GuestsLimit        int    `json:"guests_limit"`
	PetsAllowed        bool   `json:"pets_allowed"`
	DefaultMinimumStay int    `json:"default_minimum_stay"`
	ExternalRef        string `json:"external_ref"`
}

type partyFixture struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Code            string  `json:"code"`
	DiscountKind    string  `json:"discount_kind"`
	DiscountValue   float64 `json:"discount_value"`
	CommissionKind  string  `json:"commission_kind"`
	CommissionValue float64 `json:"commission_value"`
}

func (a application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Units {
		unit := &domainunits.Unit{
			ID:                 domainunits.UnitID(fx.ID),
			Name:               fx.Name,
			Currency:           fx.Currency,
			BaseNightlyRate:    fx.BaseNightlyCents,
			GuestsLimit:        fx.GuestsLimit,
			PetsAllowed:        fx.PetsAllowed,
			DefaultMinimumStay: fx.DefaultMinimumStay,
			ExternalRef:        fx.ExternalRef,
		}
		if err := unit.Validate(); err != nil {
			logger.Error("unit fixture invalid", "unit_id", fx.ID, "error", err)
			continue
		}
		if err := a.units.Save(ctx, unit); err != nil {
			logger.Error("cannot store unit fixture", "unit_id", fx.ID, "error", err)
			continue
		}
		logger.Info("unit fixture imported", "unit_id", unit.ID)
	}

	for _, fx := range fixtures.Parties {
		party := &domainreferral.ReferringParty{
			ID:        domainreferral.PartyID(fx.ID),
			Name:      fx.Name,
			Code:      fx.Code,
			Active:    true,
			CreatedAt: now,
		}
		if err := a.parties.Save(ctx, party); err != nil {
			logger.Error("cannot store party fixture", "party_id", fx.ID, "error", err)
			continue
		}
		rule := &domainreferral.IncentiveRule{
			ID:            domainreferral.RuleID(fx.ID + "-rule"),
			PartyID:       party.ID,
			GuestDiscount: domainreferral.Rate{Kind: domainreferral.RateKind(fx.DiscountKind), Value: fx.DiscountValue},
			Commission:    domainreferral.Rate{Kind: domainreferral.RateKind(fx.CommissionKind), Value: fx.CommissionValue},
			Active:        true,
			CreatedAt:     now,
		}
		if err := rule.Validate(); err != nil {
			logger.Error("incentive fixture invalid", "party_id", fx.ID, "error", err)
			continue
		}
		if err := a.incentives.Save(ctx, rule); err != nil {
			logger.Error("cannot store incentive fixture", "party_id", fx.ID, "error", err)
			continue
		}
		logger.Info("referral fixture imported", "party_id", party.ID, "code", party.Code)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
