package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"spendora/internal/amqp"
	"spendora/internal/backend"
	"spendora/internal/config"
	"spendora/internal/llm"
	"spendora/internal/log"
	"spendora/internal/services"
	"spendora/internal/sheets/google"
	"spendora/internal/sheets/memory"
	"spendora/internal/storage"
)

// ErrSheetsNotConfigured is returned by Exporter when no spreadsheet id is
// configured and a dry run was not requested.
var ErrSheetsNotConfigured = errors.New("no spreadsheet configured: set SPENDORA_SHEETS_SPREADSHEET_ID or use --dry-run")

// ErrEventsNotConfigured is returned by Events when no broker URL is set.
var ErrEventsNotConfigured = errors.New("no AMQP broker configured: set SPENDORA_AMQP_URL")

// App is the assembled object graph one command runs against.
type App struct {
	Config    *config.Config
	Store     *storage.Store
	Assistant *services.Assistant
	Location  *time.Location

	logger  *log.Logger
	cleanup backend.CleanupFunc
}

// Build opens the configured backend and wires the assistant. The model is
// constructed even without an API key; commands that call it check
// Config.RequireAPIKey first.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	store := storage.NewStore(res.KV)
	model := llm.NewOpenAIModel(llm.OpenAIConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: cfg.LLM.Timeout,
	})
	gateway := llm.New(model,
		llm.WithLocation(loc),
		llm.WithMaxImageSide(cfg.LLM.MaxImageSide))

	opts := []services.AssistantOption{services.WithTimezone(loc)}
	if res.Notifier != nil {
		opts = append(opts, services.WithNotifier(res.Notifier))
	}

	logger.DebugContext(ctx, "Application ready",
		log.FieldOperation, log.OpStartup,
		log.FieldBackend, bcfg.Type.String(),
		log.FieldModel, model.Name(),
		"notifications", res.Notifier != nil)

	return &App{
		Config:    cfg,
		Store:     store,
		Assistant: services.NewAssistant(store, gateway, opts...),
		Location:  loc,
		logger:    logger,
		cleanup:   res.Cleanup,
	}, nil
}

// Close releases the backend and the broker connection.
func (a *App) Close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	if err != nil {
		a.logger.Error("Cleanup failed", log.FieldOperation, log.OpShutdown, log.FieldError, err)
	}
	return err
}

// Exporter returns an exporter writing to the configured spreadsheet. With
// dryRun the rows go to an in-memory store which is returned for display.
func (a *App) Exporter(ctx context.Context, dryRun bool) (*services.Exporter, *memory.Store, error) {
	sc := a.Config.Sheets
	if dryRun {
		mem := memory.New()
		return services.NewExporter(a.Assistant, mem, sc.LedgerSheet, sc.RemindersSheet), mem, nil
	}
	if sc.SpreadsheetID == "" {
		return nil, nil, ErrSheetsNotConfigured
	}

	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   sc.SpreadsheetID,
		CredentialsJSON: sc.CredentialsJSON,
		CredentialsFile: sc.CredentialsFile,
	})
	if err != nil {
		return nil, nil, err
	}
	return services.NewExporter(a.Assistant, client, sc.LedgerSheet, sc.RemindersSheet), nil, nil
}

// Events connects a dedicated consumer to the configured broker.
func (a *App) Events() (*amqp.Client, error) {
	c := a.Config.AMQP
	if c.URL == "" {
		return nil, ErrEventsNotConfigured
	}
	client, err := amqp.NewClient(c.URL, c.Exchange, c.Queue)
	if err != nil {
		return nil, err
	}
	slog.Debug("Event consumer connected", log.FieldComponent, log.ComponentAMQP, "queue", c.Queue)
	return client, nil
}
