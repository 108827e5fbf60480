// Package backend selects and builds the mirror transport from configuration.
package backend

import (
	"context"
	"fmt"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/mirror"
	"fintrack/internal/mirror/google"
	"fintrack/internal/mirror/queue"
	"fintrack/internal/mirror/webhook"
)

// Type represents the configured mirror transport.
type Type string

const (
	None    Type = "none"
	Webhook Type = "webhook"
	Sheets  Type = "sheets"
	AMQP    Type = "amqp"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the transport type is valid
func (t Type) IsValid() bool {
	switch t {
	case None, Webhook, Sheets, AMQP:
		return true
	default:
		return false
	}
}

// CleanupFunc releases transport resources at shutdown.
type CleanupFunc func() error

// Result contains the transport instance and optional cleanup function. A
// nil Transport means mirroring is disabled.
type Result struct {
	Transport mirror.Transport
	Cleanup   CleanupFunc
}

// Factory creates mirror transports based on configuration
type Factory struct {
	logger *log.Logger
}

// NewFactory creates a new transport factory
func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateTransport builds the mirror transport named by cfg.MirrorBackend.
func (f *Factory) CreateTransport(ctx context.Context, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	t := Type(cfg.MirrorBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid mirror backend: %s", cfg.MirrorBackend)
	}

	switch t {
	case None:
		f.logger.Info("Mirroring disabled")
		return &Result{}, nil
	case Webhook:
		return f.createWebhookTransport(cfg)
	case Sheets:
		return f.createSheetsTransport(ctx, cfg)
	case AMQP:
		return f.createAMQPTransport(cfg)
	default:
		return nil, fmt.Errorf("unsupported mirror backend: %s", t)
	}
}

func (f *Factory) createWebhookTransport(cfg *config.Config) (*Result, error) {
	client, err := webhook.New(cfg.MirrorWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize webhook mirror: %w", err)
	}

	f.logger.Info("Initialized webhook mirror", "url", cfg.MirrorWebhookURL)
	return &Result{Transport: client}, nil
}

func (f *Factory) createSheetsTransport(ctx context.Context, cfg *config.Config) (*Result, error) {
	client, err := google.New(ctx, google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets mirror: %w", err)
	}

	f.logger.Info("Initialized Google Sheets mirror", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return &Result{Transport: client}, nil
}

func (f *Factory) createAMQPTransport(cfg *config.Config) (*Result, error) {
	client, err := queue.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP mirror: %w", err)
	}

	f.logger.Info("Initialized AMQP mirror",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return &Result{Transport: client, Cleanup: client.Close}, nil
}
