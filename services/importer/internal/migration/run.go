package migration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stoik/taskbridge/services/importer/internal/destination"
	"github.com/stoik/taskbridge/services/importer/internal/provider"
	"github.com/stoik/taskbridge/services/importer/internal/ratelimit"
)

// Credentials of one import run
type Credentials struct {
	DestinationToken string
	TeamID           string
	Token            string
	AppKey           string
}

// RunConfig holds the non-secret settings of a run
type RunConfig struct {
	DestinationHost string
	SourceURL       string
	Timeout         time.Duration
	RateBudget      int
	RateWindow      time.Duration
	Logger          *zap.Logger
}

// Validate checks that every credential the source needs is present. Field
// names match the configuration keys.
func Validate(source string, creds Credentials) error {
	src, ok := provider.Lookup(source)
	if !ok {
		return fmt.Errorf("unknown source %q", source)
	}
	if strings.TrimSpace(creds.DestinationToken) == "" {
		return &ConfigurationError{Field: "destination.token"}
	}
	for _, field := range src.InputFields {
		value := creds.Token
		if field == "app_key" {
			value = creds.AppKey
		}
		if strings.TrimSpace(value) == "" {
			return &ConfigurationError{Field: "source." + field}
		}
	}
	if strings.TrimSpace(creds.TeamID) == "" {
		return &ConfigurationError{Field: "team_id"}
	}
	return nil
}

// RunImport validates the credentials, then imports everything the source
// exposes into the destination team. The returned error is nil on success;
// item-level failures are only reported through the result and the log.
func RunImport(ctx context.Context, source string, creds Credentials, cfg RunConfig) (*Result, error) {
	if err := Validate(source, creds); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	// every vendor HTTP request is charged to the limiter, including each
	// page of a paginated listing
	limiter := ratelimit.New(cfg.RateBudget, cfg.RateWindow)
	src, err := provider.New(source, provider.Credentials{Token: creds.Token, AppKey: creds.AppKey},
		provider.Options{
			BaseURL:   cfg.SourceURL,
			Timeout:   cfg.Timeout,
			Transport: ratelimit.NewTransport(nil, limiter, cfg.Logger.With(zap.String("source", source))),
		})
	if err != nil {
		return nil, err
	}

	dest := destination.NewClient(destination.Config{
		BaseURL: cfg.DestinationHost,
		Token:   creds.DestinationToken,
		Timeout: cfg.Timeout,
	})

	pipeline := NewPipeline(dest, src, Options{TeamID: creds.TeamID, Logger: cfg.Logger})
	return pipeline.Run(ctx)
}
