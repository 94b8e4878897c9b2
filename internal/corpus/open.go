package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/resilience"
)

// Source is a corpus the index can be built from.
type Source interface {
	Lines(ctx context.Context, limit int) ([]string, error)
	String() string
}

var connectRetry = resilience.RetryConfig{MaxAttempts: 3, InitialDelay: 200 * time.Millisecond, JitterFraction: 0.1}

// Open returns the source selected by cfg.Source together with a function
// releasing its resources. A database that still cannot be reached after
// retrying is reported as ErrSourceUnavailable.
func Open(ctx context.Context, cfg config.CorpusConfig, pg config.PostgresConfig) (Source, func() error, error) {
	switch cfg.Source {
	case config.SourcePostgres:
		var client *postgres.Client
		err := resilience.Retry(ctx, "postgres-connect", connectRetry, func() error {
			var err error
			client, err = postgres.New(ctx, pg)
			return err
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
		}
		src, err := NewPostgresSource(client.DB, cfg.Table)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return src, client.Close, nil
	case config.SourceFile, "":
		return NewFileSource(cfg.Path), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.Source)
	}
}
