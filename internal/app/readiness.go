package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/fairyhunter13/company-investigation/internal/domain"
)

// BuildReadinessChecks assembles the /readyz probes for the API process:
// the database pool and the message bus must both answer.
func BuildReadinessChecks(pool *pgxpool.Pool, kafka *kgo.Client) map[string]func(domain.Context) error {
	return map[string]func(domain.Context) error{
		"postgres": func(ctx domain.Context) error { return pool.Ping(ctx) },
		"redpanda": func(ctx domain.Context) error { return kafka.Ping(ctx) },
	}
}
