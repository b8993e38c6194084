package config

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/catalpa-lab/secondbrain/pkg/domain/interfaces"
	"github.com/catalpa-lab/secondbrain/pkg/memory/chromem"
	"github.com/catalpa-lab/secondbrain/pkg/memory/pgvector"
	"github.com/catalpa-lab/secondbrain/pkg/repository/postgres"
	"github.com/catalpa-lab/secondbrain/pkg/repository/sqlite"
	"github.com/catalpa-lab/secondbrain/pkg/utils/logging"
	"github.com/catalpa-lab/secondbrain/pkg/utils/safe"
)

// Backend holds CLI flags for the storage mode. Local mode keeps everything
// in files (SQLite + chromem); cloud mode points both stores at one
// PostgreSQL database with pgvector. The mode is fixed at startup.
type Backend struct {
	backend     string
	sqlitePath  string
	chromemPath string
	databaseURL string
	poolSize    int64
}

func (x *Backend) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Storage backend mode (local or cloud)",
			Value:       "local",
			Sources:     cli.EnvVars("SECONDBRAIN_BACKEND"),
			Destination: &x.backend,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file for conversations (local mode)",
			Value:       "./data/brain.db",
			Sources:     cli.EnvVars("SECONDBRAIN_SQLITE_PATH"),
			Destination: &x.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "chromem-path",
			Usage:       "chromem database directory for memory (local mode)",
			Value:       "./data/memory",
			Sources:     cli.EnvVars("SECONDBRAIN_CHROMEM_PATH"),
			Destination: &x.chromemPath,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection URL (cloud mode, requires pgvector)",
			Sources:     cli.EnvVars("SECONDBRAIN_DATABASE_URL"),
			Destination: &x.databaseURL,
		},
		&cli.Int64Flag{
			Name:        "db-pool-size",
			Usage:       "Maximum PostgreSQL connections per pool (cloud mode)",
			Value:       4,
			Sources:     cli.EnvVars("SECONDBRAIN_DB_POOL_SIZE"),
			Destination: &x.poolSize,
		},
	}
}

// Configure builds the conversation store and memory backend for the
// selected mode. The caller owns Close on both.
func (x *Backend) Configure(ctx context.Context) (interfaces.ConversationStore, interfaces.MemoryBackend, error) {
	switch x.backend {
	case "local":
		convs, err := sqlite.New(x.sqlitePath)
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open sqlite conversation store")
		}
		mem, err := chromem.New(x.chromemPath)
		if err != nil {
			safe.Close(ctx, convs)
			return nil, nil, goerr.Wrap(err, "failed to open chromem memory backend")
		}
		logging.Default().Info("Using local storage",
			"sqlite_path", x.sqlitePath,
			"chromem_path", x.chromemPath,
		)
		return convs, mem, nil

	case "cloud":
		if x.databaseURL == "" {
			return nil, nil, goerr.New("database-url is required when using cloud backend")
		}
		convs, err := postgres.New(ctx, x.databaseURL, int32(x.poolSize))
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to open postgres conversation store")
		}
		mem, err := pgvector.New(ctx, x.databaseURL, int32(x.poolSize))
		if err != nil {
			safe.Close(ctx, convs)
			return nil, nil, goerr.Wrap(err, "failed to open pgvector memory backend")
		}
		logging.Default().Info("Using cloud storage", "pool_size", x.poolSize)
		return convs, mem, nil

	default:
		return nil, nil, goerr.New("invalid storage backend", goerr.V("backend", x.backend))
	}
}
