// Package bootstrap opens the storage backend selected by configuration.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/repository"
	"github.com/freesideatlanta/member-portal/migrations"
	"github.com/freesideatlanta/member-portal/pkg/config"
	"github.com/freesideatlanta/member-portal/pkg/database"
)

// PersonStore is the person directory as used by the services.
type PersonStore interface {
	FindByID(ctx context.Context, id string) (*models.Person, error)
	FindByUsername(ctx context.Context, username string) (*models.Person, error)
	FindByLogin(ctx context.Context, login string) (*models.Person, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Person, error)
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int, error)
	Create(ctx context.Context, person *models.Person) error
	Update(ctx context.Context, person *models.Person) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	Deactivate(ctx context.Context, id string, leftOn time.Time) error
}

// AuditStore records and lists audit entries.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// ElectionStore persists elections and runs ballot transactions.
type ElectionStore interface {
	CreateElection(ctx context.Context, e *models.Election) error
	FindElection(ctx context.Context, id string) (*models.Election, error)
	ListElectionsEndingAfter(ctx context.Context, cutoff time.Time) ([]*models.Election, error)
	RunInTransaction(ctx context.Context, fn repository.TxFunc) error
}

// Storage bundles the stores of one backend.
type Storage struct {
	Persons   PersonStore
	Audit     AuditStore
	Elections ElectionStore

	db *sqlx.DB
}

// DB returns the SQL handle, or nil for the memory backend.
func (s *Storage) DB() *sqlx.DB { return s.db }

// Close releases the backend.
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RetryPolicy derives the ballot transaction retry policy from cfg.
func RetryPolicy(cfg config.ElectionsConfig) database.RetryPolicy {
	return database.RetryPolicy{MaxRetries: cfg.TxMaxRetries, Backoff: cfg.TxBackoff}
}

// OpenStorage connects the backend named by cfg.StorageDriver. With the
// postgres driver, migrate runs pending migrations first.
func OpenStorage(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (*Storage, error) {
	policy := RetryPolicy(cfg.Elections)

	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		logger.Warn("using in-memory storage; data is lost on exit")
		store := repository.NewMemoryStore(policy)
		return &Storage{Persons: store, Audit: store, Elections: store}, nil
	case config.StorageDriverPostgres, "":
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if migrate {
		if err := database.Migrate(ctx, db.DB, migrations.FS); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database migrations applied")
	}

	return &Storage{
		Persons:   repository.NewPersonRepository(db),
		Audit:     repository.NewAuditRepository(db),
		Elections: repository.NewElectionRepository(db, policy),
		db:        db,
	}, nil
}
