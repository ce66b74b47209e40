// Package sync exports replica snapshots into bundles and reconciles
// bundles from other replicas into the local store.
package sync

import (
	"context"
	"io"
	"log/slog"

	"github.com/iudanet/schoolsync/internal/bundle"
	"github.com/iudanet/schoolsync/internal/crdt"
	"github.com/iudanet/schoolsync/internal/metrics"
	"github.com/iudanet/schoolsync/internal/models"
	"github.com/iudanet/schoolsync/internal/storage"
)

// Store is the replica store as seen by synchronization
type Store interface {
	// View runs fn in a read transaction
	View(ctx context.Context, fn func(ctx context.Context, rec storage.Records) error) error
	// Update runs fn in one transaction, rolled back if fn fails
	Update(ctx context.Context, fn func(ctx context.Context, rec storage.Records) error) error
}

//go:generate moq -out journal_mock.go . Journal

// Journal хранит идентификатор реплики и журнал примененных бандлов
type Journal interface {
	ReplicaID(ctx context.Context) (string, error)
	SaveImport(ctx context.Context, entry *models.ImportEntry) error
	GetImport(ctx context.Context, bundleID string) (*models.ImportEntry, error)
}

//go:generate moq -out service_mock.go . Service

// Service определяет интерфейс синхронизации реплик
type Service interface {
	// Export пишет снимок реплики в границах scope
	Export(ctx context.Context, scope models.SyncScope, w io.Writer) (*bundle.Manifest, error)

	// ExportFile пишет снимок в файл атомарно (временный файл + rename)
	ExportFile(ctx context.Context, scope models.SyncScope, path string) (*bundle.Manifest, error)

	// Reconcile применяет бандл к локальному хранилищу одной транзакцией
	Reconcile(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error)

	// DryRun считает результат Reconcile и откатывает изменения
	DryRun(ctx context.Context, bundlePath, actor string) (*models.ReconciliationResult, error)

	// Preview сравнивает бандл с хранилищем без изменений
	Preview(ctx context.Context, bundlePath string) (*ConflictReport, error)
}

type service struct {
	store   Store
	journal Journal
	metrics *metrics.Registry
	clock   crdt.Clock
	logger  *slog.Logger
}

// Option configures the service
type Option func(*service)

// WithMetrics records run outcomes in reg
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *service) { s.metrics = reg }
}

// WithClock sets the clock for export and journal timestamps
func WithClock(c crdt.Clock) Option {
	return func(s *service) { s.clock = c }
}

// NewService creates a new sync service
func NewService(store Store, journal Journal, logger *slog.Logger, opts ...Option) Service {
	s := &service{
		store:   store,
		journal: journal,
		clock:   crdt.WallClock{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
