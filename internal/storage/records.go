package storage

import (
	"context"
	"time"

	"github.com/iudanet/schoolsync/internal/models"
)

// Records is schema-driven row access to the replica store.
// All values are canonical text (see models.Kind).
type Records interface {
	// Find returns the row whose key columns equal key.
	// An empty key value matches NULL or empty text.
	// Returns ErrRecordNotFound if there is none.
	Find(ctx context.Context, s *models.Schema, key models.Record) (models.Record, error)

	// FindAll returns every row whose key columns equal key, ordered by id
	FindAll(ctx context.Context, s *models.Schema, key models.Record) ([]models.Record, error)

	// Exists checks that a row with id exists in the table of type t
	Exists(ctx context.Context, t models.EntityType, id int64) (bool, error)

	// Insert stores rec verbatim, including its id when present
	Insert(ctx context.Context, s *models.Schema, rec models.Record) (int64, error)

	// Update writes changes into the row with id
	Update(ctx context.Context, s *models.Schema, id int64, changes models.Record) error

	// Create inserts a locally created row: mints uid and stamps timestamps
	Create(ctx context.Context, s *models.Schema, rec models.Record) (int64, error)

	// Edit applies a local edit and stamps the modification time
	Edit(ctx context.Context, s *models.Schema, id int64, changes models.Record) error

	// Delete removes the row and, first, everything it owns.
	// Returns the number of deleted rows per type.
	Delete(ctx context.Context, s *models.Schema, id int64) (map[models.EntityType]int, error)

	// IDs lists the ids of s within the boundary of scope, ascending
	IDs(ctx context.Context, s *models.Schema, scope models.SyncScope) ([]int64, error)

	// Scan calls fn for every row of s within the boundary of scope, ordered by id
	Scan(ctx context.Context, s *models.Schema, scope models.SyncScope, fn func(models.Record) error) error

	// ScanView calls fn for every row of view v for one group
	ScanView(ctx context.Context, v *models.View, groupID int64, fn func(models.Record) error) error

	// MembershipFor returns the membership of a person in a group, active first.
	// Returns ErrRecordNotFound if the person is not a member.
	MembershipFor(ctx context.Context, personID, groupID int64) (int64, error)

	// Savepoint runs fn so that a failure discards only what fn wrote
	Savepoint(ctx context.Context, fn func(ctx context.Context) error) error
}

// Clock stamps local changes and observes the timestamps of imported ones.
type Clock interface {
	Now() time.Time
	Observe(t time.Time)
}
