package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RowSet is a table materialised as rows of text values. Columns keep the
// source order and every row has one value per column.
type RowSet struct {
	Table   string
	Columns []string
	Rows    [][]string
}

// RowSource provides every row of a named table at startup.
type RowSource interface {
	LoadTable(ctx context.Context, table string) (*RowSet, error)
}

// EntityFilter is a filter expression over named columns: each clause accepts
// any of its values (case-insensitive), clauses are ANDed.
type EntityFilter struct {
	Clauses []FilterClause
}

type FilterClause struct {
	Column string
	Values []string
}

// EntityQuery selects columns from the rows that match Filter. An empty
// Columns list selects every column. When KeyColumn is set the query is an
// exact, case-sensitive match of that column against Key.
type EntityQuery struct {
	Columns   []string
	Filter    EntityFilter
	KeyColumn string
	Key       string
}

// EntityStore is the in-memory working copy of the knowledge base.
type EntityStore interface {
	Load(ctx context.Context, rows *RowSet) error
	Select(ctx context.Context, table string, q EntityQuery) ([]Entity, error)
	Update(ctx context.Context, table, keyColumn, key string, set map[string]string) error
	// Modify reads the columns of one row and writes back the values returned
	// by fn while holding the store's write lock.
	Modify(ctx context.Context, table, keyColumn, key string, columns []string,
		fn func(current Entity) (map[string]string, error)) error
	Columns(table string) ([]string, error)
}

// Geocoder resolves free-text addresses to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Coordinates, error)
}

// KnowledgeBase is what the belief tracker needs from the domain accessor.
type KnowledgeBase interface {
	FindEntities(ctx context.Context, constraints Constraints, extraSlots ...string) ([]Entity, error)
	OpeningHours(ctx context.Context, entityID string) (OpeningHours, error)
}

// Dialogue is a tracked conversation and its belief state.
type Dialogue struct {
	ID             uuid.UUID    `json:"id"`
	State          *BeliefState `json:"beliefstate"`
	StartedAt      time.Time    `json:"started_at"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// DialogueStore keeps the active dialogues of this process.
type DialogueStore interface {
	Create(ctx context.Context, d *Dialogue) error
	Get(ctx context.Context, id uuid.UUID) (*Dialogue, error)
	Save(ctx context.Context, d *Dialogue) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteIdle(ctx context.Context, before time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}
