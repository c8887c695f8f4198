package activity

import "context"

// Store is the persistence port for the action trail. Append-only: no update
// or delete operations exist.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, error)
}
