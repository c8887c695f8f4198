package documents

import "context"

// Collection is one flat record set keyed by the document's business key
// (reference number, or name for parties).
//
// Find returns sentinel.ErrNotFound when the key is absent; Save overwrites.
type Collection[T any] interface {
	Save(ctx context.Context, key string, doc T) error
	Find(ctx context.Context, key string) (T, error)
	List(ctx context.Context) ([]T, error)
	Delete(ctx context.Context, key string) error
}
