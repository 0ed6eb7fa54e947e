package journal

import "context"

// Store is the journal slice of the storage contract. It deliberately
// exposes only append and read operations: no update or delete exists, so no
// code path can rewrite a balance out from under the journal.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	GetByRef(ctx context.Context, userID string, kind TokenKind, externalRef string) (*Entry, error)
	SumDeltas(ctx context.Context, userID string, kind TokenKind) (int64, error)
	Query(ctx context.Context, userID string, kind TokenKind, opts QueryOpts) ([]*Entry, error)
}
