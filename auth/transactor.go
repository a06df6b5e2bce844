package auth

import "context"

// Transactor delimits the all-or-nothing units of the reset-password
// flows. Implementations bind a storage transaction to the context and
// roll every mutation back when fn returns an error.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTransactor runs fn without any transactional boundary. Suitable for
// collaborators whose storage has no transaction support (in-memory
// fakes, single-key stores).
type NopTransactor struct{}

func (NopTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
