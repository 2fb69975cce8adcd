package database

import "context"

// Transactor runs fn inside a transaction carried by the context passed to
// fn. A call made while a transaction is already open runs as a savepoint
// of that transaction: an error from fn rolls back only fn's work.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	WithinSerializableTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
