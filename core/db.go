package core

import (
	"context"
)

// Transactor runs a unit of work atomically.
// fn must use the context it is given so that repositories join the transaction;
// nested calls join the outer transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
