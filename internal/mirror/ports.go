package mirror

import (
	"context"

	"finbook/internal/core"
)

// Writer is the outbound port for mirroring transactions to an external
// ledger. Append returns an opaque reference to where the row landed.
type Writer interface {
	Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
}
