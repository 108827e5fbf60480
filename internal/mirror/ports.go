// Package mirror replicates entity collections to an external store on a
// best-effort basis. Delivery is a notification of record, not a
// synchronization protocol: it is never retried, ordered, deduplicated or
// awaited, and its outcome has no effect on local state.
package mirror

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Collection names as they appear in the mirrored store and the state
// document.
const (
	CollectionAccountTypes = "accountTypes"
	CollectionAccounts     = "accounts"
	CollectionSavingsGoals = "savingsGoals"
	CollectionTransactions = "transactions"
)

// Notifier is the port the ledger engine talks to. Sync hands over a
// post-mutation snapshot of one collection and returns immediately; the
// caller never learns whether delivery succeeded.
type Notifier interface {
	Sync(ctx context.Context, collection string, data any)
}

// Transport delivers snapshots to a concrete external endpoint.
type Transport interface {
	// Sync pushes the full current collection, tagged with its name.
	Sync(ctx context.Context, collection string, data any) error
	// Fetch pulls a named collection from the endpoint. It is an optional
	// capability outside the mutation-consistency contract.
	Fetch(ctx context.Context, collection string) (json.RawMessage, error)
}

// Discard is the Notifier used when no endpoint is configured: a silent,
// logged no-op.
type Discard struct{}

func (Discard) Sync(ctx context.Context, collection string, _ any) {
	slog.DebugContext(ctx, "Mirror endpoint not configured, skipping sync",
		"collection", collection)
}
