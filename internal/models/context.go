package models

import (
	"context"
	"time"
)

type syncRequestKey struct{}

// SyncRequest carries the bookkeeping of one backend round trip through
// context so the ledger client can log it without widening its signatures.
type SyncRequest struct {
	RequestId string    // correlation id for logs
	Epoch     uint64    // user epoch the request was issued under
	Trigger   string    // mount, poll, external, mutation, manual
	StartedAt time.Time // authoritative-as-of time for the response
}

// WithSyncRequest attaches sync request data to a context.
func WithSyncRequest(ctx context.Context, req *SyncRequest) context.Context {
	return context.WithValue(ctx, syncRequestKey{}, req)
}

// GetSyncRequest retrieves sync request data from context, or nil if absent.
func GetSyncRequest(ctx context.Context) *SyncRequest {
	req, _ := ctx.Value(syncRequestKey{}).(*SyncRequest)
	return req
}
