package storage

import (
	"context"

	"swapguard/internal/model"
)

// EventSink receives policy change events and evaluation outcomes for audit.
type EventSink interface {
	PutChangeEvent(ev model.ChangeEvent) error
	PutDecision(rec model.DecisionRecord) error
}

// Persister stores policy records durably.
type Persister interface {
	SavePolicy(ctx context.Context, rec model.PolicyRecord) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) PutChangeEvent(model.ChangeEvent) error { return nil }
func (NopSink) PutDecision(model.DecisionRecord) error { return nil }
