// Package audit records submission and choice events to an external
// append-only store for offline analytics. Writes are best effort: the
// session coordinator dispatches them without waiting, and a failed
// write is logged and forgotten. Nothing in here may influence game
// state.
package audit

import (
	"context"
	"time"
)

// SubmissionRecord captures one answer submission.
type SubmissionRecord struct {
	RoomID     string
	Round      int
	CardID     string
	PlayerID   string
	PlayerName string
	Answer     string
}

// ChoiceRecord captures the parent's pick for one round.
type ChoiceRecord struct {
	RoomID      string
	Round       int
	CardID      string
	Answer      string
	ChosenNames []string
}

// Sink is an append-only event store. Implementations must tolerate
// being called concurrently.
type Sink interface {
	RecordSubmission(ctx context.Context, rec SubmissionRecord) error
	RecordChoice(ctx context.Context, rec ChoiceRecord) error
	Close() error
}

// NopSink discards all records. Used when auditing is disabled.
type NopSink struct{}

func (NopSink) RecordSubmission(context.Context, SubmissionRecord) error { return nil }
func (NopSink) RecordChoice(context.Context, ChoiceRecord) error        { return nil }
func (NopSink) Close() error                                            { return nil }

const recordTimeFormat = time.RFC3339Nano
