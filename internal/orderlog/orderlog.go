// Package orderlog emits one structured record per significant turn to
// an append-only order log for the owner's review. The engine never
// reads the log back; only the owner endpoint does.
package orderlog

import (
	"context"
	"time"

	"ai-receptionist/internal/order"
	"ai-receptionist/internal/session"
)

// Record is the persisted shape of one significant turn.
type Record struct {
	Timestamp        time.Time         `json:"timestamp"`
	SessionID        string            `json:"session_id"`
	BusinessID       string            `json:"business_id"`
	Intent           string            `json:"intent,omitempty"`
	CustomerText     string            `json:"customer_text"`
	Response         string            `json:"ai_response"`
	Provenance       string            `json:"provenance,omitempty"`
	ConversationTail []session.Message `json:"conversation_tail,omitempty"`
	OrderItems       []order.Line      `json:"order_items,omitempty"`
	OrderTotal       float64           `json:"order_total,omitempty"`
	KitchenTicket    *session.Ticket   `json:"kitchen_ticket,omitempty"`
}

// Sink appends records to the order log.
type Sink interface {
	Append(ctx context.Context, record Record) error
}

// MultiSink appends to every sink and reports the first failure after
// all sinks have seen the record.
type MultiSink []Sink

func (ms MultiSink) Append(ctx context.Context, record Record) error {
	var firstErr error
	for _, s := range ms {
		if err := s.Append(ctx, record); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
