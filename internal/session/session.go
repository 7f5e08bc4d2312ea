// Package session holds per-conversation state: message history, the
// running order and the finalized kitchen ticket.
package session

import (
	"time"

	"ai-receptionist/internal/order"
)

// Message is one ledger entry. Role is "user" or "assistant".
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketItem is one line of a finalized kitchen ticket.
type TicketItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// Ticket is the immutable snapshot handed to the kitchen when the caller
// signals completion. Status transitions after creation belong to the
// kitchen display, not to this package.
type Ticket struct {
	Items  []TicketItem `json:"items"`
	Total  float64      `json:"total"`
	Note   string       `json:"note"`
	Status string       `json:"status"`
}

// State is the conversation ledger for one session. Turns within a
// session are sequential, so State itself is not locked; the Store
// guards the shared registry.
type State struct {
	SessionID     string         `json:"session_id"`
	BusinessID    string         `json:"business_id"`
	CallerPhone   string         `json:"caller_phone,omitempty"`
	Messages      []Message      `json:"messages"`
	CurrentIntent string         `json:"current_intent,omitempty"`
	OrderItems    []order.Line   `json:"order_items"`
	KitchenTicket *Ticket        `json:"kitchen_ticket,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func newState(sessionID, businessID string) *State {
	now := time.Now()
	return &State{
		SessionID:  sessionID,
		BusinessID: businessID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// AddMessage appends a ledger entry.
func (s *State) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// LastMessages returns up to n most recent ledger entries.
func (s *State) LastMessages(n int) []Message {
	if len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// OrderTotal sums line totals over the running order.
func (s *State) OrderTotal() float64 {
	total := 0.0
	for _, item := range s.OrderItems {
		total += item.TotalPrice
	}
	return total
}

// Finalize snapshots the running order into a kitchen ticket with
// status "pending". A second call overwrites the prior snapshot; the
// completion signal is a one-time event per order in intended usage.
func (s *State) Finalize(note string) *Ticket {
	items := make([]TicketItem, 0, len(s.OrderItems))
	for _, line := range s.OrderItems {
		items = append(items, TicketItem{
			Name:      line.Name,
			Quantity:  line.Quantity,
			LineTotal: line.TotalPrice,
		})
	}
	s.KitchenTicket = &Ticket{
		Items:  items,
		Total:  s.OrderTotal(),
		Note:   note,
		Status: "pending",
	}
	s.UpdatedAt = time.Now()
	return s.KitchenTicket
}
