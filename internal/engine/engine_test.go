package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-receptionist/internal/catalog"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/genai"
	"ai-receptionist/internal/intent"
	"ai-receptionist/internal/order"
	"ai-receptionist/internal/orderlog"
	"ai-receptionist/internal/session"
)

func testBusiness() *catalog.Business {
	return &catalog.Business{
		BusinessName: "Cedar Garden Lebanese Kitchen",
		Hours: map[string]string{
			"monday": "11:00 AM - 9:00 PM",
			"friday": "11:00 AM - 10:00 PM",
		},
		Address: catalog.Address{
			Street: "1420 Harbor Blvd", City: "Anaheim", State: "CA", Zip: "92805",
			Phone: "(714) 555-8734",
		},
		LocationInfo: catalog.LocationInfo{Parking: "Free parking is available in the plaza lot."},
		Services:     map[string]bool{"halal_meat": true},
		MenuSections: []catalog.MenuSection{
			{Name: "Wraps & Sandwiches", Items: []catalog.MenuItem{
				{Name: "Chicken Shawarma Wrap", Price: 9.49},
				{Name: "Beef Shawarma Wrap", Price: 10.49},
				{Name: "Falafel Wrap", Price: 8.49},
				{Name: "Kafta Sandwich", Price: 9.99},
			}},
			{Name: "Plates & Grill", Items: []catalog.MenuItem{
				{Name: "Chicken Shawarma Plate", Price: 13.99},
				{Name: "Chicken Kebab Skewers", Price: 14.49, Description: "Two marinated skewers with rice."},
				{Name: "Mixed Grill Plate", Price: 18.99},
			}},
			{Name: "Appetizers", Items: []catalog.MenuItem{
				{Name: "Hummus", Price: 6.49},
				{Name: "Fattoush Salad", Price: 7.49},
			}},
			{Name: "Family Trays", Items: []catalog.MenuItem{
				{Name: "Family Shawarma Tray", Price: 54.99},
			}},
			{Name: "Drinks & Desserts", Items: []catalog.MenuItem{
				{Name: "Soft Drink", Price: 1.99},
				{Name: "Mango Juice", Price: 3.49},
				{Name: "Baklava", Price: 3.99},
			}},
		},
		FAQ: []catalog.FAQ{
			{Question: "Is your meat halal?", Answer: "Yes, all of our meat is certified halal.", Tags: []string{"halal"}},
			{Question: "Do you have vegetarian options?", Answer: "Yes, the falafel wrap, hummus and fattoush salad are vegetarian.", Tags: []string{"vegetarian"}},
		},
		ReservationRules: catalog.ReservationRules{
			MinPartySize: 1, MaxPartySize: 12,
			LargePartyThreshold: 8, RequiresPhoneForLargeParty: true,
			MaxTablesPerSlot: 5,
		},
	}
}

type fakeRetriever struct {
	passages []genai.Passage
	err      error
	queries  []string
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, _ int) ([]genai.Passage, error) {
	f.queries = append(f.queries, query)
	return f.passages, f.err
}

type fakeGenerator struct {
	calls       int
	text        string
	provenance  string
	err         error
	lastHistory []genai.Message
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, history []genai.Message, _ []genai.Passage) (string, string, error) {
	f.calls++
	f.lastHistory = history
	return f.text, f.provenance, f.err
}

type captureSink struct {
	records []orderlog.Record
}

func (s *captureSink) Append(_ context.Context, rec orderlog.Record) error {
	s.records = append(s.records, rec)
	return nil
}

type captureNotifier struct {
	calls  int
	ticket *session.Ticket
}

func (n *captureNotifier) OrderFinalized(_ context.Context, _ *session.State, ticket *session.Ticket) {
	n.calls++
	n.ticket = ticket
}

type captureObserver struct {
	processed []string
	durations []time.Duration
}

func (o *captureObserver) RecordTurnProcessed(_ context.Context, provenance string) {
	o.processed = append(o.processed, provenance)
}

func (o *captureObserver) RecordTurnDuration(_ context.Context, d time.Duration, _ string) {
	o.durations = append(o.durations, d)
}

type testHarness struct {
	engine    *Engine
	sessions  *session.Store
	retriever *fakeRetriever
	generator *fakeGenerator
	sink      *captureSink
	notifier  *captureNotifier
	observer  *captureObserver
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	log := logger.NewTestLogger(t)
	biz := testBusiness()
	idx := catalog.NewIndex(biz)

	h := &testHarness{
		sessions:  session.NewStore(log),
		retriever: &fakeRetriever{},
		generator: &fakeGenerator{text: "Generated answer.", provenance: genai.ProvenanceLLM},
		sink:      &captureSink{},
		notifier:  &captureNotifier{},
		observer:  &captureObserver{},
	}
	h.engine = New(Params{
		Business:   biz,
		Index:      idx,
		Classifier: intent.NewClassifier(nil, nil, log),
		Extractor:  order.NewExtractor(idx, order.DefaultWeights(), log),
		Sessions:   h.sessions,
		Retriever:  h.retriever,
		Generator:  h.generator,
		Followups:  &FollowupTable{},
		Sink:       h.sink,
		Notifier:   h.notifier,
		Observer:   h.observer,
		Logger:     log,
	})
	return h
}

func (h *testHarness) say(t *testing.T, sessionID, text string) *Turn {
	t.Helper()
	turn, err := h.engine.ProcessMessage(context.Background(), sessionID, "restaurant_001", text)
	require.NoError(t, err)
	require.NotNil(t, turn)
	return turn
}

func (h *testHarness) state(t *testing.T, sessionID string) *session.State {
	t.Helper()
	st, ok := h.sessions.Get(sessionID)
	require.True(t, ok)
	return st
}

func assertTotalsConsistent(t *testing.T, st *session.State) {
	t.Helper()
	for _, line := range st.OrderItems {
		assert.InDelta(t, float64(line.Quantity)*line.UnitPrice, line.TotalPrice, 0.001, "line %s", line.Name)
	}
}

func TestEngine_SingleItemOrder(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "2 chicken shawarma wraps for pickup")
	assert.Equal(t, ProvenanceTemplate, turn.Provenance)
	assert.Contains(t, turn.Response, "2 Chicken Shawarma Wrap")
	assert.Contains(t, turn.Response, "18.98")

	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 1)
	assert.Equal(t, "Chicken Shawarma Wrap", st.OrderItems[0].Name)
	assert.Equal(t, 2, st.OrderItems[0].Quantity)
	assertTotalsConsistent(t, st)
}

func TestEngine_MergeLaw(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "2 chicken shawarma wraps")
	turn := h.say(t, "s1", "1 beef and 2 chicken shawarma")

	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 2)
	assert.Equal(t, "Chicken Shawarma Wrap", st.OrderItems[0].Name)
	assert.Equal(t, 4, st.OrderItems[0].Quantity)
	assert.Equal(t, "Beef Shawarma Wrap", st.OrderItems[1].Name)
	assert.Equal(t, 1, st.OrderItems[1].Quantity)
	assertTotalsConsistent(t, st)
	assert.Contains(t, turn.Response, "4 Chicken Shawarma Wrap")
}

func TestEngine_ReplaceLaw(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "3 chicken shawarma wraps")
	h.say(t, "s1", "that should be 5 chicken shawarma wraps")

	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 1)
	assert.Equal(t, 5, st.OrderItems[0].Quantity, "correction replaces, never sums")
	assertTotalsConsistent(t, st)
}

func TestEngine_QuantityCorrectionShorthand(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "a coke with my order")
	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 1)
	require.Equal(t, "Soft Drink", st.OrderItems[0].Name)
	require.Equal(t, 1, st.OrderItems[0].Quantity)

	turn := h.say(t, "s1", "no 3 soft drinks not 1")
	assert.Equal(t, 3, st.OrderItems[0].Quantity, "shorthand sets the quantity outright")
	assertTotalsConsistent(t, st)
	assert.Contains(t, turn.Response, "3 Soft Drink")
}

func TestEngine_RepeatOrderIsIdempotent(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "2 chicken shawarma wraps")
	first := h.say(t, "s1", "what was my order")
	second := h.say(t, "s1", "what was my order")

	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 1)
	assert.Equal(t, 2, st.OrderItems[0].Quantity)
	assert.Equal(t, first.Response, second.Response)
	assert.Contains(t, first.Response, "2 Chicken Shawarma Wrap")
}

func TestEngine_EmptyOrderSummary(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "what was my order")
	assert.Equal(t, emptyOrderResponse, turn.Response)
}

func TestEngine_WantToOrderPrompt(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "hi, i'd like to place an order")
	assert.Contains(t, turn.Response, "What would you like to order")

	h.say(t, "s1", "2 falafel wraps")
	turn = h.say(t, "s1", "i want to order more stuff")
	assert.Contains(t, turn.Response, "2 Falafel Wrap")
}

func TestEngine_FollowupQuestions(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"shawarma asks sauce and spice", "2 chicken shawarma wraps", "garlic sauce"},
		{"skewers ask doneness", "one chicken kebab skewers", "done"},
		{"family tray asks headcount", "a family shawarma tray", "feeding"},
		{"plain wrap offers a drink", "one falafel wrap", "add a drink"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			turn := h.say(t, "sess_"+tc.name, tc.text)
			assert.Contains(t, turn.Response, tc.expected)
		})
	}
}

func TestEngine_PendingConfirmationAddsOfferedItem(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "one falafel wrap")
	require.Contains(t, turn.Response, "Would you like to add a drink")

	h.say(t, "s1", "yes please")
	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 2)
	assert.Equal(t, "Soft Drink", st.OrderItems[1].Name)
	assert.Equal(t, 1, st.OrderItems[1].Quantity)
}

func TestEngine_AffirmationAfterSummaryDoesNotAdd(t *testing.T) {
	h := newTestHarness(t)

	// The running-summary ask ("add anything else") is not an item offer.
	h.say(t, "s1", "2 chicken shawarma wraps")
	h.say(t, "s1", "what was my order")
	h.say(t, "s1", "yes")

	st := h.state(t, "s1")
	require.Len(t, st.OrderItems, 1)
	assert.Equal(t, 2, st.OrderItems[0].Quantity)
}

func TestEngine_BareWrapCountListsOptions(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "can i get 2 sandwiches")
	assert.Contains(t, turn.Response, "Chicken Shawarma Wrap")
	assert.Contains(t, turn.Response, "Kafta Sandwich")

	st := h.state(t, "s1")
	assert.Empty(t, st.OrderItems, "enumeration never mutates the order")
}

func TestEngine_UnrelatedTopicRedirect(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "what's the weather like today")
	assert.Equal(t, ProvenanceTemplateUnrelated, turn.Provenance)
	assert.Contains(t, turn.Response, "Cedar Garden Lebanese Kitchen")
	assert.Equal(t, 0, h.generator.calls, "unrelated topics never reach the generator")
	assert.Empty(t, h.retriever.queries)
}

func TestEngine_DirectFacts(t *testing.T) {
	h := newTestHarness(t)

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"halal", "is your meat halal", "certified halal"},
		{"vegetarian", "do you have vegetarian options", "falafel wrap"},
		{"parking", "is there parking nearby", "plaza lot"},
		{"item price", "how much is the mango juice", "$3.49"},
		{"hours", "what are your hours", "Monday 11:00 AM - 9:00 PM"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			turn := h.say(t, "sess_"+tc.name, tc.text)
			assert.Equal(t, ProvenanceTemplate, turn.Provenance)
			assert.Contains(t, turn.Response, tc.expected)
		})
	}
	assert.Equal(t, 0, h.generator.calls)
}

func TestEngine_FollowupCacheBranch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gift cards buy": "Yes, we sell gift cards at the register."}`), 0o644))

	h := newTestHarness(t)
	h.engine.followups = LoadFollowups(path, logger.NewNoOpLogger())

	turn := h.say(t, "s1", "can i buy gift cards")
	assert.Equal(t, ProvenanceCache, turn.Provenance)
	assert.Equal(t, "Yes, we sell gift cards at the register.", turn.Response)
	assert.Equal(t, 0, h.generator.calls)
}

func TestEngine_ReservationTemplate(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "do you take reservations")
	assert.Equal(t, ProvenanceTemplate, turn.Provenance)
	assert.Contains(t, turn.Response, "parties of 1 to 12")
	assert.Contains(t, turn.Response, "(714) 555-8734")
}

func TestEngine_GenerationFallback(t *testing.T) {
	h := newTestHarness(t)
	h.retriever.passages = []genai.Passage{{Text: "Patio seating is available.", Category: "basic_info"}}

	h.say(t, "s1", "hello there")
	turn := h.say(t, "s1", "do you have outdoor seating")

	assert.Equal(t, "Generated answer.", turn.Response)
	assert.Equal(t, genai.ProvenanceLLM, turn.Provenance)
	assert.Equal(t, 1, h.generator.calls)
	require.Len(t, h.retriever.queries, 1)
	assert.Contains(t, h.retriever.queries[0], "outdoor seating")
	assert.LessOrEqual(t, len(h.generator.lastHistory), 4)
}

func TestEngine_GeneratorHistoryIncludesCurrentUtterance(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "do you have outdoor seating")

	require.NotEmpty(t, h.generator.lastHistory)
	last := h.generator.lastHistory[len(h.generator.lastHistory)-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "outdoor seating")
}

func TestEngine_TurnTelemetryRecorded(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "what are your hours")
	h.say(t, "s1", "do you have outdoor seating")

	require.Equal(t, []string{ProvenanceTemplate, genai.ProvenanceLLM}, h.observer.processed)
	assert.Len(t, h.observer.durations, 2)
}

func TestEngine_GenerationFailureApology(t *testing.T) {
	h := newTestHarness(t)
	h.generator.text = "I apologize, but I'm having trouble processing your request right now. Please try again or call back later."
	h.generator.provenance = genai.ProvenanceLLMError
	h.generator.err = assert.AnError

	turn := h.say(t, "s1", "do you have outdoor seating")
	assert.Equal(t, genai.ProvenanceLLMError, turn.Provenance)
	assert.Contains(t, turn.Response, "I apologize")

	// The failed turn still lands in the ledger.
	st := h.state(t, "s1")
	assert.Len(t, st.Messages, 2)
}

func TestEngine_ThatsAllFinalizesTicket(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "2 chicken shawarma wraps and a hummus")
	turn := h.say(t, "s1", "no that's all")

	require.True(t, turn.Finalized)
	st := h.state(t, "s1")
	require.NotNil(t, st.KitchenTicket)
	assert.Equal(t, "pending", st.KitchenTicket.Status)
	assert.InDelta(t, st.OrderTotal(), st.KitchenTicket.Total, 0.001)
	assert.Contains(t, turn.Response, "25 to 30 minutes")
	assert.Contains(t, turn.Response, "(714) 555-8734")

	assert.Equal(t, 1, h.notifier.calls)
	require.NotNil(t, h.notifier.ticket)
	assert.Equal(t, st.KitchenTicket.Total, h.notifier.ticket.Total)
}

func TestEngine_ThatsAllWithoutOrder(t *testing.T) {
	h := newTestHarness(t)

	turn := h.say(t, "s1", "that's all, thanks")
	assert.False(t, turn.Finalized)
	assert.Contains(t, turn.Response, "Thank you for calling")

	st := h.state(t, "s1")
	assert.Nil(t, st.KitchenTicket)
}

func TestEngine_OrderLogRecordEmitted(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "2 chicken shawarma wraps")
	require.Len(t, h.sink.records, 1)

	rec := h.sink.records[0]
	assert.Equal(t, "s1", rec.SessionID)
	assert.Equal(t, "restaurant_001", rec.BusinessID)
	assert.Equal(t, "2 chicken shawarma wraps", rec.CustomerText)
	assert.Equal(t, ProvenanceTemplate, rec.Provenance)
	require.Len(t, rec.OrderItems, 1)
	assert.InDelta(t, 18.98, rec.OrderTotal, 0.001)
	assert.LessOrEqual(t, len(rec.ConversationTail), 6)
}

func TestEngine_EmptyMessageRejected(t *testing.T) {
	h := newTestHarness(t)

	_, err := h.engine.ProcessMessage(context.Background(), "s1", "restaurant_001", "   ")
	assert.Error(t, err)
}

func TestEngine_PanicBecomesApology(t *testing.T) {
	h := newTestHarness(t)
	h.engine.business = nil

	turn := h.say(t, "s1", "what's the weather like")
	assert.Equal(t, technicalDifficultiesResponse, turn.Response)
	assert.Equal(t, ProvenanceError, turn.Provenance)
}

func TestEngine_EndSessionClearsState(t *testing.T) {
	h := newTestHarness(t)

	h.say(t, "s1", "2 chicken shawarma wraps")
	h.engine.EndSession("s1")
	_, ok := h.sessions.Get("s1")
	assert.False(t, ok)
}

func TestLoadFollowups_MissingFile(t *testing.T) {
	table := LoadFollowups(filepath.Join(t.TempDir(), "nope.json"), logger.NewNoOpLogger())
	assert.Equal(t, 0, table.Len())
	_, ok := table.Match("anything at all")
	assert.False(t, ok)
}

func TestFollowupTable_RequiresTwoSharedWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"fattoush salad dressing": "The sumac dressing comes on the side on request."}`), 0o644))
	table := LoadFollowups(path, logger.NewNoOpLogger())

	answer, ok := table.Match("is the fattoush dressing separate")
	require.True(t, ok)
	assert.Contains(t, answer, "sumac")

	_, ok = table.Match("tell me about the dressing room")
	assert.False(t, ok)
}
