// Package engine implements the per-message turn resolver: the priority
// cascade that decides, for each inbound utterance, whether a template,
// the order extractor, a cached answer, or the language model produces
// the response.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"ai-receptionist/internal/catalog"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/common/metrics"
	"ai-receptionist/internal/genai"
	"ai-receptionist/internal/intent"
	"ai-receptionist/internal/order"
	"ai-receptionist/internal/orderlog"
	"ai-receptionist/internal/session"
)

// Provenance tags mark which branch produced a response. They drive
// cost observability only, never behavior.
const (
	ProvenanceTemplate          = "template"
	ProvenanceTemplateUnrelated = "template_unrelated"
	ProvenanceCache             = "cache"
	ProvenanceError             = "error"
)

const (
	ticketNote = "Pickup in ~25-30 minutes"

	technicalDifficultiesResponse = "I apologize, but I'm having some technical difficulties. Please try again or call back later."
)

// Notifier is told when an order finalizes. Implementations must not
// surface failures to the caller.
type Notifier interface {
	OrderFinalized(ctx context.Context, st *session.State, ticket *session.Ticket)
}

// Observer receives per-turn telemetry alongside the prometheus vectors.
type Observer interface {
	RecordTurnProcessed(ctx context.Context, provenance string)
	RecordTurnDuration(ctx context.Context, d time.Duration, provenance string)
}

// Turn is the outcome of resolving one inbound message.
type Turn struct {
	Response   string
	Provenance string
	Intent     intent.Intent
	Finalized  bool
}

// Params wires the engine's collaborators. Sink and Notifier are
// optional; Retriever and Generator may be nil in degraded setups, in
// which case the final branch answers with a fixed fallback.
type Params struct {
	Business   *catalog.Business
	Index      *catalog.Index
	Classifier *intent.Classifier
	Extractor  *order.Extractor
	Sessions   *session.Store
	Retriever  genai.Retriever
	Generator  genai.Generator
	Followups  *FollowupTable
	Sink       orderlog.Sink
	Notifier   Notifier
	Observer   Observer
	RetrieveK  int
	Logger     logger.Logger
}

// Engine runs the decision cascade over per-session conversation state.
type Engine struct {
	business   *catalog.Business
	index      *catalog.Index
	classifier *intent.Classifier
	extractor  *order.Extractor
	sessions   *session.Store
	retriever  genai.Retriever
	generator  genai.Generator
	followups  *FollowupTable
	sink       orderlog.Sink
	notifier   Notifier
	observer   Observer
	retrieveK  int
	logger     logger.Logger
}

func New(p Params) *Engine {
	if p.RetrieveK <= 0 {
		p.RetrieveK = 3
	}
	return &Engine{
		business:   p.Business,
		index:      p.Index,
		classifier: p.Classifier,
		extractor:  p.Extractor,
		sessions:   p.Sessions,
		retriever:  p.Retriever,
		generator:  p.Generator,
		followups:  p.Followups,
		sink:       p.Sink,
		notifier:   p.Notifier,
		observer:   p.Observer,
		retrieveK:  p.RetrieveK,
		logger:     p.Logger.WithFields(map[string]interface{}{"component": "turn_engine"}),
	}
}

// ProcessMessage resolves one inbound utterance for a session. It never
// propagates a panic: an uncaught failure becomes a fixed apology and
// the state keeps its last successful mutation.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, businessID, text string) (turn *Turn, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty message for session %s", sessionID)
	}

	start := time.Now()
	st := e.sessions.GetOrCreate(sessionID, businessID)

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn resolution panicked", map[string]interface{}{
				"session_id": sessionID,
				"panic":      fmt.Sprintf("%v", r),
			})
			turn = &Turn{
				Response:   technicalDifficultiesResponse,
				Provenance: ProvenanceError,
			}
			err = nil
		}
		if turn != nil {
			metrics.TurnsResolved.WithLabelValues(turn.Provenance).Inc()
			metrics.TurnDuration.WithLabelValues(turn.Provenance).Observe(time.Since(start).Seconds())
			if e.observer != nil {
				e.observer.RecordTurnProcessed(ctx, turn.Provenance)
				e.observer.RecordTurnDuration(ctx, time.Since(start), turn.Provenance)
			}
		}
	}()

	in, tier := e.classifier.Classify(ctx, text)
	st.CurrentIntent = in.String()

	st.AddMessage("user", text)
	history := historyOf(st)

	norm := order.Normalize(text)
	response, provenance := e.resolve(ctx, st, norm, in, history)

	finalized := false
	if containsAny(norm, endPhrases) {
		if len(st.OrderItems) > 0 {
			ticket := st.Finalize(ticketNote)
			metrics.TicketsFinalized.Inc()
			if e.notifier != nil {
				e.notifier.OrderFinalized(ctx, st, ticket)
			}
			finalized = true
		}
		response = e.closingScript(st)
		provenance = ProvenanceTemplate
	}

	st.AddMessage("assistant", response)

	if e.sink != nil && (finalized || containsAny(norm, orderKeywords)) {
		e.emitRecord(ctx, st, text, response, provenance)
	}

	e.logger.Debug("turn resolved", map[string]interface{}{
		"session_id": sessionID,
		"intent":     in.String(),
		"tier":       string(tier),
		"provenance": provenance,
	})

	return &Turn{
		Response:   response,
		Provenance: provenance,
		Intent:     in,
		Finalized:  finalized,
	}, nil
}

// EndSession drops the session from the ledger.
func (e *Engine) EndSession(sessionID string) {
	e.sessions.Clear(sessionID)
}

// resolve runs the priority cascade and stops at the first branch that
// produces a response.
func (e *Engine) resolve(ctx context.Context, st *session.State, norm string, in intent.Intent, history []genai.Message) (string, string) {
	if resp, ok := e.resolveConfirmation(st, norm); ok {
		return resp, ProvenanceTemplate
	}
	if resp, ok := e.resolveQuantityCorrection(st, norm); ok {
		return resp, ProvenanceTemplate
	}
	if containsAny(norm, repeatPhrases) {
		return orderSummary(st), ProvenanceTemplate
	}
	if resp, ok := e.resolveOrder(st, norm); ok {
		return resp, ProvenanceTemplate
	}
	if containsAny(norm, unrelatedKeywords) {
		return e.unrelatedRedirect(), ProvenanceTemplateUnrelated
	}
	if answer := e.answerFact(norm); answer != "" {
		return answer, ProvenanceTemplate
	}
	if answer, ok := e.followups.Match(norm); ok {
		return answer, ProvenanceCache
	}
	if answer := e.answerTemplate(in, norm); answer != "" {
		return answer, ProvenanceTemplate
	}
	// The closing script will override this response anyway; don't pay
	// for a generation call on a goodbye.
	if containsAny(norm, endPhrases) {
		return "", ProvenanceTemplate
	}
	return e.resolveGenerate(ctx, norm, history)
}

// resolveConfirmation handles a short "yes" after the assistant offered
// to add a specific item. The offered item is parsed back out of the
// prior assistant message.
func (e *Engine) resolveConfirmation(st *session.State, norm string) (string, bool) {
	if !isShortAffirmation(norm) {
		return "", false
	}
	offer := strings.ToLower(lastAssistantMessage(st))
	at := strings.Index(offer, "would you like to add")
	if at < 0 || strings.Contains(offer, "anything else") {
		return "", false
	}
	// Only the offer clause names the item; the summary ahead of it
	// repeats every line already ordered.
	item, ok := e.itemOfferedIn(offer[at:])
	if !ok {
		return "", false
	}
	e.mergeLines(st, []order.Line{order.NewLine(item.Name, 1, item.Price)}, false)
	return orderSummary(st) + " " + defaultOrderAsk, true
}

// itemOfferedIn finds the catalog item named in an offer message,
// preferring the longest name. A bare "a drink" offer resolves to the
// soft drink entry.
func (e *Engine) itemOfferedIn(offer string) (catalog.MenuItem, bool) {
	var best catalog.MenuItem
	bestLen := 0
	for _, name := range e.index.Names() {
		if strings.Contains(offer, name) && len(name) > bestLen {
			if item, ok := e.index.Lookup(name); ok {
				best = item
				bestLen = len(name)
			}
		}
	}
	if bestLen > 0 {
		return best, true
	}
	if strings.Contains(offer, "drink") {
		if item, ok := e.index.Lookup("soft drink"); ok {
			return item, true
		}
	}
	return catalog.MenuItem{}, false
}

const quantityTokens = `\d+|one|two|three|four|five|six|seven|eight|nine|ten`

var (
	quantityCorrectionRe = regexp.MustCompile(`^no,?\s+(` + quantityTokens + `)\s+(.+)$`)
	notTailRe            = regexp.MustCompile(`\s+not\s+(?:` + quantityTokens + `)\s*$`)
)

// resolveQuantityCorrection handles the "no <qty> <item> [not <qty2>]"
// shorthand: the matched line's quantity is replaced outright, never
// added to.
func (e *Engine) resolveQuantityCorrection(st *session.State, norm string) (string, bool) {
	m := quantityCorrectionRe.FindStringSubmatch(strings.TrimSpace(norm))
	if m == nil {
		return "", false
	}
	qty := order.ParseQuantity(m[1])
	itemText := strings.TrimSpace(notTailRe.ReplaceAllString(m[2], ""))
	if itemText == "" {
		return "", false
	}

	i := matchLine(st, itemText)
	if i < 0 {
		return "", false
	}
	st.OrderItems[i].SetQuantity(qty)
	st.UpdatedAt = time.Now()
	return orderSummary(st) + " " + defaultOrderAsk, true
}

// matchLine finds an existing order line by substring in either
// direction, falling back to one shared significant word.
func matchLine(st *session.State, itemText string) int {
	itemWords := order.SignificantWords(itemText)
	for i, line := range st.OrderItems {
		nameLower := strings.ToLower(line.Name)
		if strings.Contains(nameLower, itemText) || strings.Contains(itemText, nameLower) {
			return i
		}
		for _, iw := range itemWords {
			for _, nw := range strings.Fields(nameLower) {
				if order.WordsMatch(iw, nw) {
					return i
				}
			}
		}
	}
	return -1
}

// resolveOrder covers the want-to-order prompt, item extraction with
// merge/replace semantics, and the bare "N wraps" shorthand.
func (e *Engine) resolveOrder(st *session.State, norm string) (string, bool) {
	wantsToOrder := containsAny(norm, orderStartPhrases)
	if !wantsToOrder && !containsAny(norm, orderKeywords) {
		return "", false
	}
	// A price or availability question naming an item is not an order;
	// the fact rules answer it.
	if !wantsToOrder && containsAny(norm, questionMarkers) {
		return "", false
	}

	lines := e.extractor.ParseMulti(norm)
	if len(lines) == 0 {
		if line, ok := e.extractor.ParseSingle(norm); ok {
			lines = []order.Line{line}
		}
	}

	if len(lines) > 0 {
		correction := containsAny(norm, correctionKeywords)
		last := e.mergeLines(st, lines, correction)
		response := orderSummary(st)
		if q := followupFor(last); q != "" {
			return response + " " + q, true
		}
		return response + " " + defaultOrderAsk, true
	}

	if wantsToOrder {
		if len(st.OrderItems) > 0 {
			return orderSummary(st) + " " + defaultOrderAsk, true
		}
		return "Great! What would you like to order?", true
	}

	if isBareWrapCount(norm) {
		return e.renderWrapMenu(), true
	}
	return "", false
}

// isBareWrapCount reports an unqualified sandwich/wrap count: every
// significant word is a form word, so no specific item was named.
func isBareWrapCount(norm string) bool {
	words := order.SignificantWords(norm)
	if len(words) == 0 {
		return false
	}
	for _, w := range words {
		if !order.WordsMatch(w, "wrap") && !order.WordsMatch(w, "sandwich") {
			return false
		}
	}
	return true
}

// mergeLines folds parsed lines into the running order. Same-name lines
// add quantities, unless the turn is a correction, which replaces them.
// Returns the name of the last line touched, for follow-up selection.
func (e *Engine) mergeLines(st *session.State, lines []order.Line, correction bool) string {
	last := ""
	for _, nl := range lines {
		merged := false
		for i := range st.OrderItems {
			if st.OrderItems[i].Name == nl.Name {
				if correction {
					st.OrderItems[i].SetQuantity(nl.Quantity)
				} else {
					st.OrderItems[i].AddQuantity(nl.Quantity)
				}
				merged = true
				break
			}
		}
		if !merged {
			st.OrderItems = append(st.OrderItems, nl)
		}
		last = nl.Name
	}
	st.UpdatedAt = time.Now()
	return last
}

// resolveGenerate is the last resort and the cascade's single
// suspension point: retrieve supporting passages, then ask the
// generation collaborator.
func (e *Engine) resolveGenerate(ctx context.Context, norm string, history []genai.Message) (string, string) {
	if e.generator == nil {
		return "I'm sorry, I don't have an answer for that right now. Is there anything else I can help you with?", ProvenanceError
	}

	var passages []genai.Passage
	if e.retriever != nil {
		var err error
		passages, err = e.retriever.Retrieve(ctx, norm, e.retrieveK)
		if err != nil {
			e.logger.Warn("retrieval failed, generating without context", map[string]interface{}{
				"error": err.Error(),
			})
			passages = nil
		}
	}

	text, provenance, err := e.generator.Generate(ctx, norm, history, passages)
	if err != nil {
		e.logger.Error("generation collaborator failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return text, provenance
}

// lastAssistantMessage returns the most recent assistant ledger entry,
// skipping the just-appended user message.
func lastAssistantMessage(st *session.State) string {
	for i := len(st.Messages) - 1; i >= 0; i-- {
		if st.Messages[i].Role == "assistant" {
			return st.Messages[i].Content
		}
	}
	return ""
}

// historyOf converts the last four ledger entries for the generator.
func historyOf(st *session.State) []genai.Message {
	msgs := st.LastMessages(4)
	out := make([]genai.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, genai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (e *Engine) emitRecord(ctx context.Context, st *session.State, text, response, provenance string) {
	items := make([]order.Line, len(st.OrderItems))
	copy(items, st.OrderItems)

	rec := orderlog.Record{
		Timestamp:        time.Now(),
		SessionID:        st.SessionID,
		BusinessID:       st.BusinessID,
		Intent:           st.CurrentIntent,
		CustomerText:     text,
		Response:         response,
		Provenance:       provenance,
		ConversationTail: st.LastMessages(6),
		OrderItems:       items,
		OrderTotal:       st.OrderTotal(),
		KitchenTicket:    st.KitchenTicket,
	}
	if err := e.sink.Append(ctx, rec); err != nil {
		e.logger.Error("order log append failed", map[string]interface{}{
			"session_id": st.SessionID,
			"error":      err.Error(),
		})
	}
}
