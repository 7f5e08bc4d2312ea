package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-receptionist/internal/catalog"
	"ai-receptionist/internal/common/config"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/engine"
	"ai-receptionist/internal/genai"
	"ai-receptionist/internal/intent"
	"ai-receptionist/internal/order"
	"ai-receptionist/internal/orderlog"
	"ai-receptionist/internal/reservation"
	"ai-receptionist/internal/session"
)

func testRouter(t *testing.T, genaiBaseURL string) (*gin.Engine, serverParams) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewTestLogger(t)
	biz := &catalog.Business{
		BusinessName: "Cedar Garden Lebanese Kitchen",
		Hours:        map[string]string{"monday": "11:00 AM - 9:00 PM"},
		Address:      catalog.Address{Street: "412 Cedar Ave", City: "Dearborn", State: "MI", Zip: "48126", Phone: "(313) 555-0147"},
		MenuSections: []catalog.MenuSection{
			{Name: "Wraps", Items: []catalog.MenuItem{
				{Name: "Chicken Shawarma Wrap", Price: 9.49},
			}},
		},
	}
	index := catalog.NewIndex(biz)

	cfg := &config.Config{}
	cfg.App.Name = "receptionist"
	cfg.App.Version = "test"
	cfg.Business.ID = "restaurant_001"

	sessions := session.NewStore(log)
	eng := engine.New(engine.Params{
		Business:   biz,
		Index:      index,
		Classifier: intent.NewClassifier(nil, nil, log),
		Extractor:  order.NewExtractor(index, order.DefaultWeights(), log),
		Sessions:   sessions,
		Followups:  engine.LoadFollowups(filepath.Join(t.TempDir(), "missing.json"), log),
		Logger:     log,
	})

	params := serverParams{
		config:   cfg,
		engine:   eng,
		sessions: sessions,
		fileSink: orderlog.NewFileSink(filepath.Join(t.TempDir(), "orders.json"), log),
		book:     reservation.NewBook(t.TempDir(), cfg.Business.ID, 1, log),
		genai: genai.NewClient(genai.ClientConfig{
			BaseURL: genaiBaseURL,
		}, log),
		logger: log,
	}
	return newServer(params), params
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestChatMessage_NewSessionGetsID(t *testing.T) {
	router, _ := testRouter(t, "")

	rec := postJSON(t, router, "/api/chat/message", gin.H{"message": "what are your hours on monday"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, "template", resp.Provenance)
	assert.Contains(t, resp.Response, "11:00 AM - 9:00 PM")
}

func TestChatMessage_SessionPersistsAcrossTurns(t *testing.T) {
	router, params := testRouter(t, "")
	headers := map[string]string{"X-Session-ID": "call_42", "X-Caller-Phone": "+13135550147"}

	rec := postJSON(t, router, "/api/chat/message", gin.H{"message": "i want 2 chicken shawarma wraps"}, headers)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/api/chat/message", gin.H{"message": "can you repeat my order"}, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2 Chicken Shawarma Wrap")

	st, ok := params.sessions.Get("call_42")
	require.True(t, ok)
	assert.Equal(t, "+13135550147", st.CallerPhone)
}

func TestChatMessage_EmptyBodyRejected(t *testing.T) {
	router, _ := testRouter(t, "")

	rec := postJSON(t, router, "/api/chat/message", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEnd_ClearsSession(t *testing.T) {
	router, params := testRouter(t, "")
	headers := map[string]string{"X-Session-ID": "call_99"}

	postJSON(t, router, "/api/chat/message", gin.H{"message": "hello"}, headers)
	require.Equal(t, 1, params.sessions.Len())

	rec := postJSON(t, router, "/api/chat/end", gin.H{}, headers)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, params.sessions.Len())
}

func TestChatEnd_RequiresSessionHeader(t *testing.T) {
	router, _ := testRouter(t, "")

	rec := postJSON(t, router, "/api/chat/end", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReservations_BookAndConflict(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/ai/parse-reservation", r.URL.Path)
		json.NewEncoder(w).Encode(genai.ReservationDetails{
			Name: "Sam", Phone: "555-0100", Date: "2026-09-01", Time: "18:00", PartySize: 4,
		})
	}))
	defer gateway.Close()

	router, _ := testRouter(t, gateway.URL)
	body := gin.H{"query": "table for four at six on september first, name is Sam"}

	rec := postJSON(t, router, "/api/reservations", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var booked reservation.Reservation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booked))
	assert.Equal(t, "confirmed", booked.Status)
	assert.Equal(t, 4, booked.PartySize)

	// One table per slot in this fixture, so the same slot conflicts.
	rec = postJSON(t, router, "/api/reservations", body, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReservations_GatewayFailure(t *testing.T) {
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer gateway.Close()

	router, _ := testRouter(t, gateway.URL)

	rec := postJSON(t, router, "/api/reservations", gin.H{"query": "table for two"}, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestKitchenOrders_ListsFinalizedTickets(t *testing.T) {
	router, _ := testRouter(t, "")
	headers := map[string]string{"X-Session-ID": "call_7"}

	postJSON(t, router, "/api/chat/message", gin.H{"message": "i want 2 chicken shawarma wraps"}, headers)

	// No ticket until the caller closes out.
	req := httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)

	postJSON(t, router, "/api/chat/message", gin.H{"message": "that's all"}, headers)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/kitchen/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)
	assert.Contains(t, rec.Body.String(), "call_7")
	assert.Contains(t, rec.Body.String(), "Chicken Shawarma Wrap")
	assert.Contains(t, rec.Body.String(), `"status":"pending"`)
}

func TestOwnerOrders_EmptyLog(t *testing.T) {
	router, _ := testRouter(t, "")

	req := httptest.NewRequest(http.MethodGet, "/owner/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":0`)
}
