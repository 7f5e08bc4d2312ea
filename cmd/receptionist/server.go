package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ai-receptionist/internal/common/config"
	stderrors "ai-receptionist/internal/common/errors"
	"ai-receptionist/internal/common/logger"
	"ai-receptionist/internal/engine"
	"ai-receptionist/internal/genai"
	"ai-receptionist/internal/orderlog"
	"ai-receptionist/internal/reservation"
	"ai-receptionist/internal/session"
)

type serverParams struct {
	config   *config.Config
	engine   *engine.Engine
	sessions *session.Store
	fileSink *orderlog.FileSink
	book     *reservation.Book
	genai    *genai.Client
	logger   logger.Logger
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type messageResponse struct {
	SessionID  string `json:"session_id"`
	Response   string `json:"response"`
	Provenance string `json:"provenance"`
	Intent     string `json:"intent"`
	Finalized  bool   `json:"finalized"`
}

type reservationRequest struct {
	Query string `json:"query" binding:"required"`
}

func newServer(p serverParams) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Session-ID", "X-Caller-Phone"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": p.config.App.Name,
			"version": p.config.App.Version,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat/message", p.handleMessage)
		api.POST("/chat/end", p.handleEndChat)
		api.POST("/reservations", p.handleReservation)
	}

	owner := router.Group("/owner")
	{
		owner.GET("/orders", p.handleListOrders)
		owner.GET("/reservations", p.handleListReservations)
	}

	router.GET("/kitchen/orders", p.handleKitchenOrders)

	return router
}

// handleMessage resolves one caller turn. The session id rides in the
// X-Session-ID header; a missing header starts a fresh call.
func (p serverParams) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	st := p.sessions.GetOrCreate(sessionID, p.config.Business.ID)
	if phone := c.GetHeader("X-Caller-Phone"); phone != "" {
		st.CallerPhone = phone
	}

	turn, err := p.engine.ProcessMessage(c.Request.Context(), sessionID, p.config.Business.ID, req.Message)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		SessionID:  sessionID,
		Response:   turn.Response,
		Provenance: turn.Provenance,
		Intent:     turn.Intent.String(),
		Finalized:  turn.Finalized,
	})
}

func (p serverParams) handleEndChat(c *gin.Context) {
	sessionID := c.GetHeader("X-Session-ID")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Session-ID header is required"})
		return
	}

	p.engine.EndSession(sessionID)
	c.JSON(http.StatusOK, gin.H{"status": "ended", "session_id": sessionID})
}

// handleReservation parses the free-text request through the language
// model gateway, fills defaults, and books against the slot limit.
func (p serverParams) handleReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	parsed, err := p.genai.ParseReservation(c.Request.Context(), req.Query)
	if err != nil {
		p.logger.Error("reservation parse failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not understand the reservation request"})
		return
	}

	details := reservation.Details{
		Name:      parsed.Name,
		Phone:     parsed.Phone,
		Date:      parsed.Date,
		Time:      parsed.Time,
		PartySize: parsed.PartySize,
	}
	details.ApplyDefaults(time.Now())

	booking, err := p.book.Create(c.Request.Context(), details)
	if err != nil {
		var stdErr *stderrors.StandardError
		if errors.As(err, &stdErr) && stdErr.Code == stderrors.ErrCodeReservationUnavailable {
			c.JSON(http.StatusConflict, gin.H{"error": "that time slot is fully booked"})
			return
		}
		p.logger.Error("reservation booking failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save the reservation"})
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (p serverParams) handleListOrders(c *gin.Context) {
	records, err := p.fileSink.ReadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read the order log"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": records, "count": len(records)})
}

type kitchenTicket struct {
	SessionID string          `json:"session_id"`
	Ticket    *session.Ticket `json:"ticket"`
}

// handleKitchenOrders lists the finalized tickets of calls still in the
// ledger, for the kitchen display.
func (p serverParams) handleKitchenOrders(c *gin.Context) {
	active := p.sessions.ActiveTickets()
	tickets := make([]kitchenTicket, 0, len(active))
	for id, ticket := range active {
		tickets = append(tickets, kitchenTicket{SessionID: id, Ticket: ticket})
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (p serverParams) handleListReservations(c *gin.Context) {
	reservations, err := p.book.ReadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read the reservation book"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations, "count": len(reservations)})
}
