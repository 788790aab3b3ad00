package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backoffice/internal/screen"
)

// displayHeartbeat keeps idle proxies from closing the event stream.
const displayHeartbeat = 20 * time.Second

// DisplayEvents streams a terminal's channel to a paired display as
// server-sent events. The current ticket is sent first so a reconnecting
// display resumes without waiting for the next change.
func DisplayEvents(sessions TerminalSessions, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "GET /pos/displays/:code/events"
		defer handlePanic(c, logger, route)

		terminal, err := sessions.Get(c.Param("code"))
		if err != nil {
			respondDisplayError(c, logger, route, err)
			return
		}

		messages, unsubscribe := terminal.Subscribe()
		defer unsubscribe()

		state, err := terminal.State(c.Request.Context())
		if err != nil {
			respondDisplayError(c, logger, route, err)
			return
		}

		streamLogger := logger.With(zap.String("terminal", terminal.Code()))
		streamLogger.Info("display attached")
		defer streamLogger.Info("display detached")

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.SSEvent("message", screen.OrderUpdated(state.Order.Items, state.Order.Total))
		if state.Selection != nil {
			c.SSEvent("message", screen.ShowToppings(state.Selection))
		}
		c.Writer.Flush()

		heartbeat := time.NewTicker(displayHeartbeat)
		defer heartbeat.Stop()

		c.Stream(func(w io.Writer) bool {
			select {
			case msg, ok := <-messages:
				if !ok {
					return false
				}
				if msg.Origin == screen.OriginDisplay {
					return true
				}
				c.SSEvent("message", msg)
				return true
			case <-heartbeat.C:
				c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	}
}

type displayToggleRequest struct {
	OptionID string `json:"optionId" binding:"required"`
	Active   bool   `json:"active"`
}

// DisplayToggle relays a customer tap to the cashier terminal. The terminal
// decides whether it is accepted and re-broadcasts the selection either way.
func DisplayToggle(sessions TerminalSessions, logger *zap.Logger) gin.HandlerFunc {
	logger = loggerOrNop(logger)
	return func(c *gin.Context) {
		const route = "POST /pos/displays/:code/toggles"
		defer handlePanic(c, logger, route)

		terminal, err := sessions.Get(c.Param("code"))
		if err != nil {
			respondDisplayError(c, logger, route, err)
			return
		}

		var req displayToggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		terminal.PublishFromDisplay(req.OptionID, req.Active)
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	}
}

func respondDisplayError(c *gin.Context, logger *zap.Logger, route string, err error) {
	switch {
	case errors.Is(err, screen.ErrSessionNotFound):
		respondWithError(c, logger, http.StatusNotFound, route, "session not found")
	case errors.Is(err, screen.ErrTerminalClosed):
		respondWithError(c, logger, http.StatusGone, route, "session closed")
	default:
		logger.Error("display request failed", zap.Error(err))
		respondWithError(c, logger, http.StatusInternalServerError, route, "internal server error")
	}
}
