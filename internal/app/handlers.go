package app

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/modulwissen/interview-go/internal/config"
	"github.com/modulwissen/interview-go/internal/ctxutil"
	apperrors "github.com/modulwissen/interview-go/internal/errors"
	"github.com/modulwissen/interview-go/internal/sentry"
)

type startRequest struct {
	SessionID string `json:"sessionId"`
	Mode      string `json:"mode"`
	Force     bool   `json:"force"`
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

type turnRequest struct {
	SessionID string `json:"sessionId"`
	Question  string `json:"question"`
	Mode      string `json:"mode"`
}

type submitRequest struct {
	SessionID   string             `json:"sessionId"`
	Ratings     map[string]float64 `json:"ratings"`
	Comments    string             `json:"comments"`
	Corrections string             `json:"corrections"`
}

// turnContext derives the per-request context for interview operations:
// bounded by the turn timeout and carrying the session id for log correlation.
func turnContext(c *gin.Context, sessionID string) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	if sessionID != "" {
		ctx = ctxutil.WithSessionID(ctx, sessionID)
	}
	return context.WithTimeout(ctx, config.TurnProcessing)
}

func (a *Application) handleInterviewStart(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "interview_start", apperrors.NewValidationError("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := turnContext(c, req.SessionID)
	defer cancel()

	res, err := a.interview.Start(ctx, req.SessionID, req.Mode, req.Force)
	if err != nil {
		a.writeError(c, "interview_start", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *Application) handleInterviewReset(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "interview_reset", apperrors.NewValidationError("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := turnContext(c, req.SessionID)
	defer cancel()

	res, err := a.interview.Reset(ctx, req.SessionID)
	if err != nil {
		a.writeError(c, "interview_reset", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *Application) handleRetrieve(c *gin.Context) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "retrieve", apperrors.NewValidationError("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := turnContext(c, req.SessionID)
	defer cancel()

	res, err := a.interview.Turn(ctx, req.SessionID, req.Question, req.Mode)
	if err != nil {
		a.writeError(c, "retrieve", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *Application) handleEvaluationStart(c *gin.Context) {
	var req sessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "evaluation_start", apperrors.NewValidationError("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := turnContext(c, req.SessionID)
	defer cancel()

	res, err := a.interview.EvaluationStart(ctx, req.SessionID)
	if err != nil {
		a.writeError(c, "evaluation_start", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *Application) handleEvaluationSubmit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, "evaluation_submit", apperrors.NewValidationError("body", "invalid JSON payload"))
		return
	}

	ctx, cancel := turnContext(c, req.SessionID)
	defer cancel()

	res, err := a.interview.EvaluationSubmit(ctx, req.SessionID, req.Ratings, req.Comments, req.Corrections)
	if err != nil {
		a.writeError(c, "evaluation_submit", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (a *Application) handleListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"sessions": a.sessions.All(),
	})
}

// handleDeleteConversation removes a session from the store. Trace files are
// retained for audit.
func (a *Application) handleDeleteConversation(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if err := a.sessions.Delete(sessionID); err != nil {
		a.writeError(c, "conversations", err)
		return
	}
	a.logger.WithSessionID(sessionID).Info("Session deleted")
	c.Status(http.StatusNoContent)
}

// handleTrace streams the oracle call log of a session as JSON Lines.
func (a *Application) handleTrace(c *gin.Context) {
	sessionID := c.Param("sessionId")

	rc, err := a.oracle.Traces().Open(sessionID)
	if err != nil {
		a.writeError(c, "traces", err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/jsonl")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		a.logger.WithError(err).WithSessionID(sessionID).Warn("Trace stream interrupted")
	}
}

// writeError maps domain errors to HTTP responses. Validation problems become
// 400 with the offending field, unknown sessions and traces 404, exhausted
// budgets 429, timeouts 504. Everything else is a 500 that is logged and
// reported, with only the user-facing message leaving the process.
func (a *Application) writeError(c *gin.Context, endpoint string, err error) {
	if ve, ok := apperrors.AsValidationError(err); ok {
		a.metrics.RecordHTTPError("invalid_input", endpoint)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": ve.Message,
			"field": ve.Field,
		})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound) || errors.Is(err, apperrors.ErrTraceNotFound) || errors.Is(err, apperrors.ErrCourseNotFound):
		a.metrics.RecordHTTPError("not_found", endpoint)
		c.JSON(http.StatusNotFound, gin.H{
			"error": apperrors.GetUserMessage(err),
		})
	case errors.Is(err, apperrors.ErrRateLimitExceeded):
		a.metrics.RecordHTTPError("rate_limit", endpoint)
		c.Header("Retry-After", "60")
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error": apperrors.GetUserMessage(err),
		})
	case errors.Is(err, apperrors.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		a.metrics.RecordHTTPError("timeout", endpoint)
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error": "request timed out",
		})
	default:
		a.metrics.RecordHTTPError("internal", endpoint)
		sentry.CaptureError(c.Request.Context(), err)
		a.logger.WithError(err).WithField("endpoint", endpoint).Error("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": apperrors.GetUserMessage(err),
		})
	}
}
