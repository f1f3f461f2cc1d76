package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"mailledger/internal/model"
	"mailledger/internal/repository"
	"mailledger/internal/service"
)

type SentEmailHandler struct {
	repo   *repository.SentEmailRepository
	resend *service.ResendCoordinator
	siteID int
	logger *zap.Logger
}

func NewSentEmailHandler(repo *repository.SentEmailRepository, resend *service.ResendCoordinator, siteID int, logger *zap.Logger) *SentEmailHandler {
	return &SentEmailHandler{
		repo:   repo,
		resend: resend,
		siteID: siteID,
		logger: logger,
	}
}

// List handles GET /sent-emails
func (h *SentEmailHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	emails, err := h.repo.List(c.Request.Context(), h.siteID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list sent emails", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sent emails"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sent_emails": emails,
		"limit":       limit,
		"offset":      offset,
	})
}

// Get handles GET /sent-emails/:id
func (h *SentEmailHandler) Get(c *gin.Context) {
	email, ok := h.findByParam(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, email)
}

// GetInfo handles GET /sent-emails/:id/info and returns the decoded info
// table for the snapshot.
func (h *SentEmailHandler) GetInfo(c *gin.Context) {
	email, ok := h.findByParam(c)
	if !ok {
		return
	}

	info := map[string]any{}
	if email.Info != "" {
		if err := json.Unmarshal([]byte(email.Info), &info); err != nil {
			h.logger.Error("Failed to decode stored info table",
				zap.Int64("sent_email_id", email.ID),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decode info"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"sent_email_id": email.ID,
		"info":          info,
	})
}

// Preview handles GET /sent-emails/:id/preview and serves the stored HTML
// body as a rendered page, falling back to the text body.
func (h *SentEmailHandler) Preview(c *gin.Context) {
	email, ok := h.findByParam(c)
	if !ok {
		return
	}

	body := email.HTMLBody
	if body == "" {
		body = email.Body
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

// Resend handles POST /sent-emails/:id/resend
func (h *SentEmailHandler) Resend(c *gin.Context) {
	email, ok := h.findByParam(c)
	if !ok {
		return
	}

	var req struct {
		Recipients string `json:"recipients"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid request"})
		return
	}

	result, err := h.resend.Resend(c.Request.Context(), email, req.Recipients)

	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":            false,
			"message":            validationErr.Error(),
			"invalid_recipients": validationErr.Invalid,
		})
		return
	}

	var resendFailure *service.ResendFailure
	if errors.As(err, &resendFailure) {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"message": resendFailure.Error(),
			"sent":    result.Sent,
			"failed":  result.Failed,
		})
		return
	}

	if err != nil {
		h.logger.Error("Resend failed",
			zap.Int64("sent_email_id", email.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "failed to resend email"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email sent successfully.",
		"sent":    result.Sent,
	})
}

// findByParam loads the snapshot named by the :id route param, writing the
// error response itself when the lookup fails.
func (h *SentEmailHandler) findByParam(c *gin.Context) (*model.SentEmail, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return nil, false
	}

	email, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "sent email not found"})
			return nil, false
		}
		h.logger.Error("Failed to load sent email", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sent email"})
		return nil, false
	}

	return email, true
}
