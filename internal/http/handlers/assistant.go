package handlers

import (
	"errors"
	"net/http"

	"tamv/internal/assistant"
	"tamv/internal/logger"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Messages []assistant.Message `json:"messages" binding:"required,min=1"`
}

// Chat streams the assistant's answer as server-sent "delta" events,
// closing with "done" or "error".
func (h *Handler) Chat(c *gin.Context) {
	if h.Assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not configured"})
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	for _, m := range req.Messages {
		if m.Role != "user" && m.Role != "assistant" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message role must be user or assistant"})
			return
		}
	}

	started := false
	err := h.Assistant.Stream(c.Request.Context(), req.Messages, func(delta string) error {
		if !started {
			// заголовки потока, только когда есть что отдавать
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			started = true
		}
		c.SSEvent("delta", gin.H{"content": delta})
		c.Writer.Flush()
		return nil
	})
	if err == nil {
		if !started {
			c.Header("Cache-Control", "no-cache")
		}
		c.SSEvent("done", gin.H{})
		c.Writer.Flush()
		return
	}

	logger.WithContext(c.Request.Context()).Warn("assistant stream failed", "error", err, "started", started)
	status, msg := assistantError(err)
	if !started {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.SSEvent("error", gin.H{"error": msg})
	c.Writer.Flush()
}

func assistantError(err error) (int, string) {
	var rl *assistant.RateLimitedError
	switch {
	case errors.As(err, &rl):
		return http.StatusTooManyRequests, "assistant is busy, try again later"
	case errors.Is(err, assistant.ErrPaymentRequired):
		return http.StatusPaymentRequired, "assistant credits exhausted"
	case errors.Is(err, assistant.ErrNotConfigured):
		return http.StatusServiceUnavailable, "assistant is not configured"
	}
	return http.StatusBadGateway, "assistant unavailable"
}
