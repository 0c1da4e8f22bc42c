package handlers

import (
	"errors"
	"net/http"

	"tamv/internal/economy"
	"tamv/internal/logger"

	"github.com/gin-gonic/gin"
)

var kindStatus = map[economy.Kind]int{
	economy.KindInvalidAmount:          http.StatusBadRequest,
	economy.KindSelfTransferNotAllowed: http.StatusBadRequest,
	economy.KindBelowMinimum:           http.StatusBadRequest,
	economy.KindSelfBidNotAllowed:      http.StatusBadRequest,
	economy.KindBidTooLow:              http.StatusBadRequest,
	economy.KindAlreadyHighestBidder:   http.StatusBadRequest,
	economy.KindInsufficientBalance:    http.StatusPaymentRequired,
	economy.KindNotFound:               http.StatusNotFound,
	economy.KindConflict:               http.StatusConflict,
	economy.KindInvalidTransition:      http.StatusConflict,
	economy.KindPoolInactive:           http.StatusConflict,
	economy.KindPositionClosed:         http.StatusConflict,
	economy.KindAuctionNotLive:         http.StatusConflict,
	economy.KindVotingClosed:           http.StatusConflict,
	economy.KindQuorumNotReached:       http.StatusConflict,
	economy.KindPositionLocked:         http.StatusLocked,
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	if status, ok := kindStatus[economy.KindOf(err)]; ok {
		return status
	}
	var te *economy.TransportError
	if errors.As(err, &te) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes {"error", "code"} for err.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusServiceUnavailable:
		logger.WithContext(c.Request.Context()).Error("economy write failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "temporarily unavailable, try again"})
		return
	case http.StatusInternalServerError:
		logger.WithContext(c.Request.Context()).Error("unexpected error", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	var e *economy.Error
	msg := err.Error()
	if errors.As(err, &e) && e.Msg != "" {
		msg = e.Msg
	}
	c.JSON(status, gin.H{"error": msg, "code": string(economy.KindOf(err))})
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
}
