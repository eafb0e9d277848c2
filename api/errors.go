package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yash9140/GigFlow/auth"
	"github.com/yash9140/GigFlow/bid"
	"github.com/yash9140/GigFlow/gig"
	"github.com/yash9140/GigFlow/hire"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// Order matters: hire errors come first because they are the most specific.
var errorMappings = []errorMapping{
	{hire.ErrBidNotFound, http.StatusNotFound, "Bid not found"},
	{hire.ErrGigNotFound, http.StatusNotFound, "Gig not found"},
	{hire.ErrUnauthorized, http.StatusForbidden, "You are not authorized to hire for this gig"},
	{hire.ErrConflict, http.StatusConflict, "This gig is already assigned"},
	{hire.ErrTransaction, http.StatusServiceUnavailable, "Could not complete the hire, please retry"},

	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
	{auth.ErrWeakPassword, http.StatusBadRequest, ""},
	{auth.ErrInvalidInput, http.StatusBadRequest, ""},
	{auth.ErrDuplicateEmail, http.StatusBadRequest, "User already exists"},
	{auth.ErrUserNotFound, http.StatusNotFound, "User not found"},

	{gig.ErrInvalidInput, http.StatusBadRequest, ""},
	{gig.ErrNotFound, http.StatusNotFound, "Gig not found"},

	{bid.ErrInvalidInput, http.StatusBadRequest, ""},
	{bid.ErrGigClosed, http.StatusBadRequest, "This gig is no longer accepting bids"},
	{bid.ErrOwnGig, http.StatusBadRequest, "Cannot bid on your own gig"},
	{bid.ErrDuplicateBid, http.StatusBadRequest, "You have already placed a bid on this gig"},
	{bid.ErrForbidden, http.StatusForbidden, "Not authorized to view these bids"},
}

func (s *Server) handleError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			if m.status >= http.StatusInternalServerError {
				s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
			}
			c.JSON(m.status, gin.H{"message": msg})
			return
		}
	}
	s.log.Error().Err(err).Str("path", c.FullPath()).Msg("unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
}
