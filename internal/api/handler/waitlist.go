package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quietdash/quietdash/internal/api/models"
	"github.com/quietdash/quietdash/internal/waitlist"
)

type WaitlistHandler struct {
	waitlist *waitlist.Service
}

func NewWaitlist(svc *waitlist.Service) *WaitlistHandler {
	return &WaitlistHandler{waitlist: svc}
}

// Join adds the email to the waitlist. The optional ref query parameter credits a referrer.
func (h *WaitlistHandler) Join(c *gin.Context) {
	var req models.JoinWaitlistRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.waitlist.Join(c.Request.Context(), req.Email, c.Query("ref"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.JoinWaitlistResponse{Message: res.Message, Email: res.Email})
}

func (h *WaitlistHandler) Verify(c *gin.Context) {
	res, err := h.waitlist.Verify(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.VerifyResponse{Message: res.Message, AddedToResend: res.AddedToResend})
}

func (h *WaitlistHandler) Stats(c *gin.Context) {
	stats, err := h.waitlist.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ToWaitlistStats(stats))
}

// Referrals returns the referral progress of a verified entry.
func (h *WaitlistHandler) Referrals(c *gin.Context) {
	stats, err := h.waitlist.ReferralStats(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	if stats == nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Referral stats not found. Verify your email first."})
		return
	}
	c.JSON(http.StatusOK, models.ToReferralStats(stats))
}
