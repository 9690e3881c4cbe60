package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printhost/internal/coordinator"
)

type PrintingSettingsRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type StatusHandler struct {
	svc *coordinator.Service
}

func NewStatusHandler(svc *coordinator.Service) *StatusHandler {
	return &StatusHandler{svc: svc}
}

func (h *StatusHandler) Status(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "print service unavailable"})
		return
	}

	c.JSON(http.StatusOK, snap)
}

func (h *StatusHandler) SetPrintingEnabled(c *gin.Context) {
	var req PrintingSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.SetPrintingEnabled(c.Request.Context(), *req.Enabled); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "print service unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}
