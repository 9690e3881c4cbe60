package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printhost/internal/coordinator"
	"github.com/orrn/printhost/internal/render"
)

type PrintRequest struct {
	DeviceName      string `json:"device_name"`
	Copies          int    `json:"copies"`
	Silent          bool   `json:"silent"`
	PrintBackground bool   `json:"print_background"`
	Wait            bool   `json:"wait"`

	// Content, when set, replaces the loaded document before printing.
	Content string `json:"content"`
}

type PrintResponse struct {
	Accepted bool                `json:"accepted"`
	Result   *coordinator.Result `json:"result,omitempty"`
}

type DocumentRequest struct {
	Content string `json:"content"`
}

type PrintHandler struct {
	svc           *coordinator.Service
	engine        *render.Engine
	defaultDevice string
}

func NewPrintHandler(svc *coordinator.Service, engine *render.Engine, defaultDevice string) *PrintHandler {
	return &PrintHandler{
		svc:           svc,
		engine:        engine,
		defaultDevice: defaultDevice,
	}
}

func (h *PrintHandler) Print(c *gin.Context) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.DeviceName == "" {
		req.DeviceName = h.defaultDevice
	}
	if req.Content != "" {
		h.engine.LoadContent(req.Content)
	}

	res, err := h.svc.PrintNow(c.Request.Context(), coordinator.PrintRequest{
		DeviceName:      req.DeviceName,
		Copies:          req.Copies,
		Silent:          req.Silent,
		PrintBackground: req.PrintBackground,
		Wait:            req.Wait,
	})
	if err != nil {
		switch {
		case errors.Is(err, coordinator.ErrPrintingDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "printing is disabled"})
		case errors.Is(err, coordinator.ErrJobCreationFailed):
			c.JSON(http.StatusConflict, gin.H{"error": "a print job is already in progress"})
		case errors.Is(err, coordinator.ErrSurfaceNotReady):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rendering surface is not ready"})
		case errors.Is(err, coordinator.ErrServiceStopped):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "print service is shutting down"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, PrintResponse{Accepted: true, Result: res})
}

// UpdateDocument replaces the loaded document. Any in-flight job is
// canceled, the same as navigating away.
func (h *PrintHandler) UpdateDocument(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.engine.Navigate(req.Content)
	c.Status(http.StatusNoContent)
}
