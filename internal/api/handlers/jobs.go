package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printhost/internal/db"
)

type JobHandler struct{}

func NewJobHandler() *JobHandler {
	return &JobHandler{}
}

func (h *JobHandler) List(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	records, err := db.Jobs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list print history"})
		return
	}
	if records == nil {
		records = []*db.PrintRecord{}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": records, "limit": limit, "offset": offset})
}

func (h *JobHandler) Get(c *gin.Context) {
	record, err := db.Jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "print record not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get print record"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *JobHandler) Stats(c *gin.Context) {
	stats, err := db.Jobs.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get history stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
