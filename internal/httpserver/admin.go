package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *handlers) notificationLogs(c *gin.Context) {
	if h.deps.Logs == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []any{}})
		return
	}
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	logs, err := h.deps.Logs.List(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": nonNil(logs)})
}

func (h *handlers) runReminders(c *gin.Context) {
	if h.deps.Reminders == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: errorPayload{Type: "reminders_disabled", Message: "reward reminders are not configured"}})
		return
	}
	stats, err := h.deps.Reminders.RunOnce(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
