package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) TaskFetch(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	taskID := c.Param("id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No task ID provided",
			"requestID": requestID,
		})
		return
	}

	task, err := a.Tasks.FindForUser(c.Request.Context(), userID, taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch task from db", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Task not found. It either doesn't exist or you don't own it",
			"requestID": requestID,
		})
		return
	}

	c.JSON(http.StatusOK, task)
}
