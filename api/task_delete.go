package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) TaskDelete(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	taskID := c.Param("id")
	if taskID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "ID is missing",
			"requestID": requestID,
		})
		return
	}

	deleted, err := a.Tasks.DeleteForUser(c.Request.Context(), userID, taskID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete task", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if deleted == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     "Task not found. It either doesn't exist or you don't own it",
			"requestID": requestID,
		})
		return
	}

	c.Status(http.StatusOK)
}
