package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type taskEditOpts struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *bool   `json:"status"`
}

func (a *API) TaskEdit(c *gin.Context) {
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

	var data taskEditOpts
	if err := c.BindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Malformed or invalid JSON request body",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read JSON body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.Title == nil && data.Description == nil && data.Status == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Nothing to update",
			"requestID": requestID,
		})
		return
	}

	if data.Title != nil && strings.TrimSpace(*data.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Title field can't be empty",
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

	if data.Title != nil {
		task.Title = *data.Title
	}

	if data.Description != nil {
		task.Description = *data.Description
	}

	if data.Status != nil {
		task.Status = *data.Status
	}

	if err := a.Tasks.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to update task entry", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, task)
}
