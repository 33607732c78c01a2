package api

import (
	"errors"
	"net/http"

	"taskhive/todo-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type verifyBody struct {
	UserID string `json:"user_id"`
	Code   int    `json:"code"`
}

// UserVerify confirms a mailed code. On success the account's flags
// flip to registered and confirmed and a session token comes back
func (a *API) UserVerify(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	var data verifyBody
	if err := c.ShouldBind(&data); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})

		zap.L().Error("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if data.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     "No user ID provided",
			"requestID": requestID,
		})
		return
	}

	token, err := a.Auth.VerifyCode(c.Request.Context(), data.UserID, data.Code)
	if err != nil {
		if errors.Is(err, service.ErrNoCodeIssued) || errors.Is(err, service.ErrCodeInvalid) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to verify confirmation code", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
	})
}
