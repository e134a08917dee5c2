package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/videolens/server/internal/utils/middleware"
)

// requireAuth returns the authenticated user, or responds 401 and returns uuid.Nil.
func requireAuth(c *gin.Context) uuid.UUID {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		respondError(c, http.StatusUnauthorized, "unauthorized", "Authentication required")
		c.Abort()
		return uuid.Nil
	}
	return userID
}

// parseIDParam parses a UUID path parameter, responding 400 when it is malformed.
func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// ErrorResponse represents a standard error response.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// respondError sends an error response with the given status code.
func respondError(c *gin.Context, statusCode int, errorCode string, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// respondSuccess sends a success response with the given data.
func respondSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// respondCreated sends a 201 Created response with the given data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response for work continuing in the background.
func respondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}
