package middleware

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	apperrors "github.com/videolens/server/internal/utils/errors"
	"github.com/videolens/server/internal/utils/logger"
)

// Recovery turns a handler panic into a 500 and logs it with the request's identifiers.
// Broken client connections are left to gin, which aborts without a body.
func Recovery(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.New(nil)
	}

	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		log.Error("panic recovered",
			"error", fmt.Sprint(recovered),
			"method", c.Request.Method,
			"route", c.FullPath(),
			"request_id", GetRequestID(c),
			"user_id", GetUserID(c).String(),
			"stack", string(debug.Stack()),
		)
		appErr := apperrors.Internal(fmt.Errorf("panic: %v", recovered))
		_ = c.Error(appErr)
		c.AbortWithStatusJSON(appErr.StatusCode, appErr)
	})
}
