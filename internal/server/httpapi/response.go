package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

func writeMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"message": msg})
}

func abortMessage(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// writeServiceError maps errors no handler claimed.
func writeServiceError(c *gin.Context, err error) {
	if errors.Is(err, common.ErrStoreUnavailable) {
		writeMessage(c, http.StatusServiceUnavailable, common.MsgServiceUnavailable)
		return
	}
	writeMessage(c, http.StatusInternalServerError, common.MsgInternal)
}
