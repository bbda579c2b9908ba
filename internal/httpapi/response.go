package httpapi

import (
	"github.com/gin-gonic/gin"
)

// Envelope codes.
const (
	CodeOK   = 0
	CodeFail = -1
)

// Response is the envelope of every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(200, Response{Code: CodeOK, Message: "success", Data: data})
}

func fail(c *gin.Context, httpStatus int, msg string) {
	c.AbortWithStatusJSON(httpStatus, Response{Code: CodeFail, Message: msg})
}
