package utils

import "github.com/gin-gonic/gin"

// ErrorResponse is the uniform structure for API error bodies. Success
// bodies are written directly by handlers because their shapes are part of
// the HTTP contract.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error writes a JSON error response with the given status and application code.
func Error(ctx *gin.Context, status int, code int, message string) {
	ctx.JSON(status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
