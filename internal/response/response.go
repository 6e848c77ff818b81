package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the uniform response shape for every endpoint. Code mirrors
// the HTTP status of the response.
type Envelope struct {
	Code    int         `json:"code"`
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Results interface{} `json:"results"`
}

// Results sends a successful response carrying a result payload.
func Results(c *gin.Context, results interface{}) {
	Success(c, "Success", results)
}

// Positive sends a successful response with a message and no payload.
func Positive(c *gin.Context, message string) {
	Success(c, message, nil)
}

// Success sends a 200 response with a message and payload.
func Success(c *gin.Context, message string, results interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Code:    http.StatusOK,
		Success: true,
		Message: message,
		Results: results,
	})
}

// Error sends an error response with the given status code.
func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Envelope{
		Code:    code,
		Success: false,
		Message: message,
	})
}

// AbortError sends an error response and stops the handler chain.
func AbortError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Envelope{
		Code:    code,
		Success: false,
		Message: message,
	})
}
