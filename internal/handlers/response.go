package handlers

import "github.com/gin-gonic/gin"

// envelope is the response body shape shared by the JSON endpoints.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, success bool, message string, data any) {
	c.JSON(status, envelope{Success: success, Message: message, Data: data})
}
