package response

import (
	"net/http"

	"github.com/Kilat-Ride/service-ride-booking/internal/platform/apperror"
	"github.com/gin-gonic/gin"
)

// Body is the JSON envelope returned by every endpoint.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created writes a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Accepted writes a 202 response, used when an action is deferred.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Body{Success: true, Data: data})
}

// BadRequest writes a 400 response.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Body{
		Error: &ErrorBody{Code: string(apperror.KindValidation), Message: msg},
	})
}

// Unauthorized writes a 401 response.
func Unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Body{
		Error: &ErrorBody{Code: string(apperror.KindUnauthorized), Message: msg},
	})
}

// Error maps err to its HTTP status and writes it.
func Error(c *gin.Context, err error) {
	kind := apperror.KindOf(err)
	msg := err.Error()
	if kind == apperror.KindInternal {
		msg = "internal server error"
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apperror.HTTPStatus(kind), Body{
		Error: &ErrorBody{Code: string(kind), Message: msg},
	})
}
