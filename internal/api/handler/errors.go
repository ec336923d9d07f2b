package handler

import (
	"errors"
	"net/http"

	"github.com/Divine-P-77777/studylocal/internal/chathub"
	"github.com/Divine-P-77777/studylocal/internal/enrolment"
	"github.com/Divine-P-77777/studylocal/internal/messages"
	"github.com/Divine-P-77777/studylocal/internal/room"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const msgNotAuthorized = "not authorized"

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"error": message})
}

// HandleServiceError maps service errors to HTTP responses. Anything
// unrecognized is logged and reported as a generic 500.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, messages.ErrValidation),
		errors.Is(err, enrolment.ErrInvalidTerms),
		errors.Is(err, room.ErrInvalidRoom):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, chathub.ErrNotAuthorized), errors.Is(err, enrolment.ErrNotAuthorized):
		ErrorResponse(c, http.StatusForbidden, msgNotAuthorized)
	case errors.Is(err, enrolment.ErrNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, enrolment.ErrAlreadyActive), errors.Is(err, enrolment.ErrInvalidTransition):
		ErrorResponse(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
