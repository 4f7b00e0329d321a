package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
)

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domainErrors.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrInvalidCredentials), errors.Is(err, pkgAuth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, pkgAuth.ErrOperatorDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// AbortWithError writes {"error": ...} with the status mapped from err.
// Internal errors are not echoed to the client.
func AbortWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}
