package http

import (
	"errors"
	"net/http"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/rbac"
	"github.com/mlte-team/mlte-sub000/internal/infra/auth/token"
	"github.com/mlte-team/mlte-sub000/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeError maps an error kind to its status. Dangling references are
// server faults: the client cannot fix them by rephrasing the request.
func writeError(c *gin.Context, err error) {
	if authz, ok := rbac.IsAuthzError(err); ok {
		if errors.Is(err, domain.ErrUnauthenticated) {
			writeUnauthenticated(c, "invalid_token", authz.Code, err.Error())
			return
		}
		writeErrorCode(c, http.StatusForbidden, authz.Code, "forbidden")
		return
	}
	if tokenErr, ok := token.IsTokenError(err); ok {
		writeUnauthenticated(c, tokenErr.Code, "UNAUTHENTICATED", err.Error())
		return
	}
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		status, code = http.StatusNotFound, "NOT_FOUND"
	case domain.ErrAlreadyExists:
		status, code = http.StatusConflict, "ALREADY_EXISTS"
	case domain.ErrForbidden:
		status, code = http.StatusForbidden, "FORBIDDEN"
	case domain.ErrUnauthenticated:
		writeUnauthenticated(c, "invalid_token", "UNAUTHENTICATED", err.Error())
		return
	case domain.ErrBadRequest:
		status, code = http.StatusBadRequest, "BAD_REQUEST"
	case domain.ErrUnprocessable:
		status, code = http.StatusUnprocessableEntity, "UNPROCESSABLE"
	case domain.ErrReferential:
		code = "REFERENTIAL"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeUnauthenticated(c *gin.Context, bearerCode, code, message string) {
	c.Header("WWW-Authenticate", `Bearer error="`+bearerCode+`"`)
	writeErrorCode(c, http.StatusUnauthorized, code, message)
}

// writeGrantError answers a failed password grant in RFC 6749 form.
func writeGrantError(c *gin.Context, err error) {
	grant, ok := usecase.IsGrantError(err)
	if !ok {
		writeError(c, err)
		return
	}
	status := http.StatusBadRequest
	if grant.Code == "invalid_grant" {
		status = http.StatusUnauthorized
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"error": grant.Code, "error_description": grant.Err.Error()})
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
