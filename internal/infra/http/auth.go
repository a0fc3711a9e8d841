package http

import (
	"net/http"
	"strings"

	"github.com/mlte-team/mlte-sub000/internal/domain"

	"github.com/gin-gonic/gin"
)

const userContextKey = "user"

// guard authenticates the caller and requires permission on rt. The
// resource id comes from the idParam route parameter; an empty idParam
// addresses the collection. method overrides the request method when set.
func (s *Server) guard(rt domain.ResourceType, idParam string, method domain.Method) gin.HandlerFunc {
	return s.authorize(rt, func(c *gin.Context) string {
		if idParam == "" {
			return ""
		}
		return c.Param(idParam)
	}, method)
}

// guardSelf requires permission on the caller's own user record.
func (s *Server) guardSelf(method domain.Method) gin.HandlerFunc {
	return s.authorize(domain.ResourceUser, func(*gin.Context) string { return domain.SelfUsername }, method)
}

// authenticated only resolves the caller; the handler checks permissions
// once it has decoded the resource id from the body.
func (s *Server) authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.authenticate(c); ok {
			c.Next()
		}
	}
}

func (s *Server) authorize(rt domain.ResourceType, resourceID func(*gin.Context) string, method domain.Method) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := s.authenticate(c)
		if !ok {
			return
		}
		m := method
		if m == "" {
			parsed, err := domain.ParseMethod(c.Request.Method)
			if err != nil {
				writeErrorCode(c, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", err.Error())
				return
			}
			m = parsed
		}
		if !s.require(c, user, domain.NewPermission(rt, resourceID(c), m)) {
			return
		}
		c.Next()
	}
}

func (s *Server) require(c *gin.Context, user domain.User, requested domain.Permission) bool {
	if err := s.state.Authorizer.Require(c.Request.Context(), user, requested); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

// authenticate resolves the bearer token to a user and stores it on c.
func (s *Server) authenticate(c *gin.Context) (domain.User, bool) {
	raw := strings.TrimSpace(extractBearerToken(c.GetHeader("Authorization")))
	if raw == "" {
		writeUnauthenticated(c, "invalid_request", "UNAUTHENTICATED", "missing bearer token")
		return domain.User{}, false
	}
	user, err := s.state.TokenService.Authenticate(c.Request.Context(), raw)
	if err != nil {
		writeError(c, err)
		return domain.User{}, false
	}
	c.Set(userContextKey, user)
	return user, true
}

func extractBearerToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return ""
	}
	return strings.TrimSpace(value[len("bearer "):])
}

func currentUser(c *gin.Context) domain.User {
	raw, ok := c.Get(userContextKey)
	if !ok {
		return domain.User{}
	}
	user, _ := raw.(domain.User)
	return user
}
