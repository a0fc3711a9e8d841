package http

import (
	"net/http"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/store"
	"github.com/mlte-team/mlte-sub000/internal/usecase"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleToken(c *gin.Context) {
	key := grantKey(c)
	if !s.allowGrant(c, key) {
		return
	}
	tok, err := s.state.TokenService.Grant(c.Request.Context(), c.PostForm("grant_type"), key.Username, c.PostForm("password"))
	if s.metrics != nil {
		outcome := "ok"
		if grant, ok := usecase.IsGrantError(err); ok {
			outcome = grant.Code
		} else if err != nil {
			outcome = "error"
		}
		s.metrics.TokensIssued.WithLabelValues(outcome).Inc()
	}
	if err != nil {
		writeGrantError(c, err)
		return
	}
	s.grantSucceeded(c, key)
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, tok)
}

func (s *Server) withUsers(c *gin.Context, fn func(*store.UserSession) error) bool {
	if err := store.With(c.Request.Context(), s.state.Users.Session, fn); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func (s *Server) handleListUsers(c *gin.Context) {
	ids, err := s.state.UserService.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) handleListUserDetails(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	users, err := s.state.UserService.ListDetails(c.Request.Context(), limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) handleCreateUser(c *gin.Context) {
	var user domain.User
	if !bindJSON(c, &user) {
		return
	}
	user.HashedPassword = ""
	created, err := s.state.UserService.Create(c.Request.Context(), currentUser(c), user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) handleEditUser(c *gin.Context) {
	var user domain.User
	if !bindJSON(c, &user) {
		return
	}
	user.HashedPassword = ""
	actor := currentUser(c)
	if !s.require(c, actor, domain.NewPermission(domain.ResourceUser, user.Username, domain.MethodPut)) {
		return
	}
	edited, err := s.state.UserService.Edit(c.Request.Context(), actor, user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, edited)
}

func (s *Server) handleReadUser(c *gin.Context) {
	user, err := s.state.UserService.Read(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	user, err := s.state.UserService.Delete(c.Request.Context(), c.Param("username"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (s *Server) handleReadSelf(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c).Public())
}

func (s *Server) handleSelfModels(c *gin.Context) {
	models, err := s.state.ModelService.VisibleModels(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models)
}

func (s *Server) handleListGroups(c *gin.Context) {
	var ids []string
	ok := s.withUsers(c, func(us *store.UserSession) error {
		var err error
		ids, err = us.Groups().List(c.Request.Context())
		return err
	})
	if ok {
		c.JSON(http.StatusOK, ids)
	}
}

func (s *Server) handleListGroupDetails(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	var groups []domain.Group
	ok = s.withUsers(c, func(us *store.UserSession) error {
		var err error
		groups, err = us.Groups().ListDetails(c.Request.Context(), limit, offset)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, groups)
	}
}

func (s *Server) handleListPermissions(c *gin.Context) {
	var perms []domain.Permission
	ok := s.withUsers(c, func(us *store.UserSession) error {
		var err error
		perms, err = us.Permissions().ListDetails(c.Request.Context(), 0, 0)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, perms)
	}
}

func (s *Server) handleCreateGroup(c *gin.Context) {
	var group domain.Group
	if !bindJSON(c, &group) {
		return
	}
	var created domain.Group
	ok := s.withUsers(c, func(us *store.UserSession) error {
		var err error
		created, err = us.Groups().Create(c.Request.Context(), group)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, created)
	}
}

func (s *Server) handleEditGroup(c *gin.Context) {
	var group domain.Group
	if !bindJSON(c, &group) {
		return
	}
	if !s.require(c, currentUser(c), domain.NewPermission(domain.ResourceGroup, group.Name, domain.MethodPut)) {
		return
	}
	var edited domain.Group
	ok := s.withUsers(c, func(us *store.UserSession) error {
		var err error
		edited, err = us.Groups().Edit(c.Request.Context(), group)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, edited)
	}
}

func (s *Server) handleReadGroup(c *gin.Context) {
	var group domain.Group
	ok := s.withUsers(c, func(us *store.UserSession) error {
		var err error
		group, err = us.Groups().Read(c.Request.Context(), c.Param("group_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, group)
	}
}

func (s *Server) handleDeleteGroup(c *gin.Context) {
	var group domain.Group
	ok := s.withUsers(c, func(us *store.UserSession) error {
		var err error
		group, err = us.Groups().Delete(c.Request.Context(), c.Param("group_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, group)
	}
}
