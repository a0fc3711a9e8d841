package http

import (
	"net/http"
	"strconv"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"github.com/gin-gonic/gin"
)

type identifierRequest struct {
	Identifier string `json:"identifier" binding:"required"`
}

type artifactWriteRequest struct {
	Artifact domain.Artifact `json:"artifact"`
	Force    bool            `json:"force"`
	Parents  bool            `json:"parents"`
}

type manualValidationRequest struct {
	Success *bool `json:"success" binding:"required"`
}

type runSuiteRequest struct {
	ResultsID string `json:"results_id"`
}

// bindJSON decodes the body, reporting any failure as a bad request.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		if domain.KindOf(err) == domain.ErrInternal {
			err = domain.Wrap(domain.ErrBadRequest, err, "invalid request body")
		}
		writeError(c, err)
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int, bool) {
	limit, offset := 0, 0
	for name, dst := range map[string]*int{"limit": &limit, "offset": &offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(c, domain.BadRequest("%s must be a non-negative integer", name))
			return 0, 0, false
		}
		*dst = n
	}
	return limit, offset, true
}

func scopeFrom(c *gin.Context) domain.Scope {
	return domain.NewScope(c.Param("model_id"), c.Param("version_id"))
}

// withArtifacts runs fn on a fresh artifact session and writes any error.
func (s *Server) withArtifacts(c *gin.Context, fn func(*store.ArtifactSession) error) bool {
	if err := store.With(c.Request.Context(), s.state.Artifacts.Session, fn); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func (s *Server) handleListModels(c *gin.Context) {
	var ids []string
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		ids, err = as.Models().List(c.Request.Context())
		return err
	})
	if ok {
		c.JSON(http.StatusOK, ids)
	}
}

func (s *Server) handleCreateModel(c *gin.Context) {
	var req identifierRequest
	if !bindJSON(c, &req) {
		return
	}
	model, err := s.state.ModelService.Create(c.Request.Context(), currentUser(c), domain.Model{Identifier: req.Identifier})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) handleReadModel(c *gin.Context) {
	var model domain.Model
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		model, err = as.Models().Read(c.Request.Context(), c.Param("model_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, model)
	}
}

func (s *Server) handleDeleteModel(c *gin.Context) {
	model, err := s.state.ModelService.Delete(c.Request.Context(), c.Param("model_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

func (s *Server) handleListVersions(c *gin.Context) {
	var ids []string
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		ids, err = as.Versions().List(c.Request.Context(), c.Param("model_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, ids)
	}
}

func (s *Server) handleCreateVersion(c *gin.Context) {
	var req identifierRequest
	if !bindJSON(c, &req) {
		return
	}
	var version domain.Version
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		version, err = as.Versions().Create(c.Request.Context(), c.Param("model_id"), domain.Version{Identifier: req.Identifier})
		return err
	})
	if ok {
		c.JSON(http.StatusOK, version)
	}
}

func (s *Server) handleReadVersion(c *gin.Context) {
	var version domain.Version
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		version, err = as.Versions().Read(c.Request.Context(), c.Param("model_id"), c.Param("version_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, version)
	}
}

func (s *Server) handleDeleteVersion(c *gin.Context) {
	var version domain.Version
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		version, err = as.Versions().Delete(c.Request.Context(), c.Param("model_id"), c.Param("version_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, version)
	}
}

func (s *Server) handleListArtifacts(c *gin.Context) {
	limit, offset, ok := pageParams(c)
	if !ok {
		return
	}
	var artifacts []domain.Artifact
	ok = s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		artifacts, err = as.Artifacts().ListDetails(c.Request.Context(), scopeFrom(c), limit, offset)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, artifacts)
	}
}

func (s *Server) handleReadArtifact(c *gin.Context) {
	var artifact domain.Artifact
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		artifact, err = as.Artifacts().Read(c.Request.Context(), scopeFrom(c), c.Param("artifact_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, artifact)
	}
}

// handleWriteArtifact serves POST (create, replace with force) and PUT
// (edit an existing artifact).
func (s *Server) handleWriteArtifact(edit bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req artifactWriteRequest
		if !bindJSON(c, &req) {
			return
		}
		opts := store.WriteOptions{Force: req.Force, Parents: req.Parents}
		artifact, err := s.state.ModelService.WriteArtifact(c.Request.Context(), currentUser(c), scopeFrom(c), req.Artifact, opts, edit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, artifact)
	}
}

func (s *Server) handleDeleteArtifact(c *gin.Context) {
	var artifact domain.Artifact
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		artifact, err = as.Artifacts().Delete(c.Request.Context(), scopeFrom(c), c.Param("artifact_id"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, artifact)
	}
}

func (s *Server) handleSearchArtifacts(c *gin.Context) {
	var q query.Query
	if !bindJSON(c, &q) {
		return
	}
	var artifacts []domain.Artifact
	ok := s.withArtifacts(c, func(as *store.ArtifactSession) error {
		var err error
		artifacts, err = as.Artifacts().Search(c.Request.Context(), scopeFrom(c), q)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, artifacts)
	}
}

func (s *Server) handleManualValidation(c *gin.Context) {
	var req manualValidationRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := s.state.ResultService.ManuallyValidate(c.Request.Context(), currentUser(c), scopeFrom(c),
		c.Param("artifact_id"), c.Param("test_case_id"), *req.Success)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleRunSuite(c *gin.Context) {
	var req runSuiteRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	artifact, err := s.state.ResultService.Run(c.Request.Context(), currentUser(c), scopeFrom(c), c.Param("artifact_id"), req.ResultsID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, artifact)
}
