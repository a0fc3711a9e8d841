package http

import (
	"net/http"

	"github.com/mlte-team/mlte-sub000/internal/domain"
	"github.com/mlte-team/mlte-sub000/internal/query"
	"github.com/mlte-team/mlte-sub000/internal/store"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleListCatalogs(c *gin.Context) {
	c.JSON(http.StatusOK, s.state.Catalogs.Infos())
}

func (s *Server) handleListAllCatalogEntries(c *gin.Context) {
	entries, err := s.state.Catalogs.ListDetails(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleSearchCatalogEntries(c *gin.Context) {
	var q query.Query
	if !bindJSON(c, &q) {
		return
	}
	entries, err := s.state.CatalogService.Search(c.Request.Context(), q)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (s *Server) handleListCatalogEntries(c *gin.Context) {
	ids, err := s.state.CatalogService.List(c.Request.Context(), c.Param("catalog_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) handleCreateCatalogEntry(c *gin.Context) {
	var entry domain.CatalogEntry
	if !bindJSON(c, &entry) {
		return
	}
	created, err := s.state.CatalogService.Create(c.Request.Context(), currentUser(c), c.Param("catalog_id"), entry)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, created)
}

func (s *Server) handleEditCatalogEntry(c *gin.Context) {
	var entry domain.CatalogEntry
	if !bindJSON(c, &entry) {
		return
	}
	edited, err := s.state.CatalogService.Edit(c.Request.Context(), currentUser(c), c.Param("catalog_id"), entry)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, edited)
}

func (s *Server) handleReadCatalogEntry(c *gin.Context) {
	entry, err := s.state.CatalogService.Read(c.Request.Context(), c.Param("catalog_id"), c.Param("entry_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleDeleteCatalogEntry(c *gin.Context) {
	entry, err := s.state.CatalogService.Delete(c.Request.Context(), c.Param("catalog_id"), c.Param("entry_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleListCustomLists(c *gin.Context) {
	names := make([]string, 0, len(domain.CustomListNames()))
	for _, name := range domain.CustomListNames() {
		names = append(names, string(name))
	}
	c.JSON(http.StatusOK, names)
}

// withListEntries runs fn on the entries of the route's list.
func (s *Server) withListEntries(c *gin.Context, fn func(store.Mapper[domain.CustomListEntry]) error) bool {
	err := store.With(c.Request.Context(), s.state.CustomLists.Session, func(cs *store.CustomListSession) error {
		entries, err := cs.Entries(c.Param("list_id"))
		if err != nil {
			return err
		}
		return fn(entries)
	})
	if err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func (s *Server) handleListCustomListEntries(c *gin.Context) {
	var names []string
	ok := s.withListEntries(c, func(m store.Mapper[domain.CustomListEntry]) error {
		var err error
		names, err = m.List(c.Request.Context())
		return err
	})
	if ok {
		c.JSON(http.StatusOK, names)
	}
}

func (s *Server) handleCreateCustomListEntry(c *gin.Context) {
	var entry domain.CustomListEntry
	if !bindJSON(c, &entry) {
		return
	}
	var created domain.CustomListEntry
	ok := s.withListEntries(c, func(m store.Mapper[domain.CustomListEntry]) error {
		var err error
		created, err = m.Create(c.Request.Context(), entry)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, created)
	}
}

func (s *Server) handleEditCustomListEntry(c *gin.Context) {
	var entry domain.CustomListEntry
	if !bindJSON(c, &entry) {
		return
	}
	var edited domain.CustomListEntry
	ok := s.withListEntries(c, func(m store.Mapper[domain.CustomListEntry]) error {
		var err error
		edited, err = m.Edit(c.Request.Context(), entry)
		return err
	})
	if ok {
		c.JSON(http.StatusOK, edited)
	}
}

func (s *Server) handleReadCustomListEntry(c *gin.Context) {
	var entry domain.CustomListEntry
	ok := s.withListEntries(c, func(m store.Mapper[domain.CustomListEntry]) error {
		var err error
		entry, err = m.Read(c.Request.Context(), c.Param("entry_name"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, entry)
	}
}

func (s *Server) handleDeleteCustomListEntry(c *gin.Context) {
	var entry domain.CustomListEntry
	ok := s.withListEntries(c, func(m store.Mapper[domain.CustomListEntry]) error {
		var err error
		entry, err = m.Delete(c.Request.Context(), c.Param("entry_name"))
		return err
	})
	if ok {
		c.JSON(http.StatusOK, entry)
	}
}
