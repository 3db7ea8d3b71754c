package server

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mesh-intelligence/staffdir/internal/metrics"
	"github.com/mesh-intelligence/staffdir/internal/restclient"
	"github.com/mesh-intelligence/staffdir/pkg/types"
)

func (s *Server) requireList(c *gin.Context) {
	if c.Param("list") != s.opts.List {
		respondError(c, http.StatusNotFound, "list_not_found", "no such list: "+c.Param("list"))
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) listItems(c *gin.Context) {
	top := s.opts.PageSize
	if v := c.Query("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxPageSize {
			respondError(c, http.StatusBadRequest, "invalid_top", "top must be between 1 and "+strconv.Itoa(maxPageSize))
			return
		}
		top = n
	}
	var after int64
	if v := c.Query("skiptoken"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			respondError(c, http.StatusBadRequest, "invalid_skiptoken", "malformed skiptoken")
			return
		}
		after = n
	}

	start := time.Now()
	records, more, err := s.store.ListPage(c.Request.Context(), after, top)
	metrics.Since(c.Request.Context(), s.opts.Recorder, metrics.OpListPage, start, err)
	if err != nil {
		s.storeError(c, err)
		return
	}

	page := restclient.ItemPage{}
	value := make([]restclient.Item, 0, len(records))
	for _, rec := range records {
		value = append(value, restclient.EncodeItem(rec))
	}
	page.Value = &value
	if more && len(records) > 0 {
		last := records[len(records)-1].ID
		page.NextLink = APIPrefix + "/lists/" + url.PathEscape(s.opts.List) +
			"/items?top=" + strconv.Itoa(top) + "&skiptoken=" + strconv.FormatInt(last, 10)
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) createItem(c *gin.Context) {
	var body restclient.Payload
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	start := time.Now()
	rec, err := s.store.Add(c.Request.Context(), types.NewRecord{Label: body.Title, PersonRefs: body.PersonID.Results})
	metrics.Since(c.Request.Context(), s.opts.Recorder, metrics.OpCreate, start, err)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, restclient.EncodeItem(rec))
}

func (s *Server) updateItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}
	var body restclient.Payload
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	start := time.Now()
	err := s.store.Update(c.Request.Context(), id, types.Patch{Label: body.Title, PersonRefs: body.PersonID.Results})
	metrics.Since(c.Request.Context(), s.opts.Recorder, metrics.OpUpdate, start, err)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteItem(c *gin.Context) {
	id, ok := itemID(c)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Delete(c.Request.Context(), id)
	metrics.Since(c.Request.Context(), s.opts.Recorder, metrics.OpRemove, start, err)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getPerson(c *gin.Context) {
	start := time.Now()
	p, err := s.store.GetPerson(c.Request.Context(), c.Param("key"))
	metrics.Since(c.Request.Context(), s.opts.Recorder, metrics.OpPersonLookup, start, err)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, restclient.EncodeUser(p))
}

func (s *Server) searchPeople(c *gin.Context) {
	start := time.Now()
	people := s.store.SearchPeople(c.Request.Context(), c.Query("search"))
	metrics.Elapsed(c.Request.Context(), s.opts.Recorder, metrics.OpPeopleSearch, start)

	value := make([]restclient.User, 0, len(people))
	for _, p := range people {
		value = append(value, restclient.EncodeUser(p))
	}
	c.JSON(http.StatusOK, restclient.UserPage{Value: &value})
}

func itemID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_id", types.ErrInvalidRecordID.Error())
		return 0, false
	}
	return id, true
}

// storeError maps a store error onto the protocol's status codes.
func (s *Server) storeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrNotFound):
		respondError(c, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, types.ErrValidationRejected):
		respondError(c, http.StatusBadRequest, "validation_rejected", types.RejectionReason(err))
	default:
		s.log.Error("store failure", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, "internal", "internal error")
	}
}
