package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/formpilot/formpilot/internal/kb"
	"github.com/formpilot/formpilot/internal/runtime"
	"github.com/formpilot/formpilot/internal/store"
)

// KnowledgeHandler serves CRUD and search over a user's knowledge base.
type KnowledgeHandler struct {
	Store *store.Store
}

func (h *KnowledgeHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.list)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
	g.GET("/search", h.search)
}

// userID resolves the authenticated subject, preferring the request context
// populated by the auth middleware over the echo-local key.
func userID(c echo.Context) (string, error) {
	if sub, ok := runtime.SubjectFromContext(c.Request().Context()); ok && sub != "" {
		return sub, nil
	}
	if v, ok := c.Get("user_id").(string); ok && v != "" {
		return v, nil
	}
	return "", echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

func (h *KnowledgeHandler) list(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	entries, err := h.Store.ListEntries(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if entries == nil {
		entries = []kb.Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *KnowledgeHandler) create(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question and answer are required")
	}
	entry, err := h.Store.CreateEntry(c.Request().Context(), uid, req.Question, req.Answer)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *KnowledgeHandler) update(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req EntryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question and answer are required")
	}
	entry, err := h.Store.UpdateEntry(c.Request().Context(), uid, c.Param("id"), req.Question, req.Answer)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *KnowledgeHandler) remove(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteEntry(c.Request().Context(), uid, c.Param("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "entry not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// search runs full-text search over the user's entries. The index is built
// per request; knowledge bases are small enough that this stays cheap.
func (h *KnowledgeHandler) search(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter q is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.Store.ListEntries(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	idx, err := kb.NewSearchIndex(entries)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	defer idx.Close()

	hits, err := idx.Search(query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	byID := make(map[string]kb.Entry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	out := make([]SearchHitResponse, 0, len(hits))
	for _, hit := range hits {
		e := byID[hit.EntryID]
		out = append(out, SearchHitResponse{
			EntryID:  hit.EntryID,
			Question: e.Question,
			Answer:   e.Answer,
			Score:    hit.Score,
		})
	}
	return c.JSON(http.StatusOK, out)
}
