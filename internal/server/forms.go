package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/formpilot/formpilot/internal/formparser"
	"github.com/formpilot/formpilot/internal/resolve"
	"github.com/formpilot/formpilot/internal/runtime"
	"github.com/formpilot/formpilot/internal/store"
)

// FormFetcher renders a form URL into HTML.
type FormFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FormsHandler serves question resolution: ad-hoc batches, full form
// processing and the submission history.
type FormsHandler struct {
	Store    *store.Store
	Resolver *resolve.Resolver
	Fetcher  FormFetcher
}

func (h *FormsHandler) Register(api *echo.Group, secret []byte) {
	g := api.Group("")
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("/resolve", h.resolveBatch)
	g.POST("/forms/process", h.processForm)
	g.POST("/submissions", h.saveSubmission)
	g.GET("/submissions", h.listSubmissions)
}

// resolveBatch answers a caller-supplied list of questions against the
// user's knowledge base and the generation tiers.
func (h *FormsHandler) resolveBatch(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Questions) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "questions are required")
	}

	entries, err := h.Store.ListEntries(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	questions := make([]resolve.Question, len(req.Questions))
	for i, text := range req.Questions {
		questions[i] = resolve.Question{Text: text}
	}
	batch := h.Resolver.Resolve(c.Request().Context(), resolve.Request{
		Questions:   questions,
		Entries:     entries,
		UserContext: req.UserContext,
	})
	return c.JSON(http.StatusOK, batch)
}

// processForm fetches a live form, extracts its questions, resolves them and
// records the outcome in the submission history.
func (h *FormsHandler) processForm(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req ProcessFormRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.FormURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "form_url is required")
	}

	html, err := h.Fetcher.Fetch(c.Request().Context(), req.FormURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "failed to fetch form: "+err.Error())
	}
	form, err := formparser.Parse(html)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	entries, err := h.Store.ListEntries(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	batch := h.Resolver.Resolve(c.Request().Context(), resolve.Request{
		Questions:   form.Questions,
		Entries:     entries,
		UserContext: req.UserContext,
	})

	payload, err := json.Marshal(batch.Results)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	subID, err := h.Store.InsertSubmission(c.Request().Context(), uid, batch.ID, req.FormURL, payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, ProcessFormResponse{
		SubmissionID: subID,
		BatchID:      batch.ID,
		FormTitle:    form.Title,
		Results:      batch.Results,
	})
}

// saveSubmission records answers the client filled in itself, e.g. from the
// browser extension, so history stays complete even without processForm.
func (h *FormsHandler) saveSubmission(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req SaveSubmissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.Results) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "results are required")
	}
	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.New().String()
	}
	id, err := h.Store.InsertSubmission(c.Request().Context(), uid, batchID, req.FormURL, req.Results)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *FormsHandler) listSubmissions(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	subs, err := h.Store.ListSubmissions(c.Request().Context(), uid, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if subs == nil {
		subs = []store.Submission{}
	}
	return c.JSON(http.StatusOK, subs)
}
