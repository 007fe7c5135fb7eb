package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/render"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// pagePath extracts the page path from the URL (everything after /api/listings/).
// Supports encoded slashes (e.g. blog%2Findex.qmd).
func pagePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListListings handles GET /api/listings.
//
//	@Summary		List cached listing pages and their dependency patterns
//	@Tags			listings
//	@Produce		json
//	@Success		200	{object}	ListingsResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/listings [get]
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Listings(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrCacheUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, errorBody("listing cache unavailable"))
			return
		}
		internalError(w, "list listings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetListing handles GET /api/listings/*.
//
//	@Summary		Get the cached patterns of one listing page
//	@Tags			listings
//	@Produce		json
//	@Param			path	path		string	true	"Page path"
//	@Success		200		{object}	ListingEntry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/listings/{path} [get]
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	page := pagePath(r)
	if page == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	entry, err := h.svc.Listing(r.Context(), page)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrCacheUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorBody("listing cache unavailable"))
		default:
			internalError(w, "get listing failed", err, slog.String("path", page))
		}
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Affected handles GET /api/affected.
//
//	@Summary		Listing pages a change to the given files would re-render
//	@Tags			listings
//	@Produce		json
//	@Param			file	query		[]string	true	"Changed file (repeatable)"
//	@Success		200		{object}	AffectedResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/affected [get]
func (h *Handler) Affected(w http.ResponseWriter, r *http.Request) {
	files := r.URL.Query()["file"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'file' is required"))
		return
	}
	res, err := h.svc.Affected(r.Context(), files)
	if err != nil {
		internalError(w, "affected listings failed", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Render handles POST /api/render. An empty body requests a full render.
//
//	@Summary		Run a full or incremental render
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			body	body		render.Request	false	"Render request"
//	@Success		200		{object}	RenderResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req render.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Incremental && len(req.Files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("files are required for an incremental render"))
		return
	}
	res, err := h.svc.Render(r.Context(), req)
	if err != nil {
		internalError(w, "render failed", err, slog.Bool("incremental", req.Incremental))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
