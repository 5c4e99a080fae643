package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/types"
)

const (
	msgInvalidNoteID = "Invalid note id"
	msgUnauthorized  = "Unauthorized"
)

// NoteHandler serves the caller's notes.
type NoteHandler struct {
	notes *services.NoteService
}

func NewNoteHandler(notes *services.NoteService) *NoteHandler {
	return &NoteHandler{notes: notes}
}

// NoteRouter registers note routes. The router must already be behind
// RequireAuth.
func NoteRouter(r chi.Router, notes *services.NoteService) {
	handler := NewNoteHandler(notes)

	r.Get("/", handler.ListNotes)
	r.Post("/", handler.CreateNote)
	if notes.ExportsEnabled() {
		r.Post("/export", handler.ExportNotes)
		r.Get("/export/{exportID}", handler.GetExport)
	}
	r.Route("/{noteID}", func(r chi.Router) {
		r.Get("/", handler.GetNote)
		r.Put("/", handler.UpdateNote)
		r.Delete("/", handler.DeleteNote)
	})
}

func (h *NoteHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	notes, err := h.notes.List(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.notes.Create(r.Context(), identity, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r, "noteID")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidNoteID)
		return
	}

	note, err := h.notes.Get(r.Context(), identity, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r, "noteID")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidNoteID)
		return
	}
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, err := h.notes.Update(r.Context(), identity, id, req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteUpdatedResponse{
		Message:    "Note updated",
		ID:         note.ID,
		Title:      note.Title,
		Content:    note.Content,
		CategoryID: note.CategoryID,
	})
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	id, ok := parseID(r, "noteID")
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidNoteID)
		return
	}

	if err := h.notes.Delete(r.Context(), identity, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Note deleted"})
}

func (h *NoteHandler) ExportNotes(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	export, err := h.notes.Export(r.Context(), identity)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, export)
}

func (h *NoteHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	reader, err := h.notes.OpenExport(r.Context(), identity, chi.URLParam(r, "exportID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil && !errors.Is(err, r.Context().Err()) {
		hlog.FromRequest(r).Warn().Err(err).Msg("export stream interrupted")
	}
}

// requireIdentity reads the identity injected by RequireAuth. A missing
// identity means the route was mounted without the middleware.
func requireIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgUnauthorized)
		return auth.Identity{}, false
	}
	return identity, true
}

// NoteRequest is the body of note create and update. Ownership is never
// taken from the body.
type NoteRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *int64 `json:"category_id"`
}

func (r NoteRequest) input() types.NoteInput {
	return types.NoteInput{
		Title:      r.Title,
		Content:    r.Content,
		CategoryID: r.CategoryID,
	}
}

type NoteUpdatedResponse struct {
	Message    string `json:"message"`
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	CategoryID *int64 `json:"category_id"`
}
