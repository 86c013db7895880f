package notes

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/papertrailhq/papertrail"
)

// Handler exposes note CRUD over HTTP. Mount every route behind
// papertrail.Middleware.EnsureAccount; the handlers trust the identity the
// guard placed on the context and scope every query to it.
type Handler struct {
	Store Store
}

// CreateNoteRequest is the request body for note creation.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// HandleCreate handles POST /notes.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	claims := papertrail.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid post body", http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Content == "" {
		writeError(w, "Title and content are required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	note := &Note{
		ID:        uuid.NewString(),
		AccountID: claims.AccountID,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.Create(r.Context(), note); err != nil {
		log.Println("error creating note: ", err)
		writeError(w, "Failed to create note", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(note)
}

// HandleList handles GET /notes.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	claims := papertrail.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	list, err := h.Store.ListByAccount(r.Context(), claims.AccountID)
	if err != nil {
		log.Println("error listing notes: ", err)
		writeError(w, "Failed to fetch notes", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*Note{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleDelete handles DELETE /notes/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	claims := papertrail.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, "Not authorized", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		writeError(w, "Note id required", http.StatusBadRequest)
		return
	}

	err := h.Store.Delete(r.Context(), id, claims.AccountID)
	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"message": "Note deleted successfully"})
	case errors.Is(err, ErrNoteNotFound):
		writeError(w, "Note not found", http.StatusNotFound)
	default:
		log.Println("error deleting note: ", err)
		writeError(w, "Failed to delete note", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"error": message})
}
