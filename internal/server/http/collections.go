package httpserver

import (
	"net/http"
	"strconv"

	"github.com/and161185/keepsake/internal/errs"
	"github.com/and161185/keepsake/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid/v5"
)

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cs, err := s.collections.List(r.Context())
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, cs, s.log)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "collectionId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	c, err := s.collections.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, c, s.log)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var req createCollectionRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	author := me.ID
	if req.AuthorID != nil && *req.AuthorID != uuid.Nil {
		if err := ownerOrAdmin(me, *req.AuthorID); err != nil {
			writeError(w, r, err, s.log)
			return
		}
		author = *req.AuthorID
	}
	c, err := s.collections.Create(r.Context(), service.NewCollection{
		Name:         req.Name,
		AuthorID:     author,
		Theme:        req.Theme,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		CustomFields: toFields(req.CustomFields),
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, c, s.log)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedCollection(w, r)
	if !ok {
		return
	}
	if err := s.collections.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "collectionId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	items, err := s.collections.ListItems(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, items, s.log)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "collectionId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemId"), 10, 64)
	if err != nil || itemID < 1 {
		writeError(w, r, errs.New(errs.ErrValidation, "Bad itemId"), s.log)
		return
	}
	it, err := s.collections.GetItem(r.Context(), id, itemID)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, it, s.log)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedCollection(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	it, err := s.collections.AddItem(r.Context(), id, service.NewItem{
		Name:         req.Name,
		Tags:         req.Tags,
		CustomFields: toFields(req.CustomFields),
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusCreated, it, s.log)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedCollection(w, r)
	if !ok {
		return
	}
	var req editItemRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	it, err := s.collections.EditItem(r.Context(), id, req.ItemID, service.ItemPatch{
		Name:         req.Name,
		Tags:         req.Tags,
		CustomFields: toFields(req.CustomFields),
	})
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, it, s.log)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.ownedCollection(w, r)
	if !ok {
		return
	}
	var req itemRefRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	if err := s.collections.DeleteItem(r.Context(), id, req.ItemID); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Message: "Item deleted"}, s.log)
}

// handleLikeItem is open to every authenticated user, not only the owner.
func (s *Server) handleLikeItem(w http.ResponseWriter, r *http.Request) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	id, err := pathUUID(r, "collectionId")
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	var req likeRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, r, err, s.log)
		return
	}
	it, err := s.collections.LikeItem(r.Context(), id, req.ItemID, me.ID, req.Unlike)
	if err != nil {
		writeError(w, r, err, s.log)
		return
	}
	writeJSON(w, http.StatusOK, it, s.log)
}

// ownedCollection resolves the collectionId path parameter and checks that
// the caller may modify it. On failure the response is already written.
func (s *Server) ownedCollection(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	me, err := caller(r)
	if err != nil {
		writeError(w, r, err, s.log)
		return uuid.Nil, false
	}
	id, err := pathUUID(r, "collectionId")
	if err != nil {
		writeError(w, r, err, s.log)
		return uuid.Nil, false
	}
	c, err := s.collections.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err, s.log)
		return uuid.Nil, false
	}
	if err := ownerOrAdmin(me, c.AuthorID); err != nil {
		writeError(w, r, err, s.log)
		return uuid.Nil, false
	}
	return id, true
}
