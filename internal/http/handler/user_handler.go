package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"user-admin-service/internal/http/response"
	"user-admin-service/internal/repository"
	"user-admin-service/internal/service"
)

type UserHandler struct {
	userSvc *service.UserAdminService
}

func NewUserHandler(userSvc *service.UserAdminService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// List returns every account for the dashboard table. Sorting is driven by
// the sortBy and order query parameters; unknown fields fall back to the
// last-login column, newest first.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	_, _, err := authUserIDAndClaims(r)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		return
	}

	sortBy := r.URL.Query().Get("sortBy")
	order := r.URL.Query().Get("order")
	users, err := h.userSvc.List(r.Context(), sortBy, order)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, users)
}

func (h *UserHandler) Block(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	if err := h.userSvc.Block(r.Context(), actorID, targetID); err != nil {
		writeAdminError(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "User blocked.")
}

func (h *UserHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	if err := h.userSvc.Unblock(r.Context(), actorID, targetID); err != nil {
		writeAdminError(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "User unblocked.")
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, targetID, ok := h.actorAndTarget(w, r)
	if !ok {
		return
	}
	if err := h.userSvc.Delete(r.Context(), actorID, targetID); err != nil {
		writeAdminError(w, r, err)
		return
	}
	response.Message(w, r, http.StatusOK, "User deleted.")
}

func (h *UserHandler) DeleteUnverified(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := authUserIDAndClaims(r)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		return
	}
	deleted, err := h.userSvc.DeleteUnverified(r.Context(), actorID)
	if err != nil {
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"deleted": deleted})
}

func (h *UserHandler) actorAndTarget(w http.ResponseWriter, r *http.Request) (actorID, targetID uint, ok bool) {
	actorID, _, err := authUserIDAndClaims(r)
	if err != nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required.", nil)
		return 0, 0, false
	}
	raw := chi.URLParam(r, "id")
	id64, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid user id.", nil)
		return 0, 0, false
	}
	return actorID, uint(id64), true
}

func writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrUserNotFound) {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "User not found.", nil)
		return
	}
	response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "Something went wrong.", nil)
}
