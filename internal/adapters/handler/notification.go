package handler

import (
	"net/http"

	"github.com/google/uuid"
)

type MarkReadRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// HandleListNotifications pages through a user's notification log
// @Summary      List notifications
// @Tags         notifications
// @Produce      json
// @Param        userId  path      string  true   "User ID"  format(uuid)
// @Param        page    query     int     false  "Page, starting at 1"
// @Param        size    query     int     false  "Page size, at most 100"
// @Success      200     {object}  APIResponse{data=[]domain.Notification}
// @Failure      400     {object}  APIResponse
// @Router       /api/notifications/{userId} [get]
func (h *Handler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil {
		respondWithError(w, err)
		return
	}
	size, err := queryInt(r, "size", 0)
	if err != nil {
		respondWithError(w, err)
		return
	}

	items, err := h.notifications.List(r.Context(), userID, page, size)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, items)
}

// HandleGetCounter returns the unread counter
// @Summary      Unread counter
// @Tags         notifications
// @Produce      json
// @Param        userId  path      string  true  "User ID"  format(uuid)
// @Success      200     {object}  APIResponse{data=domain.NotificationCounter}
// @Router       /api/notifications/{userId}/counter [get]
func (h *Handler) HandleGetCounter(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	counter, err := h.notifications.GetCounter(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, counter)
}

// HandleMarkRead marks notifications as read
// @Summary      Mark notifications read
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        userId   path      string           true  "User ID"  format(uuid)
// @Param        request  body      MarkReadRequest  true  "Notifications to mark"
// @Success      200      {object}  APIResponse{data=domain.NotificationCounter}
// @Failure      400      {object}  APIResponse
// @Router       /api/notifications/{userId}/read [post]
func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID, err := pathUUID(r, "userId")
	if err != nil {
		respondWithError(w, err)
		return
	}

	var req MarkReadRequest
	if err := h.decode(r, &req); err != nil {
		respondWithError(w, err)
		return
	}

	counter, err := h.notifications.MarkRead(r.Context(), userID, req.IDs)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, counter)
}
