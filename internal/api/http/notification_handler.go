package http

import (
	"net/http"

	"driveshare-settlement/internal/service"

	"github.com/gorilla/mux"
)

type NotificationHandler struct {
	noteSvc service.NotificationService
}

func NewNotificationHandler(noteSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{noteSvc: noteSvc}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt32(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt32(r, "page_size", 20)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, total, err := h.noteSvc.GetNotifications(r.Context(), requestActor(r).UserID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notes, "total": total})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.noteSvc.MarkAsRead(r.Context(), requestActor(r).UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// RegisterNotificationRoutes registers the in-app notification endpoints
func RegisterNotificationRoutes(router *mux.Router, handler *NotificationHandler) {
	router.HandleFunc("/api/v1/notifications", handler.GetNotifications).Methods("GET")
	router.HandleFunc("/api/v1/notifications/{id}/read", handler.MarkAsRead).Methods("POST")
}
