package http

import (
	"net/http"
	"time"

	"driveshare-settlement/internal/service"

	"github.com/gorilla/mux"
)

type RefundHandler struct {
	refundSvc service.RefundService
	now       func() time.Time
}

func NewRefundHandler(refundSvc service.RefundService) *RefundHandler {
	return &RefundHandler{refundSvc: refundSvc, now: time.Now}
}

type refundNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

func (h *RefundHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req refundNotesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	refund, err := h.refundSvc.CreateRefund(r.Context(), requestActor(r), bookingID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, refund)
}

func (h *RefundHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	refundID, err := pathID(r, "refundID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	refund, err := h.refundSvc.ProcessRefund(r.Context(), requestActor(r), refundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refund)
}

func (h *RefundHandler) CancelRefund(w http.ResponseWriter, r *http.Request) {
	refundID, err := pathID(r, "refundID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req refundNotesRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	refund, err := h.refundSvc.CancelRefund(r.Context(), requestActor(r), refundID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, refund)
}

func (h *RefundHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.refundSvc.ListPendingRefunds(r.Context(), requestActor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refunds": refunds})
}

func (h *RefundHandler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	refunds, err := h.refundSvc.ListOverdueRefunds(r.Context(), requestActor(r), h.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"refunds": refunds})
}

func (h *RefundHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	refundID, err := pathID(r, "refundID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.refundSvc.GetAuditLog(r.Context(), requestActor(r), refundID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// RegisterRefundRoutes registers the deposit refund endpoints
func RegisterRefundRoutes(router *mux.Router, handler *RefundHandler) {
	router.HandleFunc("/api/v1/bookings/{bookingID}/refund", handler.CreateRefund).Methods("POST")
	router.HandleFunc("/api/v1/refunds/pending", handler.ListPending).Methods("GET")
	router.HandleFunc("/api/v1/refunds/overdue", handler.ListOverdue).Methods("GET")
	router.HandleFunc("/api/v1/refunds/{refundID}/process", handler.ProcessRefund).Methods("POST")
	router.HandleFunc("/api/v1/refunds/{refundID}/cancel", handler.CancelRefund).Methods("POST")
	router.HandleFunc("/api/v1/refunds/{refundID}/audit", handler.GetAuditLog).Methods("GET")
}
