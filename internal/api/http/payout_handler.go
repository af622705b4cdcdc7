package http

import (
	"net/http"
	"time"

	"driveshare-settlement/internal/domain"
	"driveshare-settlement/internal/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// PayoutHandler exposes owner balances, payout settings, withdrawals and the payout batch.
type PayoutHandler struct {
	payoutSvc service.PayoutService
	now       func() time.Time
}

func NewPayoutHandler(payoutSvc service.PayoutService) *PayoutHandler {
	return &PayoutHandler{payoutSvc: payoutSvc, now: time.Now}
}

type payoutSettingsRequest struct {
	Frequency                *string           `json:"frequency" validate:"omitempty,oneof=daily weekly biweekly monthly"`
	MinimumPayoutAmount      *decimal.Decimal  `json:"minimum_payout_amount"`
	InstantWithdrawalEnabled *bool             `json:"instant_withdrawal_enabled"`
	VerificationStatus       *string           `json:"verification_status" validate:"omitempty,oneof=unverified pending verified rejected"`
	PaymentMethod            *string           `json:"payment_method"`
	PaymentDetails           map[string]string `json:"payment_details"`
}

type withdrawalRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type failRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type processPayoutsRequest struct {
	OwnerIDs []int32 `json:"owner_ids" validate:"required,min=1,dive,gt=0"`
}

func (h *PayoutHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	balance, err := h.payoutSvc.AvailableBalance(r.Context(), requestActor(r), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (h *PayoutHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := h.payoutSvc.GetPayoutSettings(r.Context(), requestActor(r), ownerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *PayoutHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req payoutSettingsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	settings, err := h.payoutSvc.UpdatePayoutSettings(r.Context(), requestActor(r), ownerID, service.PayoutSettingsInput{
		Frequency:                req.Frequency,
		MinimumPayoutAmount:      req.MinimumPayoutAmount,
		InstantWithdrawalEnabled: req.InstantWithdrawalEnabled,
		VerificationStatus:       req.VerificationStatus,
		PaymentMethod:            req.PaymentMethod,
		PaymentDetails:           req.PaymentDetails,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *PayoutHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	ownerID, err := pathID(r, "ownerID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req withdrawalRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wd, err := h.payoutSvc.RequestInstantWithdrawal(r.Context(), requestActor(r), ownerID, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, wd)
}

func (h *PayoutHandler) CompleteWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	wd, err := h.payoutSvc.CompleteWithdrawal(r.Context(), requestActor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

func (h *PayoutHandler) FailWithdrawal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req failRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wd, err := h.payoutSvc.FailWithdrawal(r.Context(), requestActor(r), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wd)
}

func (h *PayoutHandler) ListDue(w http.ResponseWriter, r *http.Request) {
	target := h.now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, r, domain.NewValidationError("invalid_date", "date must be YYYY-MM-DD, got %q", raw))
			return
		}
		// include the whole day
		target = d.Add(24*time.Hour - time.Nanosecond)
	}
	due, err := h.payoutSvc.ListPayoutsDue(r.Context(), requestActor(r), target)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": due})
}

func (h *PayoutHandler) ProcessPayouts(w http.ResponseWriter, r *http.Request) {
	var req processPayoutsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.payoutSvc.ProcessPayouts(r.Context(), requestActor(r), req.OwnerIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *PayoutHandler) CompletePayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.payoutSvc.CompletePayout(r.Context(), requestActor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PayoutHandler) FailPayout(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req failRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.payoutSvc.FailPayout(r.Context(), requestActor(r), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RegisterPayoutRoutes registers the balance, withdrawal and payout endpoints
func RegisterPayoutRoutes(router *mux.Router, handler *PayoutHandler) {
	router.HandleFunc("/api/v1/owners/{ownerID}/balance", handler.GetBalance).Methods("GET")
	router.HandleFunc("/api/v1/owners/{ownerID}/payout-settings", handler.GetSettings).Methods("GET")
	router.HandleFunc("/api/v1/owners/{ownerID}/payout-settings", handler.UpdateSettings).Methods("PUT")
	router.HandleFunc("/api/v1/owners/{ownerID}/withdrawals", handler.RequestWithdrawal).Methods("POST")
	router.HandleFunc("/api/v1/withdrawals/{id}/complete", handler.CompleteWithdrawal).Methods("POST")
	router.HandleFunc("/api/v1/withdrawals/{id}/fail", handler.FailWithdrawal).Methods("POST")
	router.HandleFunc("/api/v1/payouts/due", handler.ListDue).Methods("GET")
	router.HandleFunc("/api/v1/payouts/process", handler.ProcessPayouts).Methods("POST")
	router.HandleFunc("/api/v1/payouts/{id}/complete", handler.CompletePayout).Methods("POST")
	router.HandleFunc("/api/v1/payouts/{id}/fail", handler.FailPayout).Methods("POST")
}
