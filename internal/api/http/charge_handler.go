package http

import (
	"net/http"

	"driveshare-settlement/internal/service"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

// ChargeHandler exposes the charge ledger, the charge-type catalog and the mileage trigger.
type ChargeHandler struct {
	chargeSvc  service.ChargeService
	mileageSvc service.MileageService
}

func NewChargeHandler(chargeSvc service.ChargeService, mileageSvc service.MileageService) *ChargeHandler {
	return &ChargeHandler{chargeSvc: chargeSvc, mileageSvc: mileageSvc}
}

type proposeChargeRequest struct {
	ChargeTypeCode string   `json:"charge_type_code" validate:"required"`
	Label          string   `json:"label"`
	Notes          string   `json:"notes"`
	Evidence       []string `json:"evidence"`
}

type transitionChargeRequest struct {
	Status               string `json:"status" validate:"required"`
	PaymentTransactionID *int32 `json:"payment_transaction_id"`
	Notes                string `json:"notes"`
}

type chargeTypeRequest struct {
	Code          string          `json:"code" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
	Recipient     string          `json:"recipient" validate:"required,oneof=owner platform"`
}

func (h *ChargeHandler) ListCharges(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	charges, err := h.chargeSvc.ListCharges(r.Context(), requestActor(r), bookingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"charges": charges})
}

func (h *ChargeHandler) ProposeCharge(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req proposeChargeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	charge, err := h.chargeSvc.ProposeCharge(r.Context(), requestActor(r), service.ProposeChargeInput{
		BookingID:      bookingID,
		ChargeTypeCode: req.ChargeTypeCode,
		Label:          req.Label,
		Notes:          req.Notes,
		Evidence:       req.Evidence,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, charge)
}

func (h *ChargeHandler) ReturnInspectionCompleted(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "bookingID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	outcome, err := h.mileageSvc.OnReturnInspectionCompleted(r.Context(), bookingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *ChargeHandler) TransitionCharge(w http.ResponseWriter, r *http.Request) {
	chargeID, err := pathID(r, "chargeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req transitionChargeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	charge, err := h.chargeSvc.TransitionCharge(r.Context(), requestActor(r), chargeID, service.TransitionChargeInput{
		Status:               req.Status,
		PaymentTransactionID: req.PaymentTransactionID,
		Notes:                req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, charge)
}

func (h *ChargeHandler) ApplyDepositDeduction(w http.ResponseWriter, r *http.Request) {
	chargeID, err := pathID(r, "chargeID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.chargeSvc.ApplyDepositDeduction(r.Context(), requestActor(r), chargeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ChargeHandler) ListChargeTypes(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	types, err := h.chargeSvc.ListChargeTypes(r.Context(), requestActor(r), includeInactive)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"charge_types": types})
}

func (h *ChargeHandler) CreateChargeType(w http.ResponseWriter, r *http.Request) {
	var req chargeTypeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ct, err := h.chargeSvc.CreateChargeType(r.Context(), requestActor(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ct)
}

func (h *ChargeHandler) UpdateChargeType(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var req chargeTypeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	// the path code wins over the body
	req.Code = code
	if err := validateStruct(&req); err != nil {
		writeError(w, r, err)
		return
	}
	ct, err := h.chargeSvc.UpdateChargeType(r.Context(), requestActor(r), code, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (h *ChargeHandler) DeactivateChargeType(w http.ResponseWriter, r *http.Request) {
	ct, err := h.chargeSvc.DeactivateChargeType(r.Context(), requestActor(r), mux.Vars(r)["code"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ct)
}

func (req chargeTypeRequest) input() service.ChargeTypeInput {
	return service.ChargeTypeInput{
		Code:          req.Code,
		Name:          req.Name,
		DefaultAmount: req.DefaultAmount,
		Recipient:     req.Recipient,
	}
}

// RegisterChargeRoutes registers the charge ledger endpoints
func RegisterChargeRoutes(router *mux.Router, handler *ChargeHandler) {
	router.HandleFunc("/api/v1/bookings/{bookingID}/charges", handler.ListCharges).Methods("GET")
	router.HandleFunc("/api/v1/bookings/{bookingID}/charges", handler.ProposeCharge).Methods("POST")
	router.HandleFunc("/api/v1/bookings/{bookingID}/inspections/return/completed", handler.ReturnInspectionCompleted).Methods("POST")
	router.HandleFunc("/api/v1/charges/{chargeID}/status", handler.TransitionCharge).Methods("PATCH")
	router.HandleFunc("/api/v1/charges/{chargeID}/deduct", handler.ApplyDepositDeduction).Methods("POST")
	router.HandleFunc("/api/v1/charge-types", handler.ListChargeTypes).Methods("GET")
	router.HandleFunc("/api/v1/charge-types", handler.CreateChargeType).Methods("POST")
	router.HandleFunc("/api/v1/charge-types/{code}", handler.UpdateChargeType).Methods("PUT")
	router.HandleFunc("/api/v1/charge-types/{code}", handler.DeactivateChargeType).Methods("DELETE")
}
