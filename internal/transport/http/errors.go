package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidStartsAt     = "invalid_starts_at"
	codeInvalidID           = "invalid_id"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidTTL          = "invalid_ttl"
	codeInvalidCapacity     = "invalid_capacity"
	codeProductNameRequired = "product_name_required"
	codeSlotNameRequired    = "slot_name_required"
	codeOwnerRefRequired    = "owner_ref_required"
	codeCustomerRefRequired = "customer_ref_required"
	codeIdempotencyRequired = "idempotency_key_required"
	codeIdempotencyConflict = "idempotency_conflict"
	codeCapacityExceeded    = "capacity_exceeded"
	codeResourceNotFound    = "resource_not_found"
	codeSlotNotFound        = "slot_not_found"
	codeHoldNotFound        = "hold_not_found"
	codeBookingNotFound     = "booking_not_found"
	codeHoldExpired         = "hold_expired"
	codeHoldTerminal        = "hold_already_terminal"
	codeBookingTerminal     = "booking_already_terminal"
	codeSlotClosed          = "slot_closed"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}
