package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/xraph/paywall"
	"github.com/xraph/paywall/migration"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}

type errorKind struct {
	err    error
	status int
	code   string
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []errorKind{
	{paywall.ErrReentrancyRejected, http.StatusConflict, "reentrancy_rejected"},
	{paywall.ErrMigrationReceiptInvalid, http.StatusConflict, "receipt_invalid"},
	{migration.ErrMalformedReceipt, http.StatusBadRequest, "receipt_malformed"},
	{paywall.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{paywall.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{paywall.ErrCustodyAbsent, http.StatusNotFound, "custody_absent"},
	{paywall.ErrNotFound, http.StatusNotFound, "not_found"},
	{paywall.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{paywall.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{paywall.ErrPaymentFailed, http.StatusPaymentRequired, "payment_failed"},
	{paywall.ErrNoTransport, http.StatusNotImplemented, "no_transport"},
	{paywall.ErrTransportFailed, http.StatusBadGateway, "transport_failed"},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, "timeout"},
	{context.Canceled, http.StatusServiceUnavailable, "canceled"},
}

func errorStatus(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	resp := ErrorResponse{Error: err.Error(), Code: code}
	var verr paywall.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("paywall api: request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
		if status == http.StatusInternalServerError {
			resp.Error = http.StatusText(status)
		}
	}

	render.Status(r, status)
	render.JSON(w, r, resp)
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg, Code: "bad_request"})
}
