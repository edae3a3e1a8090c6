package auth

import (
	"errors"

	"github.com/dmitrijs2005/gophmail/internal/common"
	"github.com/dmitrijs2005/gophmail/internal/metrics"
)

// Rejection describes how an authentication or authorization failure is
// reported to the client.
type Rejection struct {
	Err     error
	Message string
	Code    string
	// Forbidden is set for an authenticated caller whose role is not allowed.
	Forbidden bool
}

var rejections = []Rejection{
	{Err: common.ErrMissingToken, Message: "Access token required", Code: "missing_token"},
	{Err: common.ErrInvalidToken, Message: "Invalid token", Code: "invalid_token"},
	{Err: common.ErrTokenExpired, Message: "Token expired", Code: "token_expired"},
	{Err: common.ErrUserNotFound, Message: "User not found", Code: "user_not_found"},
	{Err: common.ErrAccountDisabled, Message: "Account is disabled", Code: "account_disabled"},
	{Err: common.ErrAuthRequired, Message: "Authentication required", Code: "authentication_required"},
	{Err: common.ErrInsufficientRole, Message: "Insufficient permissions", Code: "insufficient_permissions", Forbidden: true},
}

// RejectionFor maps a verifier or role gate error to its client-facing form.
// ok is false for anything else, store failures included.
func RejectionFor(err error) (Rejection, bool) {
	for _, r := range rejections {
		if errors.Is(err, r.Err) {
			return r, true
		}
	}
	return Rejection{}, false
}

// RecordRejection increments the rejection counter for r.
func RecordRejection(r Rejection) {
	metrics.AuthRejectionsTotal.WithLabelValues(r.Code).Inc()
}
