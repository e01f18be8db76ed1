package api

import (
	"errors"
	"net/http"

	errorsmod "cosmossdk.io/errors"

	"github.com/tutu-network/swarmpay/internal/domain"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Codespace string `json:"codespace"`
	Code      uint32 `json:"code"`
	Message   string `json:"message"`
}

// writeError renders err as a coded JSON error. Errors without a registered
// code are reported as internal without leaking their text.
func writeError(w http.ResponseWriter, err error) {
	writeErrorStatus(w, statusFor(err), err)
}

func writeErrorStatus(w http.ResponseWriter, status int, err error) {
	d := errorDetail{Codespace: errorsmod.UndefinedCodespace, Code: 1, Message: "internal error"}
	var coded *errorsmod.Error
	if errors.As(err, &coded) {
		d = errorDetail{Codespace: coded.Codespace(), Code: coded.ABCICode(), Message: err.Error()}
	}
	writeJSON(w, status, errorBody{Error: d})
}

// statusFor maps a coded error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrPoolNotFound),
		errors.Is(err, domain.ErrSwarmNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, domain.ErrPoolExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidComputationResult),
		errors.Is(err, domain.ErrInvalidSwarmProof),
		errors.Is(err, domain.ErrInsufficientReward),
		errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidReferral),
		errors.Is(err, domain.ErrInvalidPool),
		errors.Is(err, domain.ErrInvalidSwarm),
		errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(format string, args ...any) error {
	return errorsmod.Wrapf(domain.ErrBadRequest, format, args...)
}
