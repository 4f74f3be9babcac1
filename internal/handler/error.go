package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dukerupert/tapnet/internal/domain"
	"github.com/dukerupert/tapnet/internal/middleware"
	"github.com/dukerupert/tapnet/internal/telemetry"
)

// errorBody is the JSON error envelope: {"error": {"code", "message", ...}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

// ErrorResponse logs err and writes the status for its domain code.
// Internal errors are reported to Sentry and shown as a generic message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	logError(r, err, code, status)

	writeError(w, r, status, errorDetail{Code: code, Message: domain.ErrorMessage(err)})
}

// ErrorResponseWithMessage is ErrorResponse with a caller-chosen message,
// for internal failures that still have a safe shopper-facing wording.
func ErrorResponseWithMessage(w http.ResponseWriter, r *http.Request, err error, message string) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)
	logError(r, err, code, status)

	writeError(w, r, status, errorDetail{Code: code, Message: message})
}

// ValidationErrorResponse writes a 400 with per-field messages. Errors that
// are not validation errors fall through to ErrorResponse.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsValidationError(err) {
		ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context()).Info("validation failed", "error", err.Error())
	writeError(w, r, http.StatusBadRequest, errorDetail{
		Code:    domain.EINVALID,
		Message: "Please correct the highlighted fields",
		Fields:  domain.GetValidationFields(err),
	})
}

// HandleError picks ValidationErrorResponse or ErrorResponse.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsValidationError(err) {
		ValidationErrorResponse(w, r, err)
		return
	}
	ErrorResponse(w, r, err)
}

func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
}

func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EFORBIDDEN, "", "You don't have permission to access this resource"))
}

func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "An unexpected error occurred"))
}

// BadRequestResponse is for malformed payloads rejected before any service call.
func BadRequestResponse(w http.ResponseWriter, r *http.Request, message string) {
	ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "%s", message))
}

// UnprocessableResponse is a 422 whose reason the storefront shows verbatim,
// used for rejected coupons.
func UnprocessableResponse(w http.ResponseWriter, r *http.Request, reason string) {
	middleware.GetLogger(r.Context()).Info("request rejected", "reason", reason)
	writeError(w, r, http.StatusUnprocessableEntity, errorDetail{
		Code:    domain.EUNPROCESSABLE,
		Message: reason,
		Reason:  reason,
	})
}

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.EUNPROCESSABLE:
		return http.StatusUnprocessableEntity
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes a single JSON object from the request body. Unknown
// fields and trailing data are rejected as EINVALID.
func DecodeJSON(r *http.Request, v any) error {
	const op = "handler.decode_json"

	if r.Body == nil {
		return domain.Invalid(op, "Request body is required")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &maxErr):
			return domain.WrapError(err, domain.ETOOLARGE, op, "Request body too large")
		case errors.Is(err, io.EOF):
			return domain.Invalid(op, "Request body is required")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return domain.WrapError(err, domain.EINVALID, op, "Request body is not valid JSON")
		case errors.As(err, &typeErr):
			return domain.WrapError(err, domain.EINVALID, op, "Field "+typeErr.Field+" has the wrong type")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return domain.WrapError(err, domain.EINVALID, op, "Unknown field "+field)
		default:
			return domain.WrapError(err, domain.EINVALID, op, "Request body could not be decoded")
		}
	}

	if dec.More() {
		return domain.Invalid(op, "Request body must contain a single JSON object")
	}
	return nil
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail errorDetail) {
	if acceptsJSON(r) {
		WriteJSON(w, status, errorBody{Error: detail})
		return
	}
	http.Error(w, detail.Message, status)
}

func logError(r *http.Request, err error, code string, status int) {
	logger := middleware.GetLogger(r.Context())
	attrs := []any{
		"error", err.Error(),
		"code", code,
		"status", status,
	}
	if op := domain.ErrorOp(err); op != "" {
		attrs = append(attrs, "op", op)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		telemetry.CaptureErrorFromContext(r.Context(), err, map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
			"op":     domain.ErrorOp(err),
		})
		return
	}
	logger.Info("request failed", attrs...)
}

// acceptsJSON reports whether the client wants a JSON body. Every /api/
// route does.
func acceptsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json")
}
