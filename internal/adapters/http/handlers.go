package web

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"makerspace/internal/adapters/http/middleware"
	"makerspace/internal/application/orchestrators"
	"makerspace/internal/domain/availability"
	"makerspace/internal/domain/booking"
	"makerspace/internal/domain/class"
	"makerspace/internal/domain/shoparea"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set).
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdown converts md to HTML, falling back to the escaped source.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return strings.ReplaceAll(md, "<", "&lt;")
	}
	return strings.TrimSpace(buf.String())
}

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// validate checks request DTOs; field names in messages are the JSON names.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage turns the first validator failure into a user-facing sentence.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "required_without":
		return fe.Field() + " or " + strings.ToLower(fe.Param()) + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "datetime":
		return fe.Field() + " must be YYYY-MM-DD"
	default:
		return fe.Field() + " is invalid"
	}
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeRequest decodes and validates a JSON body, writing a 400 on failure.
// POST: returns false when a response has already been written
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := strictDecode(r, v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error(), "stage", "encode_response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	writeJSONError(w, http.StatusInternalServerError, "internal server error")
}

// respondError maps orchestrator and domain errors onto status codes.
// Gate denials keep the rule-table remediation in the body.
func respondError(w http.ResponseWriter, err error) {
	var denied *orchestrators.CertificationDeniedError
	var invalid *orchestrators.ValidationError
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":             denied.Decision.Message,
			"message":           denied.Decision.Message,
			"method":            denied.Decision.Method,
			"qualifyingClasses": denied.Decision.QualifyingClasses,
		})
	case errors.As(err, &invalid):
		writeJSONError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, booking.ErrSlotFull), errors.Is(err, booking.ErrAlreadyBooked),
		errors.Is(err, class.ErrClassFull), errors.Is(err, class.ErrAlreadyEnrolled):
		writeJSONError(w, http.StatusBadRequest, conflictMessage(err))
	case isBadQuery(err):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrators.ErrInvalidCredentials):
		writeJSONError(w, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, orchestrators.ErrAccountLocked):
		writeJSONError(w, http.StatusLocked, orchestrators.ErrAccountLocked.Error())
	case errors.Is(err, orchestrators.ErrForbidden):
		writeJSONError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, orchestrators.ErrNotFound), errors.Is(err, sql.ErrNoRows):
		writeJSONError(w, http.StatusNotFound, notFoundMessage(err))
	default:
		internalError(w, err)
	}
}

// conflictMessage returns the literal conflict text without wrapping context.
func conflictMessage(err error) string {
	for _, c := range []error{booking.ErrSlotFull, booking.ErrAlreadyBooked, class.ErrClassFull, class.ErrAlreadyEnrolled} {
		if errors.Is(err, c) {
			return c.Error()
		}
	}
	return err.Error()
}

func notFoundMessage(err error) string {
	if errors.Is(err, orchestrators.ErrNotFound) {
		return err.Error()
	}
	return "not found"
}

// isBadQuery reports domain errors raised by projections on malformed input.
func isBadQuery(err error) bool {
	for _, target := range []error{
		shoparea.ErrUnknownArea, shoparea.ErrSubAreaRequired, shoparea.ErrUnknownSubArea,
		availability.ErrInvalidDate, availability.ErrInvalidSlot,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// principal returns the authenticated caller. Routes wrapped in authed guarantee one.
func principal(r *http.Request) (middleware.Principal, bool) {
	return middleware.GetPrincipal(r.Context())
}

// actorFrom builds the orchestrator actor for the caller; anonymous callers get the zero Actor.
func actorFrom(r *http.Request) orchestrators.Actor {
	p, ok := principal(r)
	if !ok {
		return orchestrators.Actor{}
	}
	return orchestrators.ActorFor(p.Account)
}

// canView reports whether the caller is the user named in the path or an admin.
func canView(r *http.Request, userID string) bool {
	a := actorFrom(r)
	return a.ID != "" && (a.ID == userID || a.IsAdmin())
}

// handleHealthz reports liveness plus database reachability.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	if pingDB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDB(ctx); err != nil {
			slog.Error("internal_error", "error", err.Error(), "stage", "healthz")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAdminPerf returns request and query timing aggregates (GET /api/admin/perf?window=15m)
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	window := time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSONError(w, http.StatusBadRequest, "window must be a positive duration like 15m")
			return
		}
		window = d
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), 10))
}
