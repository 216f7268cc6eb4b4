package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"meme-workers/internal/common/errors"

	"github.com/go-chi/chi/v5/middleware"
)

// Problem is an RFC 7807 Problem Details response. Code carries the error
// taxonomy code; Step and Fields are set when the error records them.
type Problem struct {
	Type      string   `json:"type"`
	Title     string   `json:"title"`
	Status    int      `json:"status"`
	Detail    string   `json:"detail"`
	Instance  string   `json:"instance,omitempty"`
	Code      string   `json:"code,omitempty"`
	Step      string   `json:"step,omitempty"`
	Fields    []string `json:"fields,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

const problemTypeBase = "https://meme-workers.dev/errors/"

var statusByCode = map[errors.ErrorCode]int{
	errors.ErrCodeSchema:            http.StatusUnprocessableEntity,
	errors.ErrCodeInvalidInput:      http.StatusBadRequest,
	errors.ErrCodeTemplateNotFound:  http.StatusNotFound,
	errors.ErrCodeUpstream:          http.StatusBadGateway,
	errors.ErrCodeCatalogLoadFailed: http.StatusServiceUnavailable,
}

// StatusFor maps an error code to its HTTP status.
func StatusFor(code errors.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func problemType(code errors.ErrorCode) string {
	return problemTypeBase + strings.ReplaceAll(strings.ToLower(string(code)), "_", "-")
}

// WriteProblem writes a problem document without a taxonomy code.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblem(w, r, Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}

// WriteError converts err to a problem document. Internal error details are
// not exposed.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	stdErr := errors.Normalize(err)
	status := StatusFor(stdErr.Code)

	detail := stdErr.Details
	if status == http.StatusInternalServerError {
		detail = "Internal Server Error"
	} else if detail == "" {
		detail = stdErr.Message
	}

	writeProblem(w, r, Problem{
		Type:   problemType(stdErr.Code),
		Title:  stdErr.Message,
		Status: status,
		Detail: detail,
		Code:   string(stdErr.Code),
		Step:   stdErr.Step(),
		Fields: stdErr.Fields(),
	})
}

func writeProblem(w http.ResponseWriter, r *http.Request, p Problem) {
	p.Instance = r.URL.Path
	p.RequestID = middleware.GetReqID(r.Context())

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
