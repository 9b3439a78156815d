// -----------------------------------------------------------------------
// Problem details - RFC 9457 failure responses with stable URN types
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/agenda/internal/common"
)

// Problem is an RFC 9457 problem-details body
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

const problemContentType = "application/problem+json"

// problemFor maps an error chain to its problem shape via the stable
// error kinds.
func problemFor(err error) Problem {
	switch {
	case errors.Is(err, common.ErrInvalidID):
		return Problem{
			Type:   "urn:agenda:problem:invalid-id",
			Title:  "Invalid Identifier",
			Status: http.StatusBadRequest,
		}
	case errors.Is(err, common.ErrValidationFailed):
		return Problem{
			Type:   "urn:agenda:problem:validation-failed",
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
		}
	case errors.Is(err, common.ErrNotFound):
		return Problem{
			Type:   "urn:agenda:problem:not-found",
			Title:  "Resource Not Found",
			Status: http.StatusNotFound,
		}
	case errors.Is(err, common.ErrConflict):
		return Problem{
			Type:   "urn:agenda:problem:conflict",
			Title:  "Conflict",
			Status: http.StatusConflict,
		}
	default:
		return Problem{
			Type:   "urn:agenda:problem:internal",
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
		}
	}
}

// WriteProblem renders err as a problem-details response
func WriteProblem(w http.ResponseWriter, r *http.Request, err error) {
	problem := problemFor(err)
	problem.Detail = err.Error()
	problem.Instance = r.URL.Path

	w.Header().Set("Content-Type", problemContentType)
	writeProblemBody(w, problem)
}

// WriteProblemStatus renders an explicit problem without an error chain
func WriteProblemStatus(w http.ResponseWriter, r *http.Request, status int, detail string) {
	problem := Problem{
		Type:     "urn:agenda:problem:internal",
		Title:    http.StatusText(status),
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
	switch status {
	case http.StatusNotFound:
		problem.Type = "urn:agenda:problem:not-found"
	case http.StatusBadRequest:
		problem.Type = "urn:agenda:problem:validation-failed"
	case http.StatusMethodNotAllowed:
		problem.Type = "urn:agenda:problem:method-not-allowed"
	}

	w.Header().Set("Content-Type", problemContentType)
	writeProblemBody(w, problem)
}

func writeProblemBody(w http.ResponseWriter, problem Problem) {
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}
