package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/DukeRupert/podcaster/internal/domain"
	"github.com/google/uuid"
)

// maxJSONBody caps JSON request bodies. Multipart uploads have their own cap.
const maxJSONBody = 1 << 20

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a JSON request body into dst. An empty body decodes to
// the zero value so that missing-field validation reports the real problem.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.Wrap(err, domain.ETOOLARGE, op, "Request body too large")
		}
		return domain.Wrap(err, domain.EINVALID, op, "Invalid JSON body")
	}
}

// pathID parses the {id} path value as a UUID. A malformed id cannot name
// an existing resource, so it is reported as not found.
func pathID(r *http.Request, op, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, domain.NotFound(op, resource)
	}
	return id, nil
}
