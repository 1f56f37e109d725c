package shared

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "custodia/pkg/domain-errors"
)

// maxBodyBytes caps request bodies. Custody requests are small; anything
// larger is abuse.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request DTOs that can check themselves.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the JSON body into T and runs its validation,
// writing the error envelope itself on failure. The bool reports whether the
// handler should continue.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (PT, bool) {
	req := PT(new(T))

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(req); err != nil {
		logger.WarnContext(r.Context(), "malformed request body", "error", err)
		WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed JSON body"))
		return nil, false
	}

	if err := req.Validate(); err != nil {
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
