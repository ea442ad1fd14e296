package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/interview-cli/internal/config"
	"github.com/sells-group/interview-cli/internal/interview"
	"github.com/sells-group/interview-cli/internal/leadfile"
	"github.com/sells-group/interview-cli/internal/leads"
	"github.com/sells-group/interview-cli/internal/model"
	"github.com/sells-group/interview-cli/internal/store"
)

// errInvalidBody is returned when a request body cannot be decoded.
var errInvalidBody = eris.New("invalid request body")

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// fail maps err onto a status code and JSON body. subject names the thing
// looked up, for not-found messages.
func fail(w http.ResponseWriter, r *http.Request, err error, subject string) {
	status, body := classify(err, subject)
	log := zap.L().With(
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	if status >= http.StatusInternalServerError {
		log.Error("server: request failed")
	} else {
		log.Info("server: request rejected")
	}
	writeJSON(w, status, body)
}

func classify(err error, subject string) (int, errorBody) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorBody{Error: "Validation failed.", Fields: verr.Fields}
	}

	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest, errorBody{Error: errInvalidBody.Error()}
	case errors.Is(err, interview.ErrInvalidRequest),
		errors.Is(err, leads.ErrNoRows),
		errors.Is(err, leadfile.ErrEmpty),
		errors.Is(err, leadfile.ErrUnsupported):
		return http.StatusBadRequest, errorBody{Error: rootMessage(err)}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: subject + " not found."}
	case errors.Is(err, interview.ErrConversationConflict):
		return http.StatusConflict, errorBody{Error: "Conversation was recorded for another interview."}
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, errorBody{Error: subject + " already exists."}
	case errors.Is(err, config.ErrMissingCredential):
		return http.StatusInternalServerError, errorBody{Error: err.Error()}
	}

	var se *interview.StageError
	if errors.As(err, &se) && se.Upstream() {
		return http.StatusBadGateway, errorBody{Error: err.Error()}
	}
	return http.StatusInternalServerError, errorBody{Error: "Internal error."}
}

// rootMessage returns the innermost error text, which for the import
// sentinels is the user-facing message.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
