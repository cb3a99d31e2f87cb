package reports

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"querygate/internal/auth"
	"querygate/internal/query"
)

type Executor interface {
	Execute(ctx context.Context, req query.Request) query.Outcome
}

type envelope struct {
	User string      `json:"user"`
	Data []query.Row `json:"data"`
}

// Handler serves one report. It expects auth.Guard to have run first and
// the router to have restricted the method.
type Handler struct {
	Report  Report
	Gateway Executor
	Logger  *slog.Logger
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	params, err := h.Report.Bind(r.URL.Query())
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			h.Logger.InfoContext(r.Context(), "report request rejected",
				"report", h.Report.Name, "param", ve.Param, "reason", string(ve.Reason))
			writeDetail(w, http.StatusBadRequest, ve.Detail())
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid request")
		return
	}

	out := h.Gateway.Execute(r.Context(), h.Report.Request(params))
	switch out.Kind {
	case query.KindRows:
		writeJSON(w, http.StatusOK, envelope{User: user.Username, Data: out.Rows})
	case query.KindEmpty:
		writeDetail(w, http.StatusNotFound, h.Report.NotFound)
	default:
		// The cause was already logged by the gateway and stays server-side.
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	body, _ := json.Marshal(map[string]string{"detail": detail})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
