package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"querygate/internal/auth"
	"querygate/internal/query"
	"querygate/internal/reports"
)

type Gateway interface {
	Execute(ctx context.Context, req query.Request) query.Outcome
}

const pingQuery = "SELECT 1"

func NewRouter(
	logger *slog.Logger,
	authSvc *auth.Service,
	guard *auth.Guard,
	gateway Gateway,
	catalog []reports.Report,
	corsOrigins []string,
) http.Handler {
	mux := http.NewServeMux()

	// Health
	mux.Handle("/healthz", only(http.MethodGet, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})))
	mux.Handle("/readyz", only(http.MethodGet, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := gateway.Execute(r.Context(), query.Request{Name: "ping", Template: pingQuery})
		if !out.IsRows() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})))

	// Auth
	mux.Handle("/token", only(http.MethodPost, &auth.LoginHandler{Service: authSvc, Logger: logger}))
	mux.Handle("/me", only(http.MethodGet, guard.Middleware(auth.MeHandler{})))

	// Reports
	index := make([]reportInfo, 0, len(catalog))
	for _, rep := range catalog {
		var h http.Handler = &reports.Handler{Report: rep, Gateway: gateway, Logger: logger}
		if len(rep.Roles) > 0 {
			h = auth.RequireRole(h.ServeHTTP, rep.Roles...)
		}
		mux.Handle("/info/"+rep.Path, only(http.MethodGet, guard.Middleware(h)))
		index = append(index, newReportInfo(rep))
	}
	mux.Handle("/info", only(http.MethodGet, guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, index)
	}))))

	return withRequestLog(withCORS(mux, corsOrigins), logger)
}

// only rejects other methods with a JSON 405 before auth runs. GET also
// admits HEAD.
func only(method string, next http.Handler) http.Handler {
	allow := method
	if method == http.MethodGet {
		allow = "GET, HEAD"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method && !(method == http.MethodGet && r.Method == http.MethodHead) {
			w.Header().Set("Allow", allow)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"detail": "method not allowed"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

type paramInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type reportInfo struct {
	Name        string      `json:"name"`
	Path        string      `json:"path"`
	Description string      `json:"description,omitempty"`
	Params      []paramInfo `json:"params"`
}

func newReportInfo(rep reports.Report) reportInfo {
	info := reportInfo{
		Name:        rep.Name,
		Path:        "/info/" + rep.Path,
		Description: rep.Description,
		Params:      make([]paramInfo, 0, len(rep.Params)),
	}
	seen := make(map[string]struct{}, len(rep.Params))
	for _, p := range rep.Params {
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		info.Params = append(info.Params, paramInfo{Name: p.Name, Kind: string(p.Kind)})
	}
	return info
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
