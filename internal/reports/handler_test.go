package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querygate/internal/auth"
	"querygate/internal/logging"
	"querygate/internal/query"
)

type stubGateway struct {
	out   query.Outcome
	calls int
	last  query.Request
}

func (s *stubGateway) Execute(_ context.Context, req query.Request) query.Outcome {
	s.calls++
	s.last = req
	return s.out
}

type noRows struct{}

func (noRows) Query(context.Context, string, ...any) ([]query.Row, error) { return nil, nil }

func catalogReport(t *testing.T, name string) Report {
	t.Helper()
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	for _, r := range cat {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("%s report missing from catalog", name)
	return Report{}
}

func clientReport(t *testing.T) Report { return catalogReport(t, "client") }

func serve(h http.Handler, target string, user *auth.Principal) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if user != nil {
		r = r.WithContext(auth.WithPrincipal(r.Context(), user))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

var alice = &auth.Principal{Username: "alice", DisplayName: "Alice Example", Role: auth.RoleAnalyst}

func TestHandler_Rows(t *testing.T) {
	gw := &stubGateway{out: query.Rows([]query.Row{{
		Columns: []string{"CODCLI", "CLIENTE"},
		Values:  []any{int64(42), "ACME"},
	}})}
	h := &Handler{Report: clientReport(t), Gateway: gw, Logger: logging.Discard()}

	w := serve(h, "/info/client?codcli=42", alice)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"alice","data":[{"CODCLI":42,"CLIENTE":"ACME"}]}`, w.Body.String())
	assert.Equal(t, "client", gw.last.Name)
	require.Len(t, gw.last.Params, 1)
	assert.Equal(t, int64(42), gw.last.Params[0].Value)
}

func TestHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		target string
		out    query.Outcome
		status int
		detail string
		calls  int
	}{
		{"empty is not found", "/info/client?codcli=7", query.Empty(), http.StatusNotFound, "client not found", 1},
		{"failure is internal", "/info/client?codcli=7", query.Failure(errors.New(`pq: relation "fxiqviacli" does not exist`)), http.StatusInternalServerError, "internal server error", 1},
		{"non-positive code", "/info/client?codcli=0", query.Empty(), http.StatusBadRequest, "invalid code in codcli", 0},
		{"missing code", "/info/client", query.Empty(), http.StatusBadRequest, "missing parameter codcli", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &stubGateway{out: tc.out}
			h := &Handler{Report: clientReport(t), Gateway: gw, Logger: logging.Discard()}

			w := serve(h, tc.target, alice)

			assert.Equal(t, tc.status, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.detail, body["detail"])
			assert.Equal(t, tc.calls, gw.calls)
			assert.NotContains(t, w.Body.String(), "relation")
		})
	}
}

func TestHandler_RequiresPrincipal(t *testing.T) {
	gw := &stubGateway{out: query.Empty()}
	h := &Handler{Report: clientReport(t), Gateway: gw, Logger: logging.Discard()}

	w := serve(h, "/info/client?codcli=1", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, gw.calls)
}

func TestHandler_SearchTextIsNotLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := &Handler{
		Report:  catalogReport(t, "promotions"),
		Gateway: query.NewGateway(noRows{}, logger),
		Logger:  logger,
	}

	w := serve(h, "/info/promos?codfilial=1&condicoes=customer+cpf+123.456.789-00", alice)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, buf.String(), "query returned no rows")
	assert.Contains(t, buf.String(), "[redacted]")
	assert.NotContains(t, buf.String(), "123.456.789-00")
}
