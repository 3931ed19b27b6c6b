package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-ioc/framework/ai"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/exceptions"
	gohttp "github.com/km-arc/go-ioc/framework/http"
	"github.com/km-arc/go-ioc/framework/routing"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type transport struct{ host string }

type mailer struct {
	t    *transport
	from string
}

func newMailer(t *transport, from string) *mailer { return &mailer{t: t, from: from} }

func seeded(t *testing.T) *container.Container {
	t.Helper()
	c := container.New()
	require.NoError(t, c.Singleton("Transport", container.Value(&transport{host: "smtp.local"})))
	require.NoError(t, c.Bind("Mailer", container.MustClass("SmtpMailer", newMailer,
		container.Dep("transport", "Transport"),
		container.Arg("from").Or("noreply@local"),
	)))
	require.NoError(t, c.Alias("Mailer", "mail"))
	require.NoError(t, c.Alias("mail", "mailer"))
	require.NoError(t, c.AliasInScope("Transport", "mail", "test"))
	c.Tag("outbound", "Mailer", "Transport")
	return c
}

func serve(t *testing.T, c *container.Container, opts ...gohttp.DiagnosticsOption) *routing.Router {
	t.Helper()
	r := routing.New(nil)
	gohttp.NewDiagnostics(c, nil, opts...).Routes(r)
	return r
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]any
	if rr.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr, body
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data envelope, got %v", body)
	return d
}

// ── Bindings ─────────────────────────────────────────────────────────────────

func TestDiagnostics_Bindings(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/bindings")
	require.Equal(t, http.StatusOK, rr.Code)

	rows := data(t, body)["bindings"].([]any)
	require.Len(t, rows, 2)
	first := rows[0].(map[string]any)
	assert.Equal(t, "Mailer", first["abstract"])
	assert.Equal(t, "class", first["kind"])
	assert.Equal(t, false, first["shared"])

	assert.Contains(t, data(t, body)["instances"], "container")
	assert.Contains(t, rr.Header().Get("Cache-Control"), "no-cache")
}

// ── Explain ──────────────────────────────────────────────────────────────────

func TestDiagnostics_Explain(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/explain/mailer")
	require.Equal(t, http.StatusOK, rr.Code)

	ex := data(t, body)["explanation"].(map[string]any)
	assert.Equal(t, "Mailer", ex["resolved_to"])
	assert.Equal(t, "SmtpMailer", ex["concrete"])
	assert.Equal(t, []any{"transport", "from"}, ex["dependencies"])
	assert.Equal(t, []any{"outbound"}, ex["tags"])
	assert.NotContains(t, data(t, body), "summary")
}

func TestDiagnostics_ExplainWithSummary(t *testing.T) {
	c := seeded(t)
	rr, body := get(t, serve(t, c, gohttp.WithExplainer(ai.NewLocalAdapter(c))), "/container/explain/Mailer")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Mailer is a class binding depending on transport, from.", data(t, body)["summary"])
}

type failingExplainer struct{ err error }

func (f failingExplainer) ExplainDependencies(context.Context, container.Explanation) (string, error) {
	return "", f.err
}

func TestDiagnostics_ExplainSummaryErrorIgnored(t *testing.T) {
	for _, err := range []error{ai.ErrDisabled, errors.New("timeout")} {
		rr, body := get(t, serve(t, seeded(t), gohttp.WithExplainer(failingExplainer{err})), "/container/explain/Mailer")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotContains(t, data(t, body), "summary")
	}
}

func TestDiagnostics_ExplainUnbound(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/explain/Queue")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, data(t, body)["bound"])
}

// ── Dependencies ─────────────────────────────────────────────────────────────

func TestDiagnostics_Dependencies(t *testing.T) {
	r := serve(t, seeded(t))

	rr, body := get(t, r, "/container/dependencies/mail")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"transport", "from"}, data(t, body)["dependencies"])

	rr, body = get(t, r, "/container/dependencies/Transport")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{}, data(t, body)["dependencies"])
}

func TestDiagnostics_DependenciesNotFound(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/dependencies/Mailr")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Mailer", body["suggestion"])
}

func TestDiagnostics_DependenciesErrorReport(t *testing.T) {
	h := exceptions.New("local", true)
	rr, body := get(t, serve(t, seeded(t), gohttp.WithExceptionHandler(h)), "/container/dependencies/Mailr")
	require.Equal(t, http.StatusNotFound, rr.Code)

	report, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error report, got %v", body)
	assert.Contains(t, report["message"], "Development error: ")
	assert.Contains(t, report, "trace")
}

func TestDiagnostics_ErrorReportHidden(t *testing.T) {
	h := exceptions.New("production", false)
	_, body := get(t, serve(t, seeded(t), gohttp.WithExceptionHandler(h)), "/container/dependencies/Mailr")
	assert.NotContains(t, body, "error")
	assert.Equal(t, "Mailer", body["suggestion"])
}

func TestDiagnostics_DependenciesCycle(t *testing.T) {
	c := container.New()
	require.NoError(t, c.Alias("b", "a"))
	require.NoError(t, c.Alias("a", "b"))

	rr, body := get(t, serve(t, c), "/container/dependencies/a")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, []any{"a", "b", "a"}, body["chain"])
}

// ── Aliases ──────────────────────────────────────────────────────────────────

func TestDiagnostics_Aliases(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/aliases")
	require.Equal(t, http.StatusOK, rr.Code)

	d := data(t, body)
	assert.Equal(t, map[string]any{"mail": "Mailer", "mailer": "mail"}, d["aliases"])
	assert.Equal(t, map[string]any{"test": map[string]any{"mail": "Transport"}}, d["scoped"])
}

func TestDiagnostics_AliasesInGroup(t *testing.T) {
	c := seeded(t)
	require.NoError(t, c.AssignAliasToGroup("mail", "outbound"))
	require.NoError(t, c.AssignAliasToGroup("mailer", "outbound"))
	r := serve(t, c)

	rr, body := get(t, r, "/container/aliases?group=outbound")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "outbound", data(t, body)["group"])
	assert.ElementsMatch(t, []any{"mail", "mailer"}, data(t, body)["aliases"])

	rr, _ = get(t, r, "/container/aliases?group=")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDiagnostics_ResolveAlias(t *testing.T) {
	r := serve(t, seeded(t))

	tests := []struct {
		name     string
		path     string
		resolved string
	}{
		{"global chain", "/container/aliases/mailer", "Mailer"},
		{"scoped edge", "/container/aliases/mail?scope=test", "Transport"},
		{"unknown scope falls back", "/container/aliases/mail?scope=other", "Mailer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := get(t, r, tt.path)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.resolved, data(t, body)["resolved"])
		})
	}

	_, body := get(t, r, "/container/aliases/mailer")
	assert.Equal(t, []any{"mailer", "mail", "Mailer"}, data(t, body)["path"])
}

func TestDiagnostics_ResolveAliasUnknown(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/aliases/mailerr")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "mailer", body["suggestion"])
}

// ── Profiles ─────────────────────────────────────────────────────────────────

func post(h http.Handler, path, token string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	h.ServeHTTP(rr, req)
	return rr
}

func TestDiagnostics_ActivateProfile(t *testing.T) {
	c := seeded(t)
	c.AliasGraph().DefineProfile("testing", map[string]string{"mailer": "Transport"})
	r := serve(t, c, gohttp.WithAdminToken("s3cret"))

	assert.Equal(t, http.StatusUnauthorized, post(r, "/container/profiles/testing", "").Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/container/profiles/testing", "wrong").Code)

	rr := post(r, "/container/profiles/staging", "s3cret")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = post(r, "/container/profiles/testing", "s3cret")
	require.Equal(t, http.StatusNoContent, rr.Code)
	got, err := c.ResolveAlias("mailer")
	require.NoError(t, err)
	assert.Equal(t, "Transport", got)
}

func TestDiagnostics_ProfilesNeedToken(t *testing.T) {
	c := seeded(t)
	c.AliasGraph().DefineProfile("testing", map[string]string{"mailer": "Transport"})

	rr := post(serve(t, c), "/container/profiles/testing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	got, err := c.ResolveAlias("mailer")
	require.NoError(t, err)
	assert.Equal(t, "Mailer", got)
}

// ── Tags ─────────────────────────────────────────────────────────────────────

func TestDiagnostics_Tagged(t *testing.T) {
	r := serve(t, seeded(t))

	rr, body := get(t, r, "/container/tags/outbound")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"Mailer", "Transport"}, data(t, body)["abstracts"])

	rr, _ = get(t, r, "/container/tags/inbound")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// ── State ────────────────────────────────────────────────────────────────────

func TestDiagnostics_State(t *testing.T) {
	c := seeded(t)
	rr, _ := get(t, serve(t, c), "/container/state")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))

	st, err := container.DecodeState(rr.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, st.Bindings, 2)
	assert.Equal(t, "Mailer", st.Bindings[0].Abstract)
	assert.Equal(t, "SmtpMailer", st.Bindings[0].Class)
	assert.Equal(t, []string{"Mailer", "Transport"}, st.Tags["outbound"])
}

func TestDiagnostics_StateAsJSON(t *testing.T) {
	rr, body := get(t, serve(t, seeded(t)), "/container/state?format=json")
	require.Equal(t, http.StatusOK, rr.Code)

	rows := data(t, body)["bindings"].([]any)
	require.Len(t, rows, 2)
	assert.Equal(t, "SmtpMailer", rows[0].(map[string]any)["class"])
}

func TestDiagnostics_ExplainAsYAML(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/container/explain/mailer", nil)
	req.Header.Set("Accept", "application/yaml")
	serve(t, seeded(t)).ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "resolved_to: Mailer")
}
