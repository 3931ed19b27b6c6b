package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-ioc/framework/ai"
	"github.com/km-arc/go-ioc/framework/container"
	"github.com/km-arc/go-ioc/framework/exceptions"
	"github.com/km-arc/go-ioc/framework/routing"
)

// Diagnostics serves views of a container. Every handler holds mu while it
// touches the container, so the same Locker must guard any other goroutine
// that mutates it. The only write endpoint, profile activation, is mounted
// when an admin token is set.
type Diagnostics struct {
	c         *container.Container
	mu        sync.Locker
	explainer ai.Explainer
	errors    *exceptions.Handler
	token     string
	logger    *zap.Logger
}

// DiagnosticsOption configures Diagnostics.
type DiagnosticsOption func(*Diagnostics)

// WithExplainer adds a prose summary from ex to /container/explain responses.
func WithExplainer(ex ai.Explainer) DiagnosticsOption {
	return func(d *Diagnostics) { d.explainer = ex }
}

// WithExceptionHandler adds the handler's report to error responses as an
// "error" field.
func WithExceptionHandler(h *exceptions.Handler) DiagnosticsOption {
	return func(d *Diagnostics) { d.errors = h }
}

// WithAdminToken mounts the write endpoints behind a bearer token. An empty
// token leaves them unmounted.
func WithAdminToken(token string) DiagnosticsOption {
	return func(d *Diagnostics) { d.token = token }
}

// WithDiagnosticsLogger sets the logger used for handler failures.
func WithDiagnosticsLogger(l *zap.Logger) DiagnosticsOption {
	return func(d *Diagnostics) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDiagnostics creates the handlers. mu may be nil for single-goroutine use.
func NewDiagnostics(c *container.Container, mu sync.Locker, opts ...DiagnosticsOption) *Diagnostics {
	if mu == nil {
		mu = &sync.Mutex{}
	}
	d := &Diagnostics{c: c, mu: mu, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Routes mounts the handlers under /container.
//
//	r := routing.New(logger)
//	gohttp.NewDiagnostics(c, mu).Routes(r)
func (d *Diagnostics) Routes(r *routing.Router) {
	r.Prefix("/container", func(api *routing.Router) {
		api.Middleware(middleware.NoCache)
		api.Get("/bindings", d.Bindings)
		api.Get("/explain/{abstract}", d.Explain)
		api.Get("/dependencies/{abstract}", d.Dependencies)
		api.Get("/aliases", d.Aliases)
		api.Get("/aliases/{alias}", d.ResolveAlias)
		api.Get("/tags/{tag}", d.Tagged)
		api.Get("/state", d.State)

		if d.token == "" {
			return
		}
		api.Group(func(admin *routing.Router) {
			admin.Middleware(d.requireToken)
			admin.Post("/profiles/{profile}", d.ActivateProfile)
		})
	})
}

func (d *Diagnostics) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		given, ok := strings.CutPrefix(NewRequest(r).Header("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(given), []byte(d.token)) != 1 {
			NewResponse(w).Error(http.StatusUnauthorized, "Unauthenticated.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type bindingRow struct {
	Abstract string                 `json:"abstract"`
	Kind     container.ConcreteKind `json:"kind"`
	Shared   bool                   `json:"shared"`
	Resolved bool                   `json:"resolved"`
}

// Bindings lists every binding.
func (d *Diagnostics) Bindings(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	keys := d.c.Bindings()
	rows := make([]bindingRow, 0, len(keys))
	for _, key := range keys {
		concrete, _ := d.c.Binding(key)
		rows = append(rows, bindingRow{
			Abstract: key,
			Kind:     concrete.Kind(),
			Shared:   d.c.IsShared(key),
			Resolved: d.c.Resolved(key),
		})
	}
	instances := d.c.Instances()
	d.mu.Unlock()

	NewResponse(w).Success(map[string]any{"bindings": rows, "instances": instances})
}

// Explain returns Explain(abstract). Unbound keys answer 404 with the
// explanation still in the body.
func (d *Diagnostics) Explain(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(r)
	abstract := req.RouteParam("abstract")

	d.mu.Lock()
	ex := d.c.Explain(abstract)
	d.mu.Unlock()

	res := NewResponse(w)
	if !ex.Bound {
		res.ErrorWith(http.StatusNotFound, "["+abstract+"] is not bound.", map[string]any{"data": ex})
		return
	}

	body := map[string]any{"explanation": ex}
	if d.explainer != nil {
		summary, err := d.explainer.ExplainDependencies(r.Context(), ex)
		switch {
		case err == nil:
			body["summary"] = summary
		case !errors.Is(err, ai.ErrDisabled):
			d.logger.Warn("explain summary failed", zap.String("abstract", abstract), zap.Error(err))
		}
	}
	if req.Format(FormatJSON) == FormatYAML {
		res.YAML(http.StatusOK, body)
		return
	}
	res.Success(body)
}

// Dependencies returns ListDependencies(abstract).
func (d *Diagnostics) Dependencies(w http.ResponseWriter, r *http.Request) {
	abstract := routing.Param(r, "abstract")

	d.mu.Lock()
	deps, err := d.c.ListDependencies(abstract)
	d.mu.Unlock()

	if err != nil {
		d.fail(w, err)
		return
	}
	NewResponse(w).Success(map[string]any{"abstract": abstract, "dependencies": deps})
}

// Aliases dumps the alias graph. With ?group= it lists that group's members
// instead.
func (d *Diagnostics) Aliases(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(r)
	if !req.Has("group") {
		d.mu.Lock()
		report := d.c.AliasGraph().Report()
		d.mu.Unlock()

		NewResponse(w).Success(report)
		return
	}

	group := req.Query("group")
	d.mu.Lock()
	members := d.c.AliasGraph().AliasesInGroup(group)
	d.mu.Unlock()

	if len(members) == 0 {
		NewResponse(w).NotFound("Alias group [" + group + "] is empty.")
		return
	}
	NewResponse(w).Success(map[string]any{"group": group, "aliases": members})
}

// ActivateProfile applies a defined alias profile.
func (d *Diagnostics) ActivateProfile(w http.ResponseWriter, r *http.Request) {
	name := routing.Param(r, "profile")

	d.mu.Lock()
	err := d.c.AliasGraph().ActivateProfile(name)
	d.mu.Unlock()

	res := NewResponse(w)
	switch {
	case errors.Is(err, container.ErrProfileNotFound):
		res.Error(http.StatusNotFound, err.Error())
	case err != nil:
		d.fail(w, err)
	default:
		d.logger.Info("alias profile activated", zap.String("profile", name))
		res.NoContent()
	}
}

// ResolveAlias resolves one alias, optionally in ?scope=, and reports its path.
func (d *Diagnostics) ResolveAlias(w http.ResponseWriter, r *http.Request) {
	req := NewRequest(r)
	alias := req.RouteParam("alias")
	scope := req.Query("scope")

	d.mu.Lock()
	graph := d.c.AliasGraph()
	if !graph.IsAlias(alias) && (scope == "" || !graph.HasScopedAlias(scope, alias)) {
		suggestion, _ := graph.Suggest(alias, scope)
		d.mu.Unlock()
		fields := map[string]any{}
		if suggestion != "" {
			fields["suggestion"] = suggestion
		}
		NewResponse(w).ErrorWith(http.StatusNotFound, "["+alias+"] is not an alias.", fields)
		return
	}
	resolved, err := d.c.ResolveAliasInScope(alias, scope)
	path := d.c.AliasResolutionPath(alias)
	d.mu.Unlock()

	if err != nil {
		d.fail(w, err)
		return
	}
	NewResponse(w).Success(map[string]any{
		"alias":    alias,
		"scope":    scope,
		"resolved": resolved,
		"path":     path,
	})
}

// Tagged lists the keys under a tag without resolving them.
func (d *Diagnostics) Tagged(w http.ResponseWriter, r *http.Request) {
	tag := routing.Param(r, "tag")

	d.mu.Lock()
	keys := d.c.TaggedKeys(tag)
	d.mu.Unlock()

	if len(keys) == 0 {
		NewResponse(w).NotFound("Tag [" + tag + "] is empty.")
		return
	}
	NewResponse(w).Success(map[string]any{"tag": tag, "abstracts": keys})
}

// State returns ExportState, as YAML unless JSON is asked for.
func (d *Diagnostics) State(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	st := d.c.ExportState()
	d.mu.Unlock()

	if NewRequest(r).Format(FormatYAML) == FormatJSON {
		NewResponse(w).Success(st)
		return
	}

	data, err := st.Encode()
	if err != nil {
		d.fail(w, err)
		return
	}
	NewResponse(w).RawYAML(http.StatusOK, data)
}

// fail maps container errors onto status codes. With an exception handler
// the body also carries its report, and server errors are logged through it.
func (d *Diagnostics) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	fields := map[string]any{}

	var notFound *container.ServiceNotFoundError
	var cycle *container.CircularAliasError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
		if notFound.Suggestion != "" {
			fields["suggestion"] = notFound.Suggestion
		}
	case errors.As(err, &cycle):
		status = http.StatusConflict
		fields["chain"] = cycle.Chain
	}

	var report exceptions.Report
	switch {
	case d.errors == nil:
		if status == http.StatusInternalServerError {
			d.logger.Error("diagnostics handler failed", zap.Error(err))
		}
	case status == http.StatusInternalServerError:
		report = d.errors.Handle(err)
	default:
		report = d.errors.Render(err)
	}
	if report.Error != nil {
		fields["error"] = report.Error
	}
	NewResponse(w).ErrorWith(status, err.Error(), fields)
}
