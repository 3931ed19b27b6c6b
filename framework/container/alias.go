package container

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"
)

// DefaultSuggestionDistance is the largest edit distance reported as a
// "did you mean" suggestion.
const DefaultSuggestionDistance = 3

// ResolveContext is the free-form context handed to resolution hooks.
// A "scope" entry selects the alias scope when none is given explicitly.
type ResolveContext map[string]any

// BeforeResolveHook runs before every alias resolution attempt.
type BeforeResolveHook func(name, scope string, ctx ResolveContext) error

// AfterResolveHook runs after every successful alias resolution.
type AfterResolveHook func(name, resolved, scope string, ctx ResolveContext) error

// OverwriteHook receives the warning raised when an alias is re-pointed.
type OverwriteHook func(alias, previous, next string)

// ContextResolver contributes entries to every ResolveContext.
type ContextResolver func() ResolveContext

// ResolutionLog records one successful resolution while logging is enabled.
type ResolutionLog struct {
	Alias    string
	Resolved string
	Scope    string
	Context  ResolveContext
	Visited  []string
	At       time.Time
}

// AliasUsage is one row of UsageStats.
type AliasUsage struct {
	Alias string
	Count int
}

// AliasConflict lists several aliases sharing one abstract.
type AliasConflict struct {
	Abstract string
	Aliases  []string
}

// AliasReport is a read-only dump of the graph for dashboards and the CLI.
type AliasReport struct {
	Aliases   map[string]string            `json:"aliases" yaml:"aliases"`
	Groups    map[string][]string          `json:"groups" yaml:"groups"`
	Scoped    map[string]map[string]string `json:"scoped" yaml:"scoped"`
	Profiles  map[string]map[string]string `json:"profiles" yaml:"profiles"`
	Conflicts []AliasConflict              `json:"conflicts" yaml:"conflicts"`
	Cycles    [][]string                   `json:"cycles" yaml:"cycles"`
	Usage     []AliasUsage                 `json:"usage" yaml:"usage"`
}

// AliasGraph stores alias→abstract edges (global, scoped and grouped),
// resolves chains with cycle detection, caches terminal results and offers
// fuzzy suggestions for mistyped names.
//
// An AliasGraph is not safe for concurrent use.
type AliasGraph struct {
	// alias → abstract
	aliases map[string]string

	// original name → terminal key
	cache map[string]string

	// alias → successful resolutions
	usage map[string]int

	// group → aliases, insertion order
	groups map[string][]string

	// scope → alias → abstract
	scoped map[string]map[string]string

	// profile → alias → abstract
	profiles map[string]map[string]string

	contextResolvers []ContextResolver
	before           []BeforeResolveHook
	after            []AfterResolveHook
	overwrite        []OverwriteHook

	logging bool
	logs    []ResolutionLog

	maxDistance int
	logger      *zap.Logger
	now         func() time.Time
}

// AliasOption configures an AliasGraph.
type AliasOption func(*AliasGraph)

// WithSuggestionDistance sets the largest edit distance reported as a
// suggestion. Zero disables suggestions.
func WithSuggestionDistance(n int) AliasOption {
	return func(g *AliasGraph) { g.maxDistance = n }
}

// WithAliasLogger sets the logger used for overwrite warnings.
func WithAliasLogger(l *zap.Logger) AliasOption {
	return func(g *AliasGraph) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewAliasGraph creates an empty graph.
func NewAliasGraph(opts ...AliasOption) *AliasGraph {
	g := &AliasGraph{
		aliases:     make(map[string]string),
		cache:       make(map[string]string),
		usage:       make(map[string]int),
		groups:      make(map[string][]string),
		scoped:      make(map[string]map[string]string),
		profiles:    make(map[string]map[string]string),
		maxDistance: DefaultSuggestionDistance,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ── Edges ─────────────────────────────────────────────────────────────────────

// Alias registers alias as another name for abstract. Re-pointing an existing
// alias is allowed but reported to the OnOverwrite handlers and the logger,
// since callers of the old target silently change behaviour.
//
//	// Laravel: $app->alias(Cache::class, 'cache')
//	g.Alias("CacheManager", "cache")
func (g *AliasGraph) Alias(abstract, alias string) error {
	if abstract == alias {
		return fmt.Errorf("%w: [%s]", ErrSelfAlias, alias)
	}
	if prev, ok := g.aliases[alias]; ok && prev != abstract {
		g.warnOverwrite(alias, prev, abstract)
	}
	g.aliases[alias] = abstract
	g.invalidate()
	return nil
}

// AliasInScope registers an edge that is only followed when resolving within
// scope.
func (g *AliasGraph) AliasInScope(abstract, alias, scope string) error {
	if abstract == alias {
		return fmt.Errorf("%w: [%s] in scope '%s'", ErrSelfAlias, alias, scope)
	}
	edges, ok := g.scoped[scope]
	if !ok {
		edges = make(map[string]string)
		g.scoped[scope] = edges
	}
	edges[alias] = abstract
	return nil
}

// ForgetAliasScope drops every edge registered for scope.
func (g *AliasGraph) ForgetAliasScope(scope string) {
	delete(g.scoped, scope)
}

// RemoveAlias deletes alias and its group memberships.
func (g *AliasGraph) RemoveAlias(alias string) {
	delete(g.aliases, alias)
	delete(g.usage, alias)
	g.invalidate()

	for group, members := range g.groups {
		members = slices.DeleteFunc(members, func(a string) bool { return a == alias })
		if len(members) == 0 {
			delete(g.groups, group)
			continue
		}
		g.groups[group] = members
	}
}

// IsAlias reports whether name is a registered global alias.
func (g *AliasGraph) IsAlias(name string) bool {
	_, ok := g.aliases[name]
	return ok
}

// HasScopedAlias reports whether scope has an edge for name.
func (g *AliasGraph) HasScopedAlias(scope, name string) bool {
	_, ok := g.scoped[scope][name]
	return ok
}

// AbstractFor returns the direct target of alias (one hop).
func (g *AliasGraph) AbstractFor(alias string) (string, bool) {
	abstract, ok := g.aliases[alias]
	return abstract, ok
}

// AliasesFor returns the aliases pointing directly at abstract, sorted.
func (g *AliasGraph) AliasesFor(abstract string) []string {
	var out []string
	for alias, target := range g.aliases {
		if target == abstract {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// Aliases returns a copy of the global edges.
func (g *AliasGraph) Aliases() map[string]string {
	return maps.Clone(g.aliases)
}

// OnOverwrite registers a handler for the re-pointed alias warning.
func (g *AliasGraph) OnOverwrite(cb OverwriteHook) {
	g.overwrite = append(g.overwrite, cb)
}

func (g *AliasGraph) warnOverwrite(alias, prev, next string) {
	g.logger.Warn("alias overwritten; existing callers now resolve elsewhere",
		zap.String("alias", alias),
		zap.String("previous", prev),
		zap.String("next", next),
	)
	for _, cb := range g.overwrite {
		cb(alias, prev, next)
	}
}

// invalidate drops every cached resolution: any edge change may reroute
// chains that pass through it.
func (g *AliasGraph) invalidate() {
	clear(g.cache)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve follows name to its terminal abstract. See ResolveWithContext.
func (g *AliasGraph) Resolve(name, scope string) (string, error) {
	return g.ResolveWithContext(name, scope, nil)
}

// ResolveWithContext follows name to its terminal abstract.
//
// When scope is set and has an edge for name, only that scope's edges are
// walked. Otherwise a cached result is returned, or the global edges are
// walked and the result cached under the original name. Names that are not
// aliases resolve to themselves. A name seen twice during one walk yields a
// *CircularAliasError carrying the visited chain.
func (g *AliasGraph) ResolveWithContext(name, scope string, ctx ResolveContext) (string, error) {
	merged := g.resolveContext()
	maps.Copy(merged, ctx)
	if scope == "" {
		if s, ok := merged["scope"].(string); ok {
			scope = s
		}
	}

	for _, cb := range g.before {
		if err := cb(name, scope, merged); err != nil {
			return "", err
		}
	}

	resolved, visited, err := g.walk(name, scope)
	if err != nil {
		return "", err
	}

	for _, cb := range g.after {
		if err := cb(name, resolved, scope, merged); err != nil {
			return "", err
		}
	}

	if g.logging {
		g.logs = append(g.logs, ResolutionLog{
			Alias:    name,
			Resolved: resolved,
			Scope:    scope,
			Context:  merged,
			Visited:  visited,
			At:       g.now(),
		})
	}
	return resolved, nil
}

func (g *AliasGraph) walk(name, scope string) (string, []string, error) {
	if scope != "" && g.HasScopedAlias(scope, name) {
		resolved, visited, ok := follow(name, g.scoped[scope])
		if !ok {
			return "", visited, g.cycleError(name, scope, visited)
		}
		g.usage[name]++
		return resolved, visited, nil
	}

	if resolved, ok := g.cache[name]; ok {
		g.usage[name]++
		return resolved, nil, nil
	}

	resolved, visited, ok := follow(name, g.aliases)
	if !ok {
		return "", visited, g.cycleError(name, "", visited)
	}
	if len(visited) > 0 {
		g.cache[name] = resolved
		g.usage[name]++
	}
	return resolved, visited, nil
}

// follow walks edges from name until it reaches a name with no outgoing edge.
// On a repeated name it returns the chain ending in the repeat and false.
func follow(name string, edges map[string]string) (string, []string, bool) {
	var visited []string
	seen := make(map[string]bool)
	for {
		next, ok := edges[name]
		if !ok {
			return name, visited, true
		}
		if seen[name] {
			return "", append(visited, name), false
		}
		seen[name] = true
		visited = append(visited, name)
		name = next
	}
}

func (g *AliasGraph) cycleError(name, scope string, chain []string) error {
	suggestion, _ := g.Suggest(name, scope)
	return &CircularAliasError{Chain: chain, Scope: scope, Suggestion: suggestion}
}

// peek resolves name globally without hooks, caching or usage tracking.
func (g *AliasGraph) peek(name string) (string, bool) {
	resolved, _, ok := follow(name, g.aliases)
	return resolved, ok
}

// Path returns the hops from name to its terminal abstract, terminal
// included. It reports no cycle errors; the walk stops after as many hops as
// there are edges, so a cyclic graph yields a repeating path instead of
// hanging.
func (g *AliasGraph) Path(name string) []string {
	var path []string
	for hops := 0; hops <= len(g.aliases); hops++ {
		next, ok := g.aliases[name]
		if !ok {
			break
		}
		path = append(path, name)
		name = next
	}
	return append(path, name)
}

// ── Suggestions ───────────────────────────────────────────────────────────────

// Suggest returns the alias closest to input by edit distance, if within the
// configured maximum. Candidates are scope's aliases when scope has any, else
// all global aliases. input itself is never suggested.
func (g *AliasGraph) Suggest(input, scope string) (string, bool) {
	var candidates []string
	if edges, ok := g.scoped[scope]; ok && scope != "" {
		candidates = slices.Collect(maps.Keys(edges))
	} else {
		candidates = slices.Collect(maps.Keys(g.aliases))
	}
	return closest(input, candidates, g.maxDistance)
}

// ResolveGuess returns the direct target of the alias closest to name.
func (g *AliasGraph) ResolveGuess(name string) (string, bool) {
	guess, ok := g.Suggest(name, "")
	if !ok {
		return "", false
	}
	return g.aliases[guess], true
}

func closest(input string, candidates []string, maxDistance int) (string, bool) {
	if maxDistance <= 0 {
		return "", false
	}
	sort.Strings(candidates)

	best, bestDist := "", -1
	for _, candidate := range candidates {
		if candidate == input {
			continue
		}
		d := levenshtein.ComputeDistance(input, candidate)
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}
	if bestDist < 0 || bestDist > maxDistance {
		return "", false
	}
	return best, true
}

// ── Groups ────────────────────────────────────────────────────────────────────

// AssignToGroup adds a registered alias to group. Membership is
// non-exclusive and has no effect on resolution.
func (g *AliasGraph) AssignToGroup(alias, group string) error {
	if !g.IsAlias(alias) {
		return fmt.Errorf("%w: cannot assign [%s] to group '%s'", ErrUnknownAlias, alias, group)
	}
	if !slices.Contains(g.groups[group], alias) {
		g.groups[group] = append(g.groups[group], alias)
	}
	return nil
}

// AliasesInGroup returns the members of group in assignment order.
func (g *AliasGraph) AliasesInGroup(group string) []string {
	return slices.Clone(g.groups[group])
}

// Groups returns a copy of every group.
func (g *AliasGraph) Groups() map[string][]string {
	out := make(map[string][]string, len(g.groups))
	for name, members := range g.groups {
		out[name] = slices.Clone(members)
	}
	return out
}

// ── Profiles ──────────────────────────────────────────────────────────────────

// DefineProfile stores a named alias→abstract edge set for later activation.
func (g *AliasGraph) DefineProfile(name string, edges map[string]string) {
	g.profiles[name] = maps.Clone(edges)
}

// ActivateProfile applies every edge of the profile through Alias, in alias
// order, so overwrites raise the usual warning. The profile is checked before
// any edge is applied.
func (g *AliasGraph) ActivateProfile(name string) error {
	edges, ok := g.profiles[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrProfileNotFound, name)
	}
	for alias, abstract := range edges {
		if alias == abstract {
			return fmt.Errorf("profile '%s': %w: [%s]", name, ErrSelfAlias, alias)
		}
	}
	for _, alias := range slices.Sorted(maps.Keys(edges)) {
		if err := g.Alias(edges[alias], alias); err != nil {
			return err
		}
	}
	return nil
}

// RemoveProfile forgets a profile definition. Edges it applied stay.
func (g *AliasGraph) RemoveProfile(name string) {
	delete(g.profiles, name)
}

// Profiles returns a copy of every profile definition.
func (g *AliasGraph) Profiles() map[string]map[string]string {
	out := make(map[string]map[string]string, len(g.profiles))
	for name, edges := range g.profiles {
		out[name] = maps.Clone(edges)
	}
	return out
}

// ── Hooks & context ───────────────────────────────────────────────────────────

// OnBeforeResolve registers a hook run before every resolution attempt,
// cached or not. A hook error aborts the resolution.
func (g *AliasGraph) OnBeforeResolve(cb BeforeResolveHook) {
	g.before = append(g.before, cb)
}

// OnAfterResolve registers a hook run after every successful resolution.
func (g *AliasGraph) OnAfterResolve(cb AfterResolveHook) {
	g.after = append(g.after, cb)
}

// RegisterContextResolver adds a source of ResolveContext entries. Later
// resolvers override earlier ones; explicit context overrides both.
func (g *AliasGraph) RegisterContextResolver(r ContextResolver) {
	g.contextResolvers = append(g.contextResolvers, r)
}

func (g *AliasGraph) resolveContext() ResolveContext {
	ctx := make(ResolveContext)
	for _, r := range g.contextResolvers {
		maps.Copy(ctx, r())
	}
	return ctx
}

// ── Diagnostics ───────────────────────────────────────────────────────────────

// EnableLogging toggles recording of successful resolutions.
func (g *AliasGraph) EnableLogging(enabled bool) { g.logging = enabled }

// ResolutionLogs returns the recorded resolutions, oldest first.
func (g *AliasGraph) ResolutionLogs() []ResolutionLog { return slices.Clone(g.logs) }

// ClearResolutionLogs drops the recorded resolutions.
func (g *AliasGraph) ClearResolutionLogs() { g.logs = nil }

// UsageStats returns per-alias resolution counts, most used first.
func (g *AliasGraph) UsageStats() []AliasUsage {
	out := make([]AliasUsage, 0, len(g.usage))
	for alias, n := range g.usage {
		out = append(out, AliasUsage{Alias: alias, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Alias < out[j].Alias
	})
	return out
}

// Usage returns how many times alias was resolved.
func (g *AliasGraph) Usage(alias string) int { return g.usage[alias] }

// DetectConflicts lists abstracts reachable through more than one alias.
func (g *AliasGraph) DetectConflicts() []AliasConflict {
	byAbstract := make(map[string][]string)
	for alias, abstract := range g.aliases {
		byAbstract[abstract] = append(byAbstract[abstract], alias)
	}
	var out []AliasConflict
	for _, abstract := range slices.Sorted(maps.Keys(byAbstract)) {
		aliases := byAbstract[abstract]
		if len(aliases) < 2 {
			continue
		}
		sort.Strings(aliases)
		out = append(out, AliasConflict{Abstract: abstract, Aliases: aliases})
	}
	return out
}

// DetectCycles returns one chain per cycle in the global edges, each starting
// at its lexically smallest member and ending with that member repeated.
func (g *AliasGraph) DetectCycles() [][]string {
	var out [][]string
	seen := make(map[string]bool)
	for _, alias := range slices.Sorted(maps.Keys(g.aliases)) {
		_, chain, ok := follow(alias, g.aliases)
		if ok || chain[0] != chain[len(chain)-1] {
			continue
		}
		members := slices.Clone(chain[:len(chain)-1])
		sort.Strings(members)
		key := strings.Join(members, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, chain)
	}
	return out
}

// Report dumps the whole graph.
func (g *AliasGraph) Report() AliasReport {
	scoped := make(map[string]map[string]string, len(g.scoped))
	for scope, edges := range g.scoped {
		scoped[scope] = maps.Clone(edges)
	}
	return AliasReport{
		Aliases:   g.Aliases(),
		Groups:    g.Groups(),
		Scoped:    scoped,
		Profiles:  g.Profiles(),
		Conflicts: g.DetectConflicts(),
		Cycles:    g.DetectCycles(),
		Usage:     g.UsageStats(),
	}
}
