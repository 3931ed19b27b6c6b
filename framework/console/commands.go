package console

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/km-arc/go-ioc/framework/ai"
	"github.com/km-arc/go-ioc/framework/cache"
	"github.com/km-arc/go-ioc/framework/container"
)

func builtins() []Command {
	return []Command{
		{
			Name:        "explain:service",
			Usage:       "<abstract>",
			Description: "Show how an abstract is bound and resolved",
			MinArgs:     1,
			Run:         explainService,
		},
		{
			Name:        "alias:list",
			Usage:       "[group]",
			Description: "List aliases, optionally only one group",
			Run:         aliasList,
		},
		{
			Name:        "alias:resolve",
			Usage:       "<alias> [scope]",
			Description: "Resolve an alias to its abstract",
			MinArgs:     1,
			Run:         aliasResolve,
		},
		{
			Name:        "alias:path",
			Usage:       "<alias>",
			Description: "Print every hop from an alias to its abstract",
			MinArgs:     1,
			Run:         aliasPath,
		},
		{
			Name:        "alias:explain",
			Usage:       "<alias>",
			Description: "Resolve an alias and show its path, groups and usage",
			MinArgs:     1,
			Run:         aliasExplain,
		},
		{
			Name:        "alias:suggest",
			Usage:       "<name>",
			Description: "Suggest aliases close to a mistyped name",
			MinArgs:     1,
			Run:         aliasSuggest,
		},
		{
			Name:        "state:export",
			Description: "Print the container state as YAML",
			Run:         stateExport,
		},
		{
			Name:        "cache:clear",
			Usage:       "[key]",
			Description: "Remove one entry, or every entry, from the file cache",
			Run:         cacheClear,
		},
	}
}

// ── explain:service ──────────────────────────────────────────────────────────

func explainService(k *Kernel, args []string) error {
	abstract := args[0]
	ex := k.c.Explain(abstract)
	if !ex.Bound {
		k.printf("%s\n", k.styles.bad.Render("Service ["+abstract+"] is not bound."))
		return fmt.Errorf("%w: %s", ErrNotBound, abstract)
	}

	k.printf("%s\n", k.styles.title.Render("Service Explanation for: "+abstract))
	k.rule()
	row := func(label, value string) {
		k.printf("• %s : %s\n", k.styles.label.Render(fmt.Sprintf("%-20s", label)), value)
	}
	row("Resolved to", ex.ResolvedTo)
	row("Kind", string(ex.Kind))
	row("Concrete", ex.Concrete)
	row("Shared", k.yesNo(ex.Shared))
	row("Resolved", k.yesNo(ex.Resolved))
	row("Has hooks", k.yesNo(ex.HasHooks))
	row("Tags", list(ex.Tags))
	row("Aliases", list(ex.Aliases))
	row("Dependencies", list(ex.Dependencies))
	if len(ex.Contextual) > 0 {
		var pairs []string
		for _, need := range slices.Sorted(maps.Keys(ex.Contextual)) {
			pairs = append(pairs, need+" => "+ex.Contextual[need])
		}
		row("Contextual", strings.Join(pairs, ", "))
	}
	k.rule()

	if explainer, ok := k.adapter.(ai.Explainer); ok && ai.IsEnabled(k.adapter) {
		summary, err := explainer.ExplainDependencies(context.Background(), ex)
		if err == nil && summary != "" {
			k.printf("%s\n", k.styles.faint.Render(summary))
		}
	}
	return nil
}

func (k *Kernel) yesNo(b bool) string {
	if b {
		return k.styles.ok.Render("yes")
	}
	return k.styles.bad.Render("no")
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

// ── alias:* ──────────────────────────────────────────────────────────────────

func aliasList(k *Kernel, args []string) error {
	g := k.c.AliasGraph()
	aliases := g.Aliases()

	names := slices.Sorted(maps.Keys(aliases))
	if len(args) > 0 {
		names = g.AliasesInGroup(args[0])
		slices.Sort(names)
	}
	if len(names) == 0 {
		k.printf("%s\n", k.styles.faint.Render("No aliases registered."))
		return nil
	}
	for _, alias := range names {
		k.printf("%s -> %s\n", alias, aliases[alias])
	}
	return nil
}

func aliasResolve(k *Kernel, args []string) error {
	alias, scope := args[0], ""
	if len(args) > 1 {
		scope = args[1]
	}

	k.printf("Resolving alias: %s...\n", alias)
	resolved, err := k.c.ResolveAliasInScope(alias, scope)
	if err != nil {
		k.printf("%s\n", k.styles.bad.Render(err.Error()))
		return err
	}
	k.printf("Resolved: %s\n", k.styles.ok.Render(resolved))
	return nil
}

func aliasPath(k *Kernel, args []string) error {
	k.printf("%s\n", strings.Join(k.c.AliasResolutionPath(args[0]), " -> "))
	return nil
}

func aliasExplain(k *Kernel, args []string) error {
	alias := args[0]
	g := k.c.AliasGraph()
	if !g.IsAlias(alias) {
		k.printf("%s\n", k.styles.bad.Render("["+alias+"] is not an alias."))
		if err := suggestFor(k, alias); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrNotAlias, alias)
	}

	resolved, err := k.c.ResolveAlias(alias)
	if err != nil {
		k.printf("%s\n", k.styles.bad.Render(err.Error()))
		return err
	}

	var groups []string
	for group, members := range g.Groups() {
		if slices.Contains(members, alias) {
			groups = append(groups, group)
		}
	}
	slices.Sort(groups)

	k.printf("%s\n", k.styles.title.Render("Alias: "+alias))
	k.rule()
	k.printf("Resolves to : %s\n", resolved)
	k.printf("Path        : %s\n", strings.Join(g.Path(alias), " -> "))
	k.printf("Groups      : %s\n", list(groups))
	k.printf("Usage       : %d\n", g.Usage(alias))
	k.printf("Bound       : %s\n", k.yesNo(k.c.Has(resolved)))
	return nil
}

func aliasSuggest(k *Kernel, args []string) error {
	name := args[0]
	k.printf("Suggesting alternatives for: %s\n", name)
	return suggestFor(k, name)
}

func suggestFor(k *Kernel, name string) error {
	found := false
	if guess, ok := k.c.AliasGraph().Suggest(name, ""); ok {
		k.printf("Did you mean: %s?\n", k.styles.ok.Render(guess))
		found = true
	}
	for _, alias := range k.c.AliasesForAbstract(name) {
		k.printf("Alias of %s: %s\n", name, alias)
		found = true
	}
	if k.adapter != nil && ai.IsEnabled(k.adapter) {
		for _, hint := range k.adapter.Suggest(context.Background(), name) {
			k.printf("%s\n", k.styles.faint.Render("Related: "+hint))
		}
	}
	if !found {
		k.printf("%s\n", k.styles.faint.Render("No alias close to "+name+"."))
	}
	return nil
}

// ── state:export ─────────────────────────────────────────────────────────────

func stateExport(k *Kernel, _ []string) error {
	data, err := k.c.ExportState().Encode()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	_, err = k.out.Write(data)
	return err
}

// ── cache:clear ──────────────────────────────────────────────────────────────

func cacheClear(k *Kernel, args []string) error {
	fc, err := container.Resolve[*cache.FileCache](k.c, "cache")
	if err != nil {
		k.printf("%s\n", k.styles.bad.Render("No file cache is bound."))
		return err
	}

	if len(args) > 0 {
		if err := fc.Clear(args[0]); err != nil {
			return err
		}
		k.printf("%s\n", k.styles.ok.Render("Cache entry ["+args[0]+"] cleared."))
		return nil
	}

	n, err := fc.Flush()
	if err != nil {
		return err
	}
	k.printf("%s\n", k.styles.ok.Render(fmt.Sprintf("Cache cleared: %d entries removed.", n)))
	return nil
}
