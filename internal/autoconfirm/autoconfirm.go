// Package autoconfirm computes which normalized names inside a multi-name
// group are validated membership, so operators only review the leftovers.
// Confidence order: single-name groups, alias-to-display-name matches, then
// transitive phone/contact evidence inside the group itself.
package autoconfirm

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/audit"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/cluster"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/normalize"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
)

// Engine applies auto-confirmation over a persisted registry. Confirmations
// are written into the registry's override layer, so they survive rebuilds
// exactly like manual ones.
type Engine struct {
	store  registry.Store
	audit  *audit.Publisher
	logger *slog.Logger
}

func New(store registry.Store, auditor *audit.Publisher, logger *slog.Logger) *Engine {
	return &Engine{store: store, audit: auditor, logger: logger}
}

// Summary is one auto-confirm pass.
type Summary struct {
	GroupsExamined int `json:"groups_examined"`
	GroupsChanged  int `json:"groups_changed"`
	NamesConfirmed int `json:"names_confirmed"`
}

// Run confirms names across every group and persists the result. Strictly
// additive: a name confirmed on a previous pass, by hand or by rule, is never
// removed.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	reg, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, id := range reg.SortedIDs() {
		g := reg.Parties[id]
		summary.GroupsExamined++

		confirmed := ConfirmedNames(g, reg.DisplayNameFor(g))
		added := 0
		for _, name := range confirmed {
			if containsString(reg.Overrides.Confirmed[id], name) {
				continue
			}
			reg.Overrides.Confirmed[id] = append(reg.Overrides.Confirmed[id], name)
			added++
		}
		if added > 0 {
			sort.Strings(reg.Overrides.Confirmed[id])
			summary.GroupsChanged++
			summary.NamesConfirmed += added
		}
	}

	if summary.GroupsChanged == 0 {
		e.logger.InfoContext(ctx, "auto-confirm pass made no changes",
			"groups_examined", summary.GroupsExamined)
		return summary, nil
	}

	if err := e.store.Save(reg); err != nil {
		return nil, err
	}
	e.logger.InfoContext(ctx, "auto-confirm pass complete",
		"groups_examined", summary.GroupsExamined,
		"groups_changed", summary.GroupsChanged,
		"names_confirmed", summary.NamesConfirmed,
	)
	if e.audit != nil {
		e.audit.Emit(ctx, audit.Entry{
			Action: audit.ActionNamesAutoConfirmed,
			Diff: map[string]any{
				"groups_changed":  summary.GroupsChanged,
				"names_confirmed": summary.NamesConfirmed,
			},
		})
	}
	return summary, nil
}

// ConfirmedNames computes the confirmed subset of a group's normalized names
// against its display name.
func ConfirmedNames(g *registry.Group, displayName string) []string {
	names := g.NormalizedNames
	if len(names) == 0 {
		return nil
	}
	// Rule 1: a single-name group has nothing to dispute.
	if len(names) == 1 {
		return []string{names[0]}
	}

	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}

	// Rule 2: a name whose alias matches the display name (substring, either
	// direction) is anchored to the group's identity.
	aliasMatched := aliasMatches(g, displayName, pos)

	// Rules 3/4: transitive phone and contact evidence, scoped to this
	// group's own appearances only.
	uf := cluster.NewUnionFind(len(names))
	firstByPhone := make(map[string]int)
	firstByContact := make(map[string]int)
	for _, app := range g.Appearances {
		i, ok := pos[app.NormalizedName]
		if !ok {
			continue
		}
		for _, phone := range app.Phones {
			if len(phone) < cluster.MinPhoneDigits {
				continue
			}
			if j, seen := firstByPhone[phone]; seen {
				uf.Union(i, j)
			} else {
				firstByPhone[phone] = i
			}
		}
		if app.NormalizedContact != "" {
			if j, seen := firstByContact[app.NormalizedContact]; seen {
				uf.Union(i, j)
			} else {
				firstByContact[app.NormalizedContact] = i
			}
		}
	}

	confirmed := make(map[int]bool)
	components := uf.Components()
	anchored := false
	for _, comp := range components {
		for _, i := range comp {
			if !aliasMatched[i] {
				continue
			}
			anchored = true
			for _, member := range comp {
				confirmed[member] = true
			}
			break
		}
	}

	if !anchored {
		// No alias anchor: fall back to the single largest evidence
		// component, but only when it actually connects two names.
		best := -1
		for c, comp := range components {
			if len(comp) < 2 {
				continue
			}
			if best == -1 || len(comp) > len(components[best]) {
				best = c
			}
		}
		if best >= 0 {
			for _, i := range components[best] {
				confirmed[i] = true
			}
		}
	}

	out := make([]string, 0, len(confirmed))
	for i := range confirmed {
		out = append(out, names[i])
	}
	sort.Strings(out)
	return out
}

// aliasMatches flags the index of every name with an alias that is a
// substring of the display name or vice versa.
func aliasMatches(g *registry.Group, displayName string, pos map[string]int) map[int]bool {
	display := normalize.Name(displayName)
	matched := make(map[int]bool)
	if display == "" {
		return matched
	}
	for _, app := range g.Appearances {
		i, ok := pos[app.NormalizedName]
		if !ok || matched[i] {
			continue
		}
		for _, alias := range appearanceAliases(app) {
			cleaned, ok := cluster.CleanAlias(alias, app.NormalizedName)
			if !ok {
				continue
			}
			if strings.Contains(display, cleaned) || strings.Contains(cleaned, display) {
				matched[i] = true
				break
			}
		}
	}
	return matched
}

func appearanceAliases(app scan.Appearance) []string {
	aliases := make([]string, 0, len(app.Aliases)+len(app.AlternateNames)+1)
	aliases = append(aliases, app.Aliases...)
	aliases = append(aliases, app.AlternateNames...)
	if app.BrandAlias != "" {
		aliases = append(aliases, app.BrandAlias)
	}
	return aliases
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
