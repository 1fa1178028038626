package registry

import (
	"log/slog"
	"sort"
	"time"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/cluster"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
	pstrings "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/platform/strings"
)

// Builder turns a scanned appearance corpus into a registry, reusing stable
// group IDs from the previous registry and replaying the override layer.
type Builder struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger, now: time.Now}
}

// BuildStats reports replay outcomes that the build summary surfaces.
type BuildStats struct {
	OverridesSkipped int
}

// Build computes a complete new registry. prev may be nil on the first run.
// The result is deterministic for a given (apps, prev, clock) input.
func (b *Builder) Build(sourceDir string, apps []scan.Appearance, prev *Registry) (*Registry, BuildStats) {
	now := b.now().UTC()
	components := cluster.Components(apps)

	prevNames := previousNameIndex(prev)

	// Resolve each component to an existing ID where any member name
	// matches. Components resolving to the same ID collapse into one group:
	// re-clustering merged what used to be two groups.
	memberIndices := make(map[string][]int)
	var orderedIDs []string
	nextNum := maxIDNum(prev) + 1

	for _, comp := range components {
		id := ""
		for _, i := range comp {
			if existing, ok := prevNames[apps[i].NormalizedName]; ok {
				if id == "" || existing < id {
					id = existing
				}
			}
		}
		if id == "" {
			id = formatID(nextNum)
			nextNum++
		}
		if _, seen := memberIndices[id]; !seen {
			orderedIDs = append(orderedIDs, id)
		}
		memberIndices[id] = append(memberIndices[id], comp...)
	}

	reg := NewRegistry()
	copyOverrides(&reg.Overrides, prev)

	for _, id := range orderedIDs {
		idxs := memberIndices[id]
		sort.Ints(idxs)

		g := &Group{ID: id, CreatedAt: now, UpdatedAt: now}
		if prev != nil {
			if old, ok := prev.Parties[id]; ok {
				g.CreatedAt = old.CreatedAt
			}
		}
		for _, i := range idxs {
			g.Appearances = append(g.Appearances, apps[i])
		}
		recompute(g)
		reg.Parties[id] = g
	}

	stats := BuildStats{}
	stats.OverridesSkipped += b.replaySplits(reg, now)
	stats.OverridesSkipped += b.replayMerges(reg)

	reg.Meta = buildMeta(reg, sourceDir, now, len(apps))
	return reg, stats
}

func buildMeta(reg *Registry, sourceDir string, now time.Time, appearances int) Meta {
	meta := Meta{
		BuiltAt:         now,
		SourceDir:       sourceDir,
		GroupCount:      len(reg.Parties),
		AppearanceCount: appearances,
	}
	for _, g := range reg.Parties {
		if g.IsCompany {
			meta.CompanyCount++
		} else {
			meta.PersonCount++
		}
	}
	return meta
}

// previousNameIndex maps each normalized name to the smallest group ID that
// held it in the prior registry.
func previousNameIndex(prev *Registry) map[string]string {
	index := make(map[string]string)
	if prev == nil {
		return index
	}
	for _, id := range prev.SortedIDs() {
		for _, name := range prev.Parties[id].NormalizedNames {
			if existing, ok := index[name]; !ok || id < existing {
				index[name] = id
			}
		}
	}
	return index
}

func maxIDNum(prev *Registry) int {
	if prev == nil {
		return 0
	}
	max := 0
	scanID := func(id string) {
		if n, ok := parseID(id); ok && n > max {
			max = n
		}
	}
	for id := range prev.Parties {
		scanID(id)
	}
	for _, pair := range prev.Overrides.Merge {
		scanID(pair[0])
		scanID(pair[1])
	}
	for _, split := range prev.Overrides.Splits {
		scanID(split.Source)
		scanID(split.Target)
	}
	return max
}

func copyOverrides(dst *Overrides, prev *Registry) {
	if prev == nil {
		return
	}
	src := prev.Overrides
	dst.Merge = append([][2]string{}, src.Merge...)
	dst.Splits = append([]Split{}, src.Splits...)
	for id, names := range src.Confirmed {
		dst.Confirmed[id] = append([]string{}, names...)
	}
	for id, name := range src.DisplayName {
		dst.DisplayName[id] = name
	}
	for id, url := range src.URL {
		dst.URL[id] = url
	}
	for id, dismissed := range src.DismissedSuggestions {
		dst.DismissedSuggestions[id] = append([]string{}, dismissed...)
	}
}

// recompute rebuilds every aggregate field of a group from its appearance
// list. ID and timestamps are left alone.
func recompute(g *Group) {
	sort.SliceStable(g.Appearances, func(i, j int) bool {
		a, b := g.Appearances[i], g.Appearances[j]
		if a.SaleDate != b.SaleDate {
			return a.SaleDate > b.SaleDate // newest first
		}
		if a.TransactionID != b.TransactionID {
			return a.TransactionID < b.TransactionID
		}
		return a.Role < b.Role
	})

	var names, normalized, addresses, contacts, phones, aliases, alternates []string
	nameFreq := make(map[string]int)
	companyFreq := make(map[string]int)
	transactions := make(map[string]struct{})

	g.IsCompany = false
	g.BuyCount, g.SellCount = 0, 0
	g.FirstActive, g.LastActive = "", ""

	for _, app := range g.Appearances {
		names = append(names, app.Name)
		normalized = append(normalized, app.NormalizedName)
		addresses = append(addresses, app.NormalizedAddress)
		contacts = append(contacts, app.NormalizedContact)
		phones = append(phones, app.Phones...)
		aliases = append(aliases, app.Aliases...)
		if app.BrandAlias != "" {
			aliases = append(aliases, app.BrandAlias)
		}
		alternates = append(alternates, app.AlternateNames...)

		nameFreq[app.Name]++
		if app.IsCompany {
			g.IsCompany = true
			companyFreq[app.Name]++
		}
		transactions[app.TransactionID] = struct{}{}

		switch app.Role {
		case scan.RoleBuyer:
			g.BuyCount++
		case scan.RoleSeller:
			g.SellCount++
		}

		if app.SaleDate != "" {
			if g.FirstActive == "" || app.SaleDate < g.FirstActive {
				g.FirstActive = app.SaleDate
			}
			if app.SaleDate > g.LastActive {
				g.LastActive = app.SaleDate
			}
		}
	}

	g.Names = pstrings.SortedUnique(names)
	g.NormalizedNames = pstrings.SortedUnique(normalized)
	g.Addresses = pstrings.SortedUnique(addresses)
	g.Contacts = pstrings.SortedUnique(contacts)
	g.Phones = pstrings.SortedUnique(phones)
	g.Aliases = pstrings.SortedUnique(aliases)
	g.AlternateNames = pstrings.SortedUnique(alternates)
	g.TransactionCount = len(transactions)

	g.DisplayName = mostFrequent(companyFreq)
	if g.DisplayName == "" {
		g.DisplayName = mostFrequent(nameFreq)
	}
}

// mostFrequent picks the highest-count name, breaking ties lexicographically
// so rebuilds are deterministic.
func mostFrequent(freq map[string]int) string {
	best, bestCount := "", 0
	for name, count := range freq {
		if count > bestCount || (count == bestCount && (best == "" || name < best)) {
			best, bestCount = name, count
		}
	}
	return best
}
