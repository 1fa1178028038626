// Package evidence answers "why is this name in this group?": it finds either
// a direct shared signal between the queried name and the group's anchor
// name, or the shortest transitive chain of shared signals connecting them.
package evidence

import (
	"context"
	"log/slog"
	"sort"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/cluster"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/normalize"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
)

// Link types, in the order rules consider them.
const (
	LinkPhone   = "phone"
	LinkContact = "contact"
	LinkAddress = "address"
	LinkAlias   = "alias"
)

// TxRef points at one appearance backing a link.
type TxRef struct {
	TransactionID string `json:"transaction_id"`
	Role          string `json:"role"`
}

// Link is one shared signal between two member names, with the transactions
// that carry the signal on each side.
type Link struct {
	Type  string  `json:"type"`
	Value string  `json:"value"`
	From  []TxRef `json:"from"`
	To    []TxRef `json:"to"`
}

// Step is one hop of a transitive chain: the member name reached, and the
// link that reached it from the previous step.
type Step struct {
	Name string `json:"name"`
	Link *Link  `json:"link,omitempty"`
}

// Explanation is the full answer for one (group, name) query. Exactly one of
// Direct or Chain is populated unless the name is the anchor itself.
type Explanation struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	Anchor  string `json:"anchor"`
	Direct  *Link  `json:"direct,omitempty"`
	Chain   []Step `json:"chain,omitempty"`
}

// Service resolves evidence queries against the persisted registry.
type Service struct {
	store  registry.Store
	logger *slog.Logger
}

func NewService(store registry.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Explain loads the registry and explains the membership of name in groupID.
func (s *Service) Explain(ctx context.Context, groupID, name string) (*Explanation, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	g, ok := reg.Group(groupID)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "group %s not found", groupID)
	}
	if !g.HasName(name) {
		return nil, dErrors.Newf(dErrors.CodeUnprocessable, "name %q is not in group %s", name, groupID)
	}
	return Explain(reg, g, name), nil
}

// Explain builds the evidence answer for one member name. The anchor is the
// member holding the group's display name; when the display name's normalized
// form is not itself a member, the first member stands in.
func Explain(reg *registry.Registry, g *registry.Group, name string) *Explanation {
	anchor := anchorName(reg, g)
	exp := &Explanation{GroupID: g.ID, Name: name, Anchor: anchor}
	if name == anchor {
		return exp
	}

	sig := collectSignals(g)
	if link := directLink(sig, name, anchor); link != nil {
		exp.Direct = link
		return exp
	}

	if chain := shortestChain(g, sig, name, anchor); chain != nil {
		exp.Chain = chain
		return exp
	}

	// Disconnected from the anchor (membership came from an override):
	// fall back to a direct link against any other member.
	for _, other := range g.NormalizedNames {
		if other == name {
			continue
		}
		if link := directLink(sig, name, other); link != nil {
			exp.Direct = link
			exp.Anchor = other
			return exp
		}
	}
	return exp
}

// signals maps member name -> link type -> set of values, with the backing
// transaction refs per (name, type, value).
type signals struct {
	values map[string]map[string]map[string]bool
	refs   map[string]map[string]map[string][]TxRef
}

func collectSignals(g *registry.Group) *signals {
	sig := &signals{
		values: make(map[string]map[string]map[string]bool),
		refs:   make(map[string]map[string]map[string][]TxRef),
	}
	add := func(name, linkType, value string, ref TxRef) {
		if value == "" {
			return
		}
		byType, ok := sig.values[name]
		if !ok {
			byType = make(map[string]map[string]bool)
			sig.values[name] = byType
			sig.refs[name] = make(map[string]map[string][]TxRef)
		}
		if byType[linkType] == nil {
			byType[linkType] = make(map[string]bool)
			sig.refs[name][linkType] = make(map[string][]TxRef)
		}
		byType[linkType][value] = true
		sig.refs[name][linkType][value] = append(sig.refs[name][linkType][value], ref)
	}

	for _, app := range g.Appearances {
		ref := TxRef{TransactionID: app.TransactionID, Role: app.Role}
		for _, phone := range app.Phones {
			if len(phone) >= cluster.MinPhoneDigits {
				add(app.NormalizedName, LinkPhone, phone, ref)
			}
		}
		add(app.NormalizedName, LinkContact, app.NormalizedContact, ref)
		if len(app.NormalizedAddress) >= cluster.MinAddressLen {
			add(app.NormalizedName, LinkAddress, app.NormalizedAddress, ref)
		}
		for _, alias := range aliasValues(app) {
			if cleaned, ok := cluster.CleanAlias(alias, app.NormalizedName); ok {
				add(app.NormalizedName, LinkAlias, cleaned, ref)
			}
		}
	}
	return sig
}

func aliasValues(app scan.Appearance) []string {
	out := make([]string, 0, len(app.Aliases)+len(app.AlternateNames)+1)
	out = append(out, app.Aliases...)
	out = append(out, app.AlternateNames...)
	if app.BrandAlias != "" {
		out = append(out, app.BrandAlias)
	}
	return out
}

// directLink returns the strongest shared signal between two member names,
// or nil when they share nothing.
func directLink(sig *signals, from, to string) *Link {
	for _, linkType := range []string{LinkPhone, LinkContact, LinkAddress, LinkAlias} {
		fromValues := sig.values[from][linkType]
		toValues := sig.values[to][linkType]
		if len(fromValues) == 0 || len(toValues) == 0 {
			continue
		}
		shared := make([]string, 0, 1)
		for v := range fromValues {
			if toValues[v] {
				shared = append(shared, v)
			}
		}
		if len(shared) == 0 {
			continue
		}
		sort.Strings(shared)
		v := shared[0]
		return &Link{
			Type:  linkType,
			Value: v,
			From:  sig.refs[from][linkType][v],
			To:    sig.refs[to][linkType][v],
		}
	}
	return nil
}

// shortestChain runs BFS over the member signal graph from name to the
// anchor. The returned chain starts at the queried name and ends at the
// anchor; each step after the first carries the link used to reach it.
func shortestChain(g *registry.Group, sig *signals, name, anchor string) []Step {
	type edge struct {
		prev string
		link *Link
	}
	visited := map[string]bool{name: true}
	parents := make(map[string]edge)
	queue := []string{name}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == anchor {
			break
		}
		// Deterministic expansion order.
		for _, next := range g.NormalizedNames {
			if visited[next] {
				continue
			}
			link := directLink(sig, current, next)
			if link == nil {
				continue
			}
			visited[next] = true
			parents[next] = edge{prev: current, link: link}
			queue = append(queue, next)
		}
	}

	if !visited[anchor] {
		return nil
	}
	var chain []Step
	for at := anchor; at != name; at = parents[at].prev {
		e := parents[at]
		chain = append(chain, Step{Name: at, Link: e.link})
	}
	chain = append(chain, Step{Name: name})
	// reverse: queried name first, anchor last
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func anchorName(reg *registry.Registry, g *registry.Group) string {
	display := normalize.Name(reg.DisplayNameFor(g))
	if g.HasName(display) {
		return display
	}
	if len(g.NormalizedNames) > 0 {
		return g.NormalizedNames[0]
	}
	return ""
}
