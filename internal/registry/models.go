// Package registry materializes clustering components into a persistent,
// auditable registry of party groups, with stable IDs and a durable override
// layer replayed on every rebuild.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
)

// Group is one resolved party identity: the cluster of appearances believed
// to be the same real-world entity. Never hard-deleted; only merged away or
// partially split.
type Group struct {
	ID              string            `json:"id"`
	IsCompany       bool              `json:"is_company"`
	DisplayName     string            `json:"display_name"`
	Names           []string          `json:"names"`
	NormalizedNames []string          `json:"normalized_names"`
	Addresses       []string          `json:"addresses,omitempty"`
	Contacts        []string          `json:"contacts,omitempty"`
	Phones          []string          `json:"phones,omitempty"`
	Aliases         []string          `json:"aliases,omitempty"`
	AlternateNames  []string          `json:"alternate_names,omitempty"`
	Appearances     []scan.Appearance `json:"appearances"`
	TransactionCount int              `json:"transaction_count"`
	BuyCount         int              `json:"buy_count"`
	SellCount        int              `json:"sell_count"`
	FirstActive      string           `json:"first_active,omitempty"`
	LastActive       string           `json:"last_active,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// HasName reports whether the group contains the normalized name.
func (g *Group) HasName(normalized string) bool {
	for _, n := range g.NormalizedNames {
		if n == normalized {
			return true
		}
	}
	return false
}

// Split is one durable split override: a normalized name moved out of
// whatever group currently holds it into the target group.
type Split struct {
	Source         string `json:"source"`
	NormalizedName string `json:"normalized_name"`
	Target         string `json:"target"`
	Reason         string `json:"reason,omitempty"`
	Date           string `json:"date"`
}

// Overrides are the durable, human-curated corrections replayed after every
// automatic rebuild so manual work is never lost to re-clustering.
type Overrides struct {
	Merge                [][2]string         `json:"merge"`
	Splits               []Split             `json:"splits"`
	Confirmed            map[string][]string `json:"confirmed"`
	DisplayName          map[string]string   `json:"display_name"`
	URL                  map[string]string   `json:"url"`
	DismissedSuggestions map[string][]string `json:"dismissed_suggestions"`
}

func (o *Overrides) init() {
	if o.Confirmed == nil {
		o.Confirmed = make(map[string][]string)
	}
	if o.DisplayName == nil {
		o.DisplayName = make(map[string]string)
	}
	if o.URL == nil {
		o.URL = make(map[string]string)
	}
	if o.DismissedSuggestions == nil {
		o.DismissedSuggestions = make(map[string][]string)
	}
}

// Meta summarizes one build.
type Meta struct {
	BuiltAt         time.Time `json:"built_at"`
	SourceDir       string    `json:"source_dir"`
	GroupCount      int       `json:"group_count"`
	CompanyCount    int       `json:"company_count"`
	PersonCount     int       `json:"person_count"`
	AppearanceCount int       `json:"appearance_count"`
}

// Registry is the persisted party registry document.
type Registry struct {
	Parties   map[string]*Group `json:"parties"`
	Overrides Overrides         `json:"overrides"`
	Meta      Meta              `json:"meta"`
}

// NewRegistry returns an empty registry with initialized containers.
func NewRegistry() *Registry {
	r := &Registry{Parties: make(map[string]*Group)}
	r.Overrides.init()
	return r
}

// Group looks up a group by ID.
func (r *Registry) Group(id string) (*Group, bool) {
	g, ok := r.Parties[id]
	return g, ok
}

// GroupByName returns the group holding the normalized name, or nil. The
// override layer keeps each name in exactly one group.
func (r *Registry) GroupByName(normalized string) *Group {
	ids := make([]string, 0, len(r.Parties))
	for id := range r.Parties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if r.Parties[id].HasName(normalized) {
			return r.Parties[id]
		}
	}
	return nil
}

// SortedIDs returns all group IDs in ascending order.
func (r *Registry) SortedIDs() []string {
	ids := make([]string, 0, len(r.Parties))
	for id := range r.Parties {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DisplayNameFor applies any manual display-name override on top of the
// computed one.
func (r *Registry) DisplayNameFor(g *Group) string {
	if name, ok := r.Overrides.DisplayName[g.ID]; ok && name != "" {
		return name
	}
	return g.DisplayName
}

// NextID mints the next monotonic group ID. IDs are never reused: the counter
// always moves past the highest ID ever present, including IDs retired by
// merges and split targets.
func (r *Registry) NextID() string {
	return formatID(maxIDNum(r) + 1)
}

func formatID(n int) string {
	return fmt.Sprintf("G%05d", n)
}

func parseID(id string) (int, bool) {
	var n int
	if _, err := fmt.Sscanf(id, "G%05d", &n); err != nil {
		return 0, false
	}
	return n, true
}
