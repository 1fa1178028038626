// Package suggest surfaces likely-affiliated groups for an operator to review:
// other groups sharing phones, contact people, or office addresses with the
// target. Suggestions are advisory only; nothing merges without a human.
package suggest

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/cluster"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/registry"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
)

// Signal weights. Phones are the strongest affiliation evidence, shared
// office addresses the weakest.
const (
	PhoneWeight   = 3
	ContactWeight = 2
	AddressWeight = 1
)

// Suggestion is one candidate affiliate, with the shared evidence that put it
// on the list.
type Suggestion struct {
	GroupID         string   `json:"group_id"`
	DisplayName     string   `json:"display_name"`
	Score           int      `json:"score"`
	SharedPhones    []string `json:"shared_phones,omitempty"`
	SharedContacts  []string `json:"shared_contacts,omitempty"`
	SharedAddresses []string `json:"shared_addresses,omitempty"`
}

// index holds the three inverted maps suggestions are computed from. Rebuilt
// only when the registry's modification time moves.
type index struct {
	byPhone   map[string][]string
	byContact map[string][]string
	byAddress map[string][]string
}

// Service computes ranked affiliate suggestions over the persisted registry.
type Service struct {
	store  registry.Store
	logger *slog.Logger

	mu      sync.Mutex
	builtAt time.Time
	idx     *index
}

func NewService(store registry.Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// ForGroup returns every candidate affiliate of groupID, scored and sorted
// descending (ties broken by group ID). The group itself and anything on its
// dismissed list are excluded.
func (s *Service) ForGroup(ctx context.Context, groupID string) ([]Suggestion, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	g, ok := reg.Group(groupID)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "group %s not found", groupID)
	}

	idx, err := s.indexFor(ctx, reg)
	if err != nil {
		return nil, err
	}

	dismissed := make(map[string]bool, len(reg.Overrides.DismissedSuggestions[groupID]))
	for _, id := range reg.Overrides.DismissedSuggestions[groupID] {
		dismissed[id] = true
	}

	candidates := make(map[string]*Suggestion)
	collect := func(values []string, inverted map[string][]string, weight int, record func(*Suggestion, string)) {
		for _, v := range values {
			for _, other := range inverted[v] {
				if other == groupID || dismissed[other] {
					continue
				}
				c, ok := candidates[other]
				if !ok {
					c = &Suggestion{GroupID: other}
					candidates[other] = c
				}
				c.Score += weight
				record(c, v)
			}
		}
	}

	collect(g.Phones, idx.byPhone, PhoneWeight, func(c *Suggestion, v string) {
		c.SharedPhones = append(c.SharedPhones, v)
	})
	collect(g.Contacts, idx.byContact, ContactWeight, func(c *Suggestion, v string) {
		c.SharedContacts = append(c.SharedContacts, v)
	})
	collect(g.Addresses, idx.byAddress, AddressWeight, func(c *Suggestion, v string) {
		c.SharedAddresses = append(c.SharedAddresses, v)
	})

	out := make([]Suggestion, 0, len(candidates))
	for id, c := range candidates {
		if other, ok := reg.Group(id); ok {
			c.DisplayName = reg.DisplayNameFor(other)
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].GroupID < out[j].GroupID
	})
	return out, nil
}

// indexFor returns the cached inverted indices, rebuilding them when the
// registry file has been replaced since the last build.
func (s *Service) indexFor(ctx context.Context, reg *registry.Registry) (*index, error) {
	mtime, err := s.store.ModTime()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx != nil && mtime.Equal(s.builtAt) {
		return s.idx, nil
	}

	start := time.Now()
	s.idx = buildIndex(reg)
	s.builtAt = mtime
	s.logger.InfoContext(ctx, "suggestion indices rebuilt",
		"groups", len(reg.Parties),
		"phones", len(s.idx.byPhone),
		"contacts", len(s.idx.byContact),
		"addresses", len(s.idx.byAddress),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return s.idx, nil
}

func buildIndex(reg *registry.Registry) *index {
	idx := &index{
		byPhone:   make(map[string][]string),
		byContact: make(map[string][]string),
		byAddress: make(map[string][]string),
	}
	for _, id := range reg.SortedIDs() {
		g := reg.Parties[id]
		for _, phone := range g.Phones {
			if len(phone) < cluster.MinPhoneDigits {
				continue
			}
			idx.byPhone[phone] = append(idx.byPhone[phone], id)
		}
		for _, contact := range g.Contacts {
			if contact == "" {
				continue
			}
			idx.byContact[contact] = append(idx.byContact[contact], id)
		}
		for _, addr := range g.Addresses {
			if len(addr) < cluster.MinAddressLen {
				continue
			}
			idx.byAddress[addr] = append(idx.byAddress[addr], id)
		}
	}
	return idx
}
