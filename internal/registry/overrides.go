package registry

import (
	"time"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
)

// replaySplits re-applies every stored split on a freshly clustered registry.
// A split whose name is gone, or whose removal would empty the source group,
// is skipped and logged rather than failing the rebuild. Returns the skip
// count. Splits run before merges.
func (b *Builder) replaySplits(reg *Registry, now time.Time) int {
	skipped := 0
	for i := range reg.Overrides.Splits {
		split := &reg.Overrides.Splits[i]

		source := reg.GroupByName(split.NormalizedName)
		if source == nil {
			skipped++
			b.logger.Warn("skipping split override: name not in registry",
				"normalized_name", split.NormalizedName, "source", split.Source)
			continue
		}
		if source.ID == split.Target {
			// Clustering already isolated the name where the operator wanted it.
			continue
		}

		moving, remaining := partitionByName(source.Appearances, split.NormalizedName)
		if len(remaining) == 0 {
			skipped++
			b.logger.Warn("skipping split override: would empty source group",
				"normalized_name", split.NormalizedName, "group_id", source.ID)
			continue
		}

		targetID := split.Target
		if targetID == "" {
			targetID = reg.NextID()
		}
		target, ok := reg.Parties[targetID]
		if !ok {
			target = &Group{ID: targetID, CreatedAt: now, UpdatedAt: now}
			reg.Parties[targetID] = target
		}

		source.Appearances = remaining
		target.Appearances = append(target.Appearances, moving...)
		recompute(source)
		recompute(target)
	}
	return skipped
}

// replayMerges folds each stored [target, source] pair. Pairs referencing
// missing groups are skipped and logged; the rebuild itself never fails.
func (b *Builder) replayMerges(reg *Registry) int {
	skipped := 0
	for _, pair := range reg.Overrides.Merge {
		targetID, sourceID := pair[0], pair[1]
		if targetID == sourceID {
			skipped++
			b.logger.Warn("skipping merge override: identical IDs", "group_id", targetID)
			continue
		}
		target, ok := reg.Parties[targetID]
		if !ok {
			skipped++
			b.logger.Warn("skipping merge override: target missing", "target", targetID, "source", sourceID)
			continue
		}
		source, ok := reg.Parties[sourceID]
		if !ok {
			skipped++
			b.logger.Warn("skipping merge override: source missing", "target", targetID, "source", sourceID)
			continue
		}
		fold(reg, target, source)
	}
	return skipped
}

// fold moves every field of source into target and retires the source ID.
// Override layers keyed by the source ID migrate to the target.
func fold(reg *Registry, target, source *Group) {
	target.Appearances = append(target.Appearances, source.Appearances...)
	if source.CreatedAt.Before(target.CreatedAt) {
		target.CreatedAt = source.CreatedAt
	}
	recompute(target)
	delete(reg.Parties, source.ID)

	if confirmed, ok := reg.Overrides.Confirmed[source.ID]; ok {
		merged := append(append([]string{}, reg.Overrides.Confirmed[target.ID]...), confirmed...)
		reg.Overrides.Confirmed[target.ID] = dedupePreserving(merged)
		delete(reg.Overrides.Confirmed, source.ID)
	}
	if dismissed, ok := reg.Overrides.DismissedSuggestions[source.ID]; ok {
		merged := append(append([]string{}, reg.Overrides.DismissedSuggestions[target.ID]...), dismissed...)
		reg.Overrides.DismissedSuggestions[target.ID] = dedupePreserving(merged)
		delete(reg.Overrides.DismissedSuggestions, source.ID)
	}
}

func partitionByName(apps []scan.Appearance, name string) (moving, remaining []scan.Appearance) {
	for _, app := range apps {
		if app.NormalizedName == name {
			moving = append(moving, app)
		} else {
			remaining = append(remaining, app)
		}
	}
	return moving, remaining
}

func dedupePreserving(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
