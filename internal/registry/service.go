package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/audit"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/platform/metrics"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/platform/sentinel"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/requestcontext"
)

// Service exposes the registry operations consumed by the CLI and the HTTP
// layer: full rebuilds plus the manual override mutations. Every mutation is
// validated, applied all-or-nothing via atomic replace, and audited.
type Service struct {
	store     Store
	scanner   *scan.Scanner
	builder   *Builder
	corpusDir string
	audit     *audit.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewService(store Store, scanner *scan.Scanner, builder *Builder, corpusDir string, auditor *audit.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		scanner:   scanner,
		builder:   builder,
		corpusDir: corpusDir,
		audit:     auditor,
		logger:    logger,
		metrics:   m,
	}
}

// BuildSummary reports one rebuild.
type BuildSummary struct {
	Groups           int           `json:"groups"`
	Companies        int           `json:"companies"`
	Persons          int           `json:"persons"`
	Appearances      int           `json:"appearances"`
	RecordsRead      int           `json:"records_read"`
	RecordsSkipped   int           `json:"records_skipped"`
	OverridesSkipped int           `json:"overrides_skipped"`
	Duration         time.Duration `json:"duration_ns"`
}

// Build recomputes the whole registry from the corpus, carrying IDs and
// overrides forward from the previously persisted registry.
func (s *Service) Build(ctx context.Context) (*BuildSummary, error) {
	start := time.Now()

	prev, err := s.store.Load()
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("load previous registry: %w", err)
	}

	result, err := s.scanner.Scan(s.corpusDir)
	if err != nil {
		return nil, fmt.Errorf("scan corpus: %w", err)
	}

	reg, stats := s.builder.Build(s.corpusDir, result.Appearances, prev)
	if err := s.store.Save(reg); err != nil {
		return nil, fmt.Errorf("save registry: %w", err)
	}

	summary := &BuildSummary{
		Groups:           reg.Meta.GroupCount,
		Companies:        reg.Meta.CompanyCount,
		Persons:          reg.Meta.PersonCount,
		Appearances:      reg.Meta.AppearanceCount,
		RecordsRead:      result.RecordsRead,
		RecordsSkipped:   result.RecordsSkipped,
		OverridesSkipped: stats.OverridesSkipped,
		Duration:         time.Since(start),
	}

	if s.metrics != nil {
		s.metrics.BuildsRun.Inc()
		s.metrics.BuildDuration.Observe(summary.Duration.Seconds())
		s.metrics.ScanErrors.Add(float64(summary.RecordsSkipped))
		s.metrics.OverridesSkipped.Add(float64(summary.OverridesSkipped))
		s.metrics.Groups.Set(float64(summary.Groups))
		s.metrics.Appearances.Set(float64(summary.Appearances))
	}

	s.logger.InfoContext(ctx, "registry rebuilt",
		"groups", summary.Groups,
		"appearances", summary.Appearances,
		"records_skipped", summary.RecordsSkipped,
		"overrides_skipped", summary.OverridesSkipped,
		"duration_ms", summary.Duration.Milliseconds(),
	)

	s.emit(ctx, audit.Entry{
		Action: audit.ActionRegistryBuilt,
		Diff: map[string]any{
			"groups":          summary.Groups,
			"appearances":     summary.Appearances,
			"records_skipped": summary.RecordsSkipped,
		},
	})
	return summary, nil
}

// Group returns one group by ID.
func (s *Service) Group(ctx context.Context, id string) (*Registry, *Group, error) {
	reg, err := s.store.Load()
	if err != nil {
		return nil, nil, err
	}
	g, ok := reg.Group(id)
	if !ok {
		return nil, nil, dErrors.Newf(dErrors.CodeNotFound, "group %s not found", id)
	}
	return reg, g, nil
}

// Confirm marks a normalized name inside a group as human-validated.
func (s *Service) Confirm(ctx context.Context, groupID, name string) error {
	reg, err := s.store.Load()
	if err != nil {
		return err
	}
	g, ok := reg.Group(groupID)
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "group %s not found", groupID)
	}
	if !g.HasName(name) {
		return dErrors.Newf(dErrors.CodeUnprocessable, "name %q is not in group %s", name, groupID)
	}

	for _, existing := range reg.Overrides.Confirmed[groupID] {
		if existing == name {
			return nil // already confirmed, no mutation, no audit noise
		}
	}
	reg.Overrides.Confirmed[groupID] = append(reg.Overrides.Confirmed[groupID], name)

	if err := s.store.Save(reg); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	s.emit(ctx, audit.Entry{Action: audit.ActionNameConfirmed, GroupID: groupID, Name: name})
	return nil
}

// Merge folds source into target and records the pair so every future
// rebuild replays it.
func (s *Service) Merge(ctx context.Context, targetID, sourceID, reason string) error {
	if targetID == sourceID {
		return dErrors.Newf(dErrors.CodeUnprocessable, "cannot merge group %s into itself", targetID)
	}
	reg, err := s.store.Load()
	if err != nil {
		return err
	}
	target, ok := reg.Group(targetID)
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "target group %s not found", targetID)
	}
	source, ok := reg.Group(sourceID)
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "source group %s not found", sourceID)
	}

	sourceNames := len(source.NormalizedNames)
	fold(reg, target, source)
	reg.Overrides.Merge = append(reg.Overrides.Merge, [2]string{targetID, sourceID})

	if err := s.store.Save(reg); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	s.emit(ctx, audit.Entry{
		Action:   audit.ActionGroupsMerged,
		GroupID:  targetID,
		TargetID: sourceID,
		Reason:   reason,
		Diff:     map[string]any{"names_absorbed": sourceNames},
	})
	return nil
}

// Split moves every appearance of a normalized name out of its group into
// targetID (minted when empty). Returns the destination group ID. Refuses to
// empty the source group.
func (s *Service) Split(ctx context.Context, groupID, name, targetID, reason string) (string, error) {
	reg, err := s.store.Load()
	if err != nil {
		return "", err
	}
	g, ok := reg.Group(groupID)
	if !ok {
		return "", dErrors.Newf(dErrors.CodeNotFound, "group %s not found", groupID)
	}
	if !g.HasName(name) {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "name %q is not in group %s", name, groupID)
	}

	moving, remaining := partitionByName(g.Appearances, name)
	if len(remaining) == 0 {
		return "", dErrors.Newf(dErrors.CodeUnprocessable,
			"splitting %q would leave group %s empty", name, groupID)
	}

	if targetID == "" {
		targetID = reg.NextID()
	} else if targetID == groupID {
		return "", dErrors.Newf(dErrors.CodeUnprocessable, "split target equals source group %s", groupID)
	}

	now := time.Now().UTC()
	target, ok := reg.Parties[targetID]
	if !ok {
		target = &Group{ID: targetID, CreatedAt: now, UpdatedAt: now}
		reg.Parties[targetID] = target
	}

	g.Appearances = remaining
	target.Appearances = append(target.Appearances, moving...)
	recompute(g)
	recompute(target)

	reg.Overrides.Splits = append(reg.Overrides.Splits, Split{
		Source:         groupID,
		NormalizedName: name,
		Target:         targetID,
		Reason:         reason,
		Date:           now.Format("2006-01-02"),
	})

	if err := s.store.Save(reg); err != nil {
		return "", fmt.Errorf("save registry: %w", err)
	}
	s.emit(ctx, audit.Entry{
		Action:   audit.ActionGroupSplit,
		GroupID:  groupID,
		TargetID: targetID,
		Name:     name,
		Reason:   reason,
		Diff:     map[string]any{"appearances_moved": len(moving)},
	})
	return targetID, nil
}

// DismissSuggestion blacklists a suggested affiliate for a group.
func (s *Service) DismissSuggestion(ctx context.Context, groupID, suggestedID, reason string) error {
	reg, err := s.store.Load()
	if err != nil {
		return err
	}
	if _, ok := reg.Group(groupID); !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "group %s not found", groupID)
	}

	for _, existing := range reg.Overrides.DismissedSuggestions[groupID] {
		if existing == suggestedID {
			return nil
		}
	}
	reg.Overrides.DismissedSuggestions[groupID] = append(reg.Overrides.DismissedSuggestions[groupID], suggestedID)

	if err := s.store.Save(reg); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	s.emit(ctx, audit.Entry{
		Action:   audit.ActionSuggestionDismissed,
		GroupID:  groupID,
		TargetID: suggestedID,
		Reason:   reason,
	})
	return nil
}

// SetDisplayName records a cosmetic display-name override for a group.
func (s *Service) SetDisplayName(ctx context.Context, groupID, name string) error {
	return s.setCosmetic(ctx, groupID, name, audit.ActionDisplayNameSet, func(reg *Registry) {
		reg.Overrides.DisplayName[groupID] = name
	})
}

// SetURL records a cosmetic URL override for a group.
func (s *Service) SetURL(ctx context.Context, groupID, url string) error {
	return s.setCosmetic(ctx, groupID, url, audit.ActionURLSet, func(reg *Registry) {
		reg.Overrides.URL[groupID] = url
	})
}

func (s *Service) setCosmetic(ctx context.Context, groupID, value string, action audit.Action, apply func(*Registry)) error {
	reg, err := s.store.Load()
	if err != nil {
		return err
	}
	if _, ok := reg.Group(groupID); !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "group %s not found", groupID)
	}
	apply(reg)
	if err := s.store.Save(reg); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	s.emit(ctx, audit.Entry{Action: action, GroupID: groupID, Name: value})
	return nil
}

func (s *Service) emit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	entry.Actor = requestcontext.Operator(ctx)
	s.audit.Emit(ctx, entry)
	if s.metrics != nil {
		s.metrics.AuditEvents.WithLabelValues(string(entry.Action)).Inc()
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, sentinel.ErrNotFound)
}
