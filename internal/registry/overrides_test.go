package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
)

type OverrideReplaySuite struct {
	suite.Suite
	now     time.Time
	builder *Builder
}

func TestOverrideReplaySuite(t *testing.T) {
	suite.Run(t, new(OverrideReplaySuite))
}

func (s *OverrideReplaySuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s.builder = testBuilder(s.now)
}

// sharedAddressApps builds two companies raw clustering would merge through
// a common address.
func sharedAddressApps() []scan.Appearance {
	a := appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10")
	a.NormalizedAddress = "45 KING STREET WEST TORONTO"
	b := appearance("T-2", scan.RoleBuyer, "BRAVO REALTY CORP", "2023-02-20")
	b.NormalizedAddress = "45 KING STREET WEST TORONTO"
	return []scan.Appearance{a, b}
}

// A recorded split must survive a from-scratch rebuild even though raw
// clustering would have kept the names together.
func (s *OverrideReplaySuite) TestSplitDurability() {
	apps := sharedAddressApps()

	prev, _ := s.builder.Build("corpus", apps, nil)
	s.Require().Len(prev.Parties, 1, "raw clustering merges on shared address")

	prev.Overrides.Splits = append(prev.Overrides.Splits, Split{
		Source:         "G00001",
		NormalizedName: "BRAVO REALTY CORP",
		Target:         "G00002",
		Reason:         "different beneficial owner",
		Date:           "2024-05-30",
	})

	rebuilt, stats := s.builder.Build("corpus", apps, prev)
	s.Equal(0, stats.OverridesSkipped)
	s.Require().Len(rebuilt.Parties, 2)

	s.Equal("G00001", rebuilt.GroupByName("ACME HOLDINGS INC").ID)
	s.Equal("G00002", rebuilt.GroupByName("BRAVO REALTY CORP").ID)

	// And again: the split keeps holding on every subsequent rebuild.
	again, _ := s.builder.Build("corpus", apps, rebuilt)
	s.Require().Len(again.Parties, 2)
	s.Equal("G00002", again.GroupByName("BRAVO REALTY CORP").ID)
}

func (s *OverrideReplaySuite) TestSplitReplayEdgeCases() {
	s.Run("skips split that would empty the source", func() {
		apps := []scan.Appearance{appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10")}
		prev, _ := s.builder.Build("corpus", apps, nil)
		prev.Overrides.Splits = append(prev.Overrides.Splits, Split{
			Source:         "G00001",
			NormalizedName: "ACME HOLDINGS INC",
			Target:         "G00002",
			Date:           "2024-05-30",
		})

		rebuilt, stats := s.builder.Build("corpus", apps, prev)
		s.Equal(1, stats.OverridesSkipped)
		s.Len(rebuilt.Parties, 1)
		s.NotNil(rebuilt.GroupByName("ACME HOLDINGS INC"))
	})

	s.Run("skips split whose name left the corpus", func() {
		apps := []scan.Appearance{appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10")}
		prev, _ := s.builder.Build("corpus", apps, nil)
		prev.Overrides.Splits = append(prev.Overrides.Splits, Split{
			Source:         "G00009",
			NormalizedName: "GONE ESTATES LTD",
			Target:         "G00010",
			Date:           "2024-05-30",
		})

		_, stats := s.builder.Build("corpus", apps, prev)
		s.Equal(1, stats.OverridesSkipped)
	})

	s.Run("split with no stored target mints a fresh ID", func() {
		apps := sharedAddressApps()
		prev, _ := s.builder.Build("corpus", apps, nil)
		prev.Overrides.Splits = append(prev.Overrides.Splits, Split{
			Source:         "G00001",
			NormalizedName: "BRAVO REALTY CORP",
			Date:           "2024-05-30",
		})

		rebuilt, stats := s.builder.Build("corpus", apps, prev)
		s.Equal(0, stats.OverridesSkipped)
		s.Equal("G00002", rebuilt.GroupByName("BRAVO REALTY CORP").ID)
	})
}

func (s *OverrideReplaySuite) TestMergeReplay() {
	s.Run("folds source into target on rebuild", func() {
		apps := []scan.Appearance{
			appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10"),
			appearance("T-2", scan.RoleBuyer, "ACME PROPERTY GROUP LTD", "2023-02-20"),
		}
		prev, _ := s.builder.Build("corpus", apps, nil)
		s.Require().Len(prev.Parties, 2)
		prev.Overrides.Merge = append(prev.Overrides.Merge, [2]string{"G00001", "G00002"})

		rebuilt, stats := s.builder.Build("corpus", apps, prev)
		s.Equal(0, stats.OverridesSkipped)
		s.Require().Len(rebuilt.Parties, 1)

		g := rebuilt.Parties["G00001"]
		s.Require().NotNil(g)
		s.True(g.HasName("ACME HOLDINGS INC"))
		s.True(g.HasName("ACME PROPERTY GROUP LTD"))
	})

	s.Run("skips merges referencing retired groups", func() {
		apps := []scan.Appearance{appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10")}
		prev, _ := s.builder.Build("corpus", apps, nil)
		prev.Overrides.Merge = append(prev.Overrides.Merge,
			[2]string{"G00001", "G00033"},
			[2]string{"G00007", "G00007"},
		)

		_, stats := s.builder.Build("corpus", apps, prev)
		s.Equal(2, stats.OverridesSkipped)
	})

	s.Run("migrates confirmed names from merged-away source", func() {
		apps := []scan.Appearance{
			appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10"),
			appearance("T-2", scan.RoleBuyer, "ACME PROPERTY GROUP LTD", "2023-02-20"),
		}
		prev, _ := s.builder.Build("corpus", apps, nil)
		prev.Overrides.Confirmed["G00002"] = []string{"ACME PROPERTY GROUP LTD"}
		prev.Overrides.Merge = append(prev.Overrides.Merge, [2]string{"G00001", "G00002"})

		rebuilt, _ := s.builder.Build("corpus", apps, prev)
		s.Equal([]string{"ACME PROPERTY GROUP LTD"}, rebuilt.Overrides.Confirmed["G00001"])
		s.NotContains(rebuilt.Overrides.Confirmed, "G00002")
	})
}

// Merge replay after splits: the fixed order means a split target can be
// merged away in the same rebuild.
func (s *OverrideReplaySuite) TestReplayOrder() {
	apps := sharedAddressApps()
	prev, _ := s.builder.Build("corpus", apps, nil)
	prev.Overrides.Splits = append(prev.Overrides.Splits, Split{
		Source:         "G00001",
		NormalizedName: "BRAVO REALTY CORP",
		Target:         "G00002",
		Date:           "2024-05-30",
	})
	prev.Overrides.Merge = append(prev.Overrides.Merge, [2]string{"G00001", "G00002"})

	rebuilt, stats := s.builder.Build("corpus", apps, prev)
	s.Equal(0, stats.OverridesSkipped)
	s.Require().Len(rebuilt.Parties, 1)
	s.True(rebuilt.Parties["G00001"].HasName("BRAVO REALTY CORP"))
}
