package registry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/audit"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
	dErrors "github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/domain-errors"
	"github.com/brandonolsen23/cleo-mini-v3-sub000/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *InMemoryStore
	auditLog *audit.InMemoryStore
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithOperator(context.Background(), "tester")
	s.store = NewInMemoryStore()
	s.auditLog = audit.NewInMemoryStore()

	logger := slog.New(slog.DiscardHandler)
	s.service = NewService(
		s.store,
		nil, // scanner wired only in build tests
		testBuilder(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		"corpus",
		audit.NewPublisher(s.auditLog, logger),
		logger,
		nil,
	)
}

// seed persists a registry with two single-name groups plus one two-name
// group reachable for splits.
func (s *ServiceSuite) seed() {
	apps := []scan.Appearance{
		appearance("T-1", scan.RoleSeller, "ACME HOLDINGS INC", "2023-01-10"),
		appearance("T-2", scan.RoleBuyer, "BRAVO REALTY CORP", "2023-02-20"),
	}
	c := appearance("T-3", scan.RoleSeller, "CHARLIE ESTATES LTD", "2023-03-01")
	c.NormalizedAddress = "45 KING STREET WEST TORONTO"
	d := appearance("T-4", scan.RoleBuyer, "DELTA PROPERTIES INC", "2023-04-01")
	d.NormalizedAddress = "45 KING STREET WEST TORONTO"
	apps = append(apps, c, d)

	reg, _ := testBuilder(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)).Build("corpus", apps, nil)
	s.Require().NoError(s.store.Save(reg))
	// G00001 ACME, G00002 BRAVO, G00003 CHARLIE+DELTA
	s.Require().Len(reg.Parties, 3)
}

func (s *ServiceSuite) lastAudit() audit.Entry {
	entries := s.auditLog.Entries()
	s.Require().NotEmpty(entries)
	return entries[len(entries)-1]
}

func (s *ServiceSuite) TestBuild() {
	dir := s.T().TempDir()
	record := `{
		"transaction_id": "T-1",
		"sale_date": "2023-05-01",
		"seller": {"name": "Acme Holdings Inc"},
		"buyer": {"name": "Bravo Realty Corp"}
	}`
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "t1.json"), []byte(record), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644))

	contract, err := scan.NewContract()
	s.Require().NoError(err)
	logger := slog.New(slog.DiscardHandler)
	s.service = NewService(
		s.store,
		scan.NewScanner(contract, logger),
		testBuilder(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)),
		dir,
		audit.NewPublisher(s.auditLog, logger),
		logger,
		nil,
	)

	summary, err := s.service.Build(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, summary.Groups)
	s.Equal(2, summary.Appearances)
	s.Equal(1, summary.RecordsRead)
	s.Equal(1, summary.RecordsSkipped)

	saved, err := s.store.Load()
	s.Require().NoError(err)
	s.Len(saved.Parties, 2)

	entry := s.lastAudit()
	s.Equal(audit.ActionRegistryBuilt, entry.Action)
	s.Equal("tester", entry.Actor)
}

func (s *ServiceSuite) TestConfirm() {
	s.seed()

	s.Run("confirms a present name", func() {
		s.Require().NoError(s.service.Confirm(s.ctx, "G00001", "ACME HOLDINGS INC"))
		reg, err := s.store.Load()
		s.Require().NoError(err)
		s.Equal([]string{"ACME HOLDINGS INC"}, reg.Overrides.Confirmed["G00001"])
		s.Equal(audit.ActionNameConfirmed, s.lastAudit().Action)
	})

	s.Run("repeat confirm is a no-op", func() {
		before := len(s.auditLog.Entries())
		s.Require().NoError(s.service.Confirm(s.ctx, "G00001", "ACME HOLDINGS INC"))
		s.Len(s.auditLog.Entries(), before)
	})

	s.Run("rejects a name outside the group", func() {
		err := s.service.Confirm(s.ctx, "G00001", "BRAVO REALTY CORP")
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnprocessable, dErrors.CodeOf(err))
	})

	s.Run("rejects an unknown group", func() {
		err := s.service.Confirm(s.ctx, "G09999", "ACME HOLDINGS INC")
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestMerge() {
	s.seed()

	s.Run("rejects self-merge without loading", func() {
		err := s.service.Merge(s.ctx, "G00001", "G00001", "oops")
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnprocessable, dErrors.CodeOf(err))
	})

	s.Run("folds source into target and records the pair", func() {
		s.Require().NoError(s.service.Merge(s.ctx, "G00001", "G00002", "same operator"))

		reg, err := s.store.Load()
		s.Require().NoError(err)
		s.NotContains(reg.Parties, "G00002")
		s.True(reg.Parties["G00001"].HasName("BRAVO REALTY CORP"))
		s.Equal([][2]string{{"G00001", "G00002"}}, reg.Overrides.Merge)

		entry := s.lastAudit()
		s.Equal(audit.ActionGroupsMerged, entry.Action)
		s.Equal("G00001", entry.GroupID)
	})

	s.Run("rejects missing source", func() {
		err := s.service.Merge(s.ctx, "G00001", "G09999", "")
		s.Require().Error(err)
		s.Equal(dErrors.CodeNotFound, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestSplit() {
	s.seed()

	s.Run("moves the name into a minted group", func() {
		targetID, err := s.service.Split(s.ctx, "G00003", "DELTA PROPERTIES INC", "", "unrelated tenant")
		s.Require().NoError(err)
		s.Equal("G00004", targetID)

		reg, err := s.store.Load()
		s.Require().NoError(err)
		s.False(reg.Parties["G00003"].HasName("DELTA PROPERTIES INC"))
		s.True(reg.Parties["G00004"].HasName("DELTA PROPERTIES INC"))

		s.Require().Len(reg.Overrides.Splits, 1)
		split := reg.Overrides.Splits[0]
		s.Equal("G00003", split.Source)
		s.Equal("G00004", split.Target)
		s.Equal("DELTA PROPERTIES INC", split.NormalizedName)

		s.Equal(audit.ActionGroupSplit, s.lastAudit().Action)
	})

	s.Run("refuses to empty a group and leaves registry unchanged", func() {
		before, err := s.store.Load()
		s.Require().NoError(err)

		_, err = s.service.Split(s.ctx, "G00001", "ACME HOLDINGS INC", "", "")
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnprocessable, dErrors.CodeOf(err))

		after, err := s.store.Load()
		s.Require().NoError(err)
		s.Equal(before.Parties["G00001"].NormalizedNames, after.Parties["G00001"].NormalizedNames)
		s.Len(after.Overrides.Splits, len(before.Overrides.Splits))
	})

	s.Run("rejects split into the source group", func() {
		_, err := s.service.Split(s.ctx, "G00003", "CHARLIE ESTATES LTD", "G00003", "")
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnprocessable, dErrors.CodeOf(err))
	})
}

func (s *ServiceSuite) TestDismissAndCosmetics() {
	s.seed()

	s.Require().NoError(s.service.DismissSuggestion(s.ctx, "G00001", "G00002", "law firm overlap"))
	s.Require().NoError(s.service.SetDisplayName(s.ctx, "G00001", "Acme"))
	s.Require().NoError(s.service.SetURL(s.ctx, "G00001", "https://acme.example"))

	reg, err := s.store.Load()
	s.Require().NoError(err)
	s.Equal([]string{"G00002"}, reg.Overrides.DismissedSuggestions["G00001"])
	s.Equal("Acme", reg.Overrides.DisplayName["G00001"])
	s.Equal("https://acme.example", reg.Overrides.URL["G00001"])
	s.Equal("Acme", reg.DisplayNameFor(reg.Parties["G00001"]))
}
