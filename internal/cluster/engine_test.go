package cluster

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/brandonolsen23/cleo-mini-v3-sub000/internal/scan"
)

type EngineSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func app(name string) scan.Appearance {
	return scan.Appearance{
		Name:           name,
		NormalizedName: name,
		IsCompany:      true,
		Numbered:       scan.IsNumberedName(name),
	}
}

// componentOf returns the component containing index i.
func componentOf(components [][]int, i int) []int {
	for _, c := range components {
		for _, m := range c {
			if m == i {
				return c
			}
		}
	}
	return nil
}

func (s *EngineSuite) TestNameRule() {
	s.Run("identical normalized names union", func() {
		apps := []scan.Appearance{app("ACME HOLDINGS INC"), app("ACME HOLDINGS INC"), app("OTHER CORP")}
		components := Components(apps)
		s.Len(components, 2)
		s.Equal([]int{0, 1}, componentOf(components, 0))
	})

	s.Run("numbered companies are excluded from the name rule", func() {
		apps := []scan.Appearance{app("1234567 ONTARIO INC"), app("1234567 ONTARIO INC")}
		components := Components(apps)
		s.Len(components, 2, "shell companies must not merge on name alone")
	})
}

func (s *EngineSuite) TestPhoneRule() {
	s.Run("shared phone unions", func() {
		a := app("ACME HOLDINGS INC")
		a.Phones = []string{"4165550100"}
		b := app("ACME REALTY CORP")
		b.Phones = []string{"4165550100"}
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 1)
	})

	s.Run("short phones are ignored", func() {
		a := app("ACME HOLDINGS INC")
		a.Phones = []string{"555123"}
		b := app("ACME REALTY CORP")
		b.Phones = []string{"555123"}
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})

	s.Run("high fan-out phone needs matching contact", func() {
		// 15 distinct names behind one number marks it as a switchboard.
		apps := make([]scan.Appearance, 0, 17)
		for i := 0; i < 15; i++ {
			a := app(fmt.Sprintf("CLIENT %d HOLDINGS INC", i))
			a.Phones = []string{"4165550199"}
			apps = append(apps, a)
		}
		x := app("TARGET ALPHA INC")
		x.Phones = []string{"4165550199"}
		x.NormalizedContact = "JANE ROE"
		y := app("TARGET BETA INC")
		y.Phones = []string{"4165550199"}
		y.NormalizedContact = "JANE ROE"
		apps = append(apps, x, y)

		components := Components(apps)
		comp := componentOf(components, 15)
		s.Equal([]int{15, 16}, comp, "same contact at the switchboard unions")
		s.Len(componentOf(components, 0), 1, "no contact means no union on a switchboard phone")
	})
}

func (s *EngineSuite) TestAliasRule() {
	s.Run("shared cleaned alias unions", func() {
		a := app("534604 ONTARIO INC")
		a.Aliases = []string{"Maple Donuts"}
		b := app("698221 ONTARIO LTD")
		b.AlternateNames = []string{"MAPLE DONUTS"}
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 1)
	})

	s.Run("law firm aliases never union", func() {
		a := app("ACME HOLDINGS INC")
		a.Aliases = []string{"Smith & Jones LLP"}
		b := app("OTHER REALTY CORP")
		b.Aliases = []string{"Smith & Jones LLP"}
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})

	s.Run("alias equal to own stripped name is no signal", func() {
		a := app("ACME HOLDINGS INC")
		a.Aliases = []string{"Acme Holdings"}
		b := app("ACME HOLDINGS LTD")
		// b has no alias; a's self-alias alone must not create a key that
		// matches b's future aliases by accident.
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})

	s.Run("address-shaped aliases are rejected", func() {
		a := app("ACME HOLDINGS INC")
		a.Aliases = []string{"Suite 4400 Exchange Tower"}
		b := app("OTHER REALTY CORP")
		b.Aliases = []string{"Suite 4400 Exchange Tower"}
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})
}

func (s *EngineSuite) TestAddressRule() {
	s.Run("companies sharing a long address union", func() {
		a := app("ACME HOLDINGS INC")
		a.NormalizedAddress = "45 KING STREET WEST TORONTO"
		b := app("BRAVO REALTY CORP")
		b.NormalizedAddress = "45 KING STREET WEST TORONTO"
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 1)
	})

	s.Run("person addresses are excluded", func() {
		a := app("JOHN SMITH")
		a.IsCompany = false
		a.NormalizedAddress = "12 MAPLE CRESCENT OTTAWA"
		b := app("JANE SMITH")
		b.IsCompany = false
		b.NormalizedAddress = "12 MAPLE CRESCENT OTTAWA"
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})

	s.Run("short addresses are excluded", func() {
		a := app("ACME HOLDINGS INC")
		a.NormalizedAddress = "PO BOX 1"
		b := app("BRAVO REALTY CORP")
		b.NormalizedAddress = "PO BOX 1"
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})
}

func (s *EngineSuite) TestNumberedContactRule() {
	s.Run("same name and contact recovers shell identity", func() {
		a := app("1234567 ONTARIO INC")
		a.NormalizedContact = "JANE ROE"
		b := app("1234567 ONTARIO INC")
		b.NormalizedContact = "JANE ROE"
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 1)
	})

	s.Run("different contacts stay apart", func() {
		a := app("1234567 ONTARIO INC")
		a.NormalizedContact = "JANE ROE"
		b := app("1234567 ONTARIO INC")
		b.NormalizedContact = "JOHN DOE"
		components := Components([]scan.Appearance{a, b})
		s.Len(components, 2)
	})
}

// Two numbered companies at the same address with different contacts: the
// name rule excludes them, the contact rule needs a match it does not get,
// but the company address rule still fires and unions them.
func (s *EngineSuite) TestNumberedCompaniesSharedAddress() {
	a := app("1234567 ONTARIO INC")
	a.NormalizedContact = "JANE ROE"
	a.NormalizedAddress = "500 UNIVERSITY AVENUE TORONTO"
	b := app("1234567 ONTARIO INC")
	b.NormalizedContact = "JOHN DOE"
	b.NormalizedAddress = "500 UNIVERSITY AVENUE TORONTO"

	components := Components([]scan.Appearance{a, b})
	s.Len(components, 1, "address rule applies to numbered companies too")
}

// Signal soundness: any two appearances unioned by the phone rule on a
// non-high-fan-out phone actually share that phone.
func (s *EngineSuite) TestPhoneRuleSoundness() {
	apps := []scan.Appearance{}
	for i := 0; i < 6; i++ {
		a := app(fmt.Sprintf("PARTY %d HOLDINGS INC", i))
		a.Phones = []string{fmt.Sprintf("41655501%02d", i%3)}
		apps = append(apps, a)
	}

	components := Components(apps)
	for _, comp := range components {
		for _, i := range comp {
			for _, j := range comp {
				if i >= j {
					continue
				}
				s.Equal(apps[i].Phones, apps[j].Phones,
					"unioned appearances %d and %d must share their phone", i, j)
			}
		}
	}
}

func TestCleanAlias(t *testing.T) {
	tests := []struct {
		name  string
		alias string
		own   string
		want  string
		ok    bool
	}{
		{"usable alias", "Maple Donuts", "534604 ONTARIO INC", "MAPLE DONUTS", true},
		{"too short", "AB", "ACME INC", "", false},
		{"legal boilerplate", "Smith, Barrister & Solicitor", "ACME INC", "", false},
		{"in trust", "ACME IN TRUST", "OTHER INC", "", false},
		{"law firm", "Smith & Jones LLP", "ACME INC", "", false},
		{"landmark prefix", "Commerce Court West", "ACME INC", "", false},
		{"building with digit", "Suite 300 Scotia Plaza", "ACME INC", "", false},
		{"building word without digit passes", "Tower Properties", "ACME INC", "TOWER PROPERTIES", true},
		{"own suffix-stripped name", "Acme Holdings", "ACME HOLDINGS INC", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CleanAlias(tt.alias, tt.own)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("CleanAlias(%q, %q) = (%q, %v), want (%q, %v)",
					tt.alias, tt.own, got, ok, tt.want, tt.ok)
			}
		})
	}
}
