package intelligence

import (
	"fmt"

	"github.com/turtacn/community-intelligence/pkg/errors"
)

// FixtureStore is the read-only catalogue of resource gaps.  It is built once
// at start-up and shared by reference; accessors hand out copies so callers
// cannot mutate the catalogue.
type FixtureStore struct {
	gaps  []ResourceGap
	index map[string]int
}

// NewFixtureStore builds a store from gaps, preserving their order.  It
// rejects invalid entries and duplicate categories.
func NewFixtureStore(gaps []ResourceGap) (*FixtureStore, error) {
	s := &FixtureStore{
		gaps:  make([]ResourceGap, 0, len(gaps)),
		index: make(map[string]int, len(gaps)),
	}
	for _, g := range gaps {
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := s.index[g.Category]; dup {
			return nil, errors.InvalidParam(fmt.Sprintf("resource gap %q: duplicate category", g.Category))
		}
		s.index[g.Category] = len(s.gaps)
		s.gaps = append(s.gaps, g.clone())
	}
	return s, nil
}

// DefaultFixtureStore returns the store holding the built-in gap catalogue.
func DefaultFixtureStore() *FixtureStore {
	s, err := NewFixtureStore(defaultGaps())
	if err != nil {
		panic(fmt.Sprintf("intelligence: built-in fixtures are invalid: %v", err))
	}
	return s
}

// All returns every gap in catalogue order.
func (s *FixtureStore) All() []ResourceGap {
	out := make([]ResourceGap, 0, len(s.gaps))
	for _, g := range s.gaps {
		out = append(out, g.clone())
	}
	return out
}

// Get returns the gap recorded for category.
func (s *FixtureStore) Get(category string) (ResourceGap, bool) {
	i, ok := s.index[category]
	if !ok {
		return ResourceGap{}, false
	}
	return s.gaps[i].clone(), true
}

// ByUrgency returns the gaps whose urgency level equals level, in catalogue
// order.
func (s *FixtureStore) ByUrgency(level Level) []ResourceGap {
	var out []ResourceGap
	for _, g := range s.gaps {
		if g.UrgencyLevel == level {
			out = append(out, g.clone())
		}
	}
	return out
}

// Len returns the number of gaps in the store.
func (s *FixtureStore) Len() int { return len(s.gaps) }

func defaultGaps() []ResourceGap {
	return []ResourceGap{
		{
			Category:    "Mental Health",
			UnmetNeed:   LevelHigh,
			GapAnalysis: "Wait times for counselling exceed six weeks and evening or weekend appointments are almost unavailable.",
			Recommendations: []string{
				"Expand peer support groups led by trained volunteers",
				"Partner with telehealth providers for after-hours sessions",
				"Fund a sliding-scale counselling pool",
			},
			UrgencyLevel:    LevelCritical,
			ImpactPotential: ImpactVeryHigh,
			ResourcesNeeded: []string{"licensed counsellors", "telehealth licences", "peer support training"},
		},
		{
			Category:    "Housing",
			UnmetNeed:   LevelCritical,
			GapAnalysis: "Emergency shelter capacity is exhausted most nights and transitional housing lists are closed.",
			Recommendations: []string{
				"Coordinate a shared shelter-bed availability board",
				"Create a rental deposit assistance fund",
				"Recruit landlords into a guaranteed-rent programme",
			},
			UrgencyLevel:    LevelCritical,
			ImpactPotential: ImpactVeryHigh,
			ResourcesNeeded: []string{"shelter beds", "deposit funds", "housing navigators"},
		},
		{
			Category:    "Food Security",
			UnmetNeed:   LevelHigh,
			GapAnalysis: "Pantries run short at month end and few distribution points are reachable without a car.",
			Recommendations: []string{
				"Add mobile pantry stops in transit-poor neighbourhoods",
				"Set up surplus food recovery with local grocers",
			},
			UrgencyLevel:    LevelHigh,
			ImpactPotential: ImpactHigh,
			ResourcesNeeded: []string{"refrigerated van", "volunteer drivers", "storage space"},
		},
		{
			Category:    "Healthcare",
			UnmetNeed:   LevelMedium,
			GapAnalysis: "Uninsured residents rely on emergency rooms for routine care because free clinic hours are limited.",
			Recommendations: []string{
				"Extend free clinic hours two evenings a week",
				"Train community health workers for insurance enrolment",
			},
			UrgencyLevel:    LevelHigh,
			ImpactPotential: ImpactHigh,
			ResourcesNeeded: []string{"volunteer clinicians", "enrolment counsellors"},
		},
		{
			Category:    "Crisis Support",
			UnmetNeed:   LevelHigh,
			GapAnalysis: "Only one crisis line serves the region and callers are often placed on hold during peak hours.",
			Recommendations: []string{
				"Add text-based crisis support",
				"Train mobile crisis responders as an alternative to police dispatch",
				"Publish a single directory of crisis resources",
			},
			UrgencyLevel:    LevelCritical,
			ImpactPotential: ImpactVeryHigh,
			ResourcesNeeded: []string{"crisis counsellors", "text line platform", "mobile response team"},
		},
		{
			Category:    "Legal Aid",
			UnmetNeed:   LevelMedium,
			GapAnalysis: "Tenants facing eviction rarely have representation and legal clinics are booked weeks ahead.",
			Recommendations: []string{
				"Run monthly eviction defence clinics",
				"Recruit pro bono attorneys through the bar association",
			},
			UrgencyLevel:    LevelMedium,
			ImpactPotential: ImpactHigh,
			ResourcesNeeded: []string{"pro bono attorneys", "clinic space"},
		},
		{
			Category:    "Transportation",
			UnmetNeed:   LevelMedium,
			GapAnalysis: "Residents without cars miss medical and job appointments because bus routes stop early in the evening.",
			Recommendations: []string{
				"Organise volunteer ride-share for medical appointments",
				"Provide transit passes through partner agencies",
			},
			UrgencyLevel:    LevelLow,
			ImpactPotential: ImpactMedium,
			ResourcesNeeded: []string{"volunteer drivers", "transit passes"},
		},
	}
}
