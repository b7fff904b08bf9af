// Package intelligence holds the domain model of the community intelligence
// service: the static resource-gap fixtures, the demand trend aggregation and
// its fallback ranking.  Nothing in this package performs I/O.
package intelligence

import (
	"context"
	"fmt"

	"github.com/turtacn/community-intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Enumerations
// ─────────────────────────────────────────────────────────────────────────────

// Level grades unmet need and urgency.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// IsValid reports whether l is one of the defined levels.
func (l Level) IsValid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// Impact grades the potential effect of closing a gap.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactVeryHigh Impact = "very_high"
)

// IsValid reports whether i is one of the defined impact grades.
func (i Impact) IsValid() bool {
	switch i {
	case ImpactLow, ImpactMedium, ImpactHigh, ImpactVeryHigh:
		return true
	}
	return false
}

// ─────────────────────────────────────────────────────────────────────────────
// Entities
// ─────────────────────────────────────────────────────────────────────────────

// ResourceGap describes an unmet community need and the interventions that
// would address it.
type ResourceGap struct {
	Category        string   `json:"category"`
	UnmetNeed       Level    `json:"unmetNeed"`
	GapAnalysis     string   `json:"gapAnalysis"`
	Recommendations []string `json:"recommendations"`
	UrgencyLevel    Level    `json:"urgencyLevel"`
	ImpactPotential Impact   `json:"impactPotential"`
	ResourcesNeeded []string `json:"resourcesNeeded"`
}

// Validate checks that every enumerated field holds a defined value.
func (g ResourceGap) Validate() error {
	if g.Category == "" {
		return errors.InvalidParam("resource gap: category is required")
	}
	if !g.UnmetNeed.IsValid() {
		return errors.InvalidParam(fmt.Sprintf("resource gap %q: invalid unmet need %q", g.Category, g.UnmetNeed))
	}
	if !g.UrgencyLevel.IsValid() {
		return errors.InvalidParam(fmt.Sprintf("resource gap %q: invalid urgency level %q", g.Category, g.UrgencyLevel))
	}
	if !g.ImpactPotential.IsValid() {
		return errors.InvalidParam(fmt.Sprintf("resource gap %q: invalid impact potential %q", g.Category, g.ImpactPotential))
	}
	return nil
}

func (g ResourceGap) clone() ResourceGap {
	c := g
	c.Recommendations = append([]string(nil), g.Recommendations...)
	c.ResourcesNeeded = append([]string(nil), g.ResourcesNeeded...)
	return c
}

// DemandArea is one ranked category with its heuristic demand score.
type DemandArea struct {
	Category    string  `json:"category"`
	DemandScore float64 `json:"demandScore"`
}

// TrendSnapshot is the ranked demand view returned to clients.
// TopDemandAreas is non-increasing by DemandScore and holds at most
// TopDemandLimit entries.
type TrendSnapshot struct {
	TopDemandAreas      []DemandArea `json:"topDemandAreas"`
	EmergingNeeds       []string     `json:"emergingNeeds"`
	ResourceUtilization string       `json:"resourceUtilization"`
	CommunityGrowth     string       `json:"communityGrowth"`
}

// TopCategories returns the category names of the first n demand areas.
func (s TrendSnapshot) TopCategories(n int) []string {
	if n > len(s.TopDemandAreas) {
		n = len(s.TopDemandAreas)
	}
	out := make([]string, 0, n)
	for _, a := range s.TopDemandAreas[:n] {
		out = append(out, a.Category)
	}
	return out
}

// ResourceRecord is a row of the shared resources table joined with its
// category name.  Category and Priority are nil when the row carries no
// value.  The service never writes records.
type ResourceRecord struct {
	Title    string
	Category *string
	Keywords []string
	Priority *float64
}

// ─────────────────────────────────────────────────────────────────────────────
// Ports
// ─────────────────────────────────────────────────────────────────────────────

// ResourceSource is the read-only port onto the shared resources table.
type ResourceSource interface {
	// Name identifies the adapter in logs and metrics ("postgres", "rest").
	Name() string

	// ListResources returns every resource record with its category name,
	// ordered by priority descending.
	ListResources(ctx context.Context) ([]ResourceRecord, error)

	// Ping checks that the source is reachable.
	Ping(ctx context.Context) error
}
