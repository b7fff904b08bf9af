package intelligence

import (
	"math"
	"sort"
	"strings"
)

// OtherCategory collects records with no resolvable category.
const OtherCategory = "Other"

// TopDemandLimit is the maximum number of demand areas in a snapshot.
const TopDemandLimit = 5

// Fixed narrative attached to every snapshot.  None of it is derived from data.
const (
	ResourceUtilization = "Crisis support and housing resources receive the most referrals, while legal aid remains underused relative to need."
	CommunityGrowth     = "Community membership and resource submissions continue to grow month over month."
)

// EmergingNeeds returns the fixed list of emerging needs.
func EmergingNeeds() []string {
	return []string{
		"Youth mental health services",
		"Digital literacy support for older adults",
		"Affordable childcare options",
		"Climate resilience and cooling centres",
	}
}

// Aggregate groups records by category, sums their priorities and returns the
// highest-scoring categories, at most limit of them (TopDemandLimit when
// limit ≤ 0).
//
// Records without a category count towards OtherCategory.  A nil, negative or
// non-finite priority counts as zero, and a sum saturates at math.MaxFloat64 so
// that every score stays finite.  Categories with
// equal scores keep the order in which they were first seen.
func Aggregate(records []ResourceRecord, limit int) []DemandArea {
	if limit <= 0 {
		limit = TopDemandLimit
	}

	var areas []DemandArea
	index := make(map[string]int)
	for _, r := range records {
		name := OtherCategory
		if r.Category != nil {
			if c := strings.TrimSpace(*r.Category); c != "" {
				name = c
			}
		}
		score := 0.0
		if p := r.Priority; p != nil && *p > 0 && !math.IsInf(*p, 0) && !math.IsNaN(*p) {
			score = *p
		}
		i, ok := index[name]
		if !ok {
			i = len(areas)
			index[name] = i
			areas = append(areas, DemandArea{Category: name})
		}
		areas[i].DemandScore = saturatingAdd(areas[i].DemandScore, score)
	}

	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].DemandScore > areas[j].DemandScore
	})
	if len(areas) > limit {
		areas = areas[:limit]
	}
	return areas
}

func saturatingAdd(a, b float64) float64 {
	if b > math.MaxFloat64-a {
		return math.MaxFloat64
	}
	return a + b
}

// NewSnapshot pairs a ranking with the fixed narrative fields.
func NewSnapshot(areas []DemandArea) TrendSnapshot {
	if areas == nil {
		areas = []DemandArea{}
	}
	return TrendSnapshot{
		TopDemandAreas:      areas,
		EmergingNeeds:       EmergingNeeds(),
		ResourceUtilization: ResourceUtilization,
		CommunityGrowth:     CommunityGrowth,
	}
}

// FallbackDemandAreas returns the fixed ranking used when the data source
// cannot answer.
func FallbackDemandAreas() []DemandArea {
	return []DemandArea{
		{Category: "Crisis Support", DemandScore: 95},
		{Category: "Housing", DemandScore: 89},
		{Category: "Mental Health", DemandScore: 87},
		{Category: "Healthcare", DemandScore: 78},
		{Category: "Legal Aid", DemandScore: 72},
	}
}

// FallbackSnapshot returns the snapshot substituted for a failed or empty
// query.  Its shape is identical to a computed snapshot.
func FallbackSnapshot() TrendSnapshot {
	return NewSnapshot(FallbackDemandAreas())
}
