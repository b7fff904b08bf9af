package client

import "time"

type chatRequest struct {
	Message string `json:"message"`
}

// Health is the body of GET /health.
type Health struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Features  map[string]bool `json:"features"`
}

// ResourceGap is one entry of the resource gap catalogue.
type ResourceGap struct {
	Category        string   `json:"category"`
	UnmetNeed       string   `json:"unmetNeed"`
	GapAnalysis     string   `json:"gapAnalysis"`
	Recommendations []string `json:"recommendations"`
	UrgencyLevel    string   `json:"urgencyLevel"`
	ImpactPotential string   `json:"impactPotential"`
	ResourcesNeeded []string `json:"resourcesNeeded"`
}

type DemandArea struct {
	Category    string  `json:"category"`
	DemandScore float64 `json:"demandScore"`
}

// TrendSnapshot is the ranked demand view, highest demand first.
type TrendSnapshot struct {
	TopDemandAreas      []DemandArea `json:"topDemandAreas"`
	EmergingNeeds       []string     `json:"emergingNeeds"`
	ResourceUtilization string       `json:"resourceUtilization"`
	CommunityGrowth     string       `json:"communityGrowth"`
}

type Insights struct {
	TopCategories       []string `json:"topCategories"`
	EmergingNeeds       []string `json:"emergingNeeds"`
	ResourceUtilization string   `json:"resourceUtilization"`
	CommunityHealth     string   `json:"communityHealth"`
	ActiveMembers       int      `json:"activeMembers"`
}

// Overview is the body of GET /api/analytics/overview.
type Overview struct {
	ResourceGaps []ResourceGap `json:"resourceGaps"`
	Trends       TrendSnapshot `json:"trends"`
	Insights     Insights      `json:"insights"`
	GeneratedAt  time.Time     `json:"generatedAt"`
}

// ChatReply is the body of a successful POST /api/chat.
type ChatReply struct {
	Response     string         `json:"response"`
	Domain       string         `json:"domain"`
	Intent       string         `json:"intent"`
	Analytics    *TrendSnapshot `json:"analytics,omitempty"`
	ResourceGaps []ResourceGap  `json:"resourceGaps,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
}
