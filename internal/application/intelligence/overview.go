package intelligence

import (
	"context"
	"math/rand"
	"sync"
	"time"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// Bounds of the decorative active-members figure: [MinActiveMembers, MaxActiveMembers).
const (
	MinActiveMembers = 150
	MaxActiveMembers = 650
)

// CommunityHealth is the fixed community health statement of the overview.
const CommunityHealth = "Community engagement is strong and resource sharing is increasing across all categories."

// OverviewTopCategories is the number of trend categories listed in insights.
const OverviewTopCategories = 3

// OverviewPayload is the body of GET /api/analytics/overview.
type OverviewPayload struct {
	ResourceGaps []domain.ResourceGap `json:"resourceGaps"`
	Trends       domain.TrendSnapshot `json:"trends"`
	Insights     Insights             `json:"insights"`
	GeneratedAt  time.Time            `json:"generatedAt"`
}

// Insights is the derived summary block of the overview.
type Insights struct {
	TopCategories       []string `json:"topCategories"`
	EmergingNeeds       []string `json:"emergingNeeds"`
	ResourceUtilization string   `json:"resourceUtilization"`
	CommunityHealth     string   `json:"communityHealth"`
	ActiveMembers       int      `json:"activeMembers"`
}

// IntSource yields pseudo-random integers in [0, n).
type IntSource interface {
	Intn(n int) int
}

// LockedRand is an IntSource safe for concurrent use.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand seeds a LockedRand.
func NewLockedRand(seed int64) *LockedRand {
	return &LockedRand{r: rand.New(rand.NewSource(seed))}
}

// Intn implements IntSource.
func (l *LockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

// OverviewService builds the intelligence overview.
type OverviewService interface {
	Build(ctx context.Context) (*OverviewPayload, error)
}

// OverviewDeps holds all dependencies for the overview service.
type OverviewDeps struct {
	Trends   TrendService
	Fixtures *domain.FixtureStore
	Random   IntSource
	Now      func() time.Time
	Logger   logging.Logger
}

type overviewServiceImpl struct {
	trends   TrendService
	fixtures *domain.FixtureStore
	random   IntSource
	now      func() time.Time
	logger   logging.Logger
}

// NewOverviewService creates a new OverviewService.
func NewOverviewService(deps OverviewDeps) OverviewService {
	if deps.Random == nil {
		deps.Random = NewLockedRand(time.Now().UnixNano())
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &overviewServiceImpl{
		trends:   deps.Trends,
		fixtures: deps.Fixtures,
		random:   deps.Random,
		now:      deps.Now,
		logger:   deps.Logger.Named("overview"),
	}
}

func (s *overviewServiceImpl) Build(ctx context.Context) (*OverviewPayload, error) {
	if s.trends == nil || s.fixtures == nil {
		return nil, errors.Internal("overview service is not fully configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, requestAborted(err, "overview request aborted")
	}

	trends := s.trends.Trends(ctx)
	payload := &OverviewPayload{
		ResourceGaps: s.fixtures.All(),
		Trends:       trends,
		Insights: Insights{
			TopCategories:       trends.TopCategories(OverviewTopCategories),
			EmergingNeeds:       append([]string(nil), trends.EmergingNeeds...),
			ResourceUtilization: trends.ResourceUtilization,
			CommunityHealth:     CommunityHealth,
			ActiveMembers:       MinActiveMembers + s.random.Intn(MaxActiveMembers-MinActiveMembers),
		},
		GeneratedAt: s.now().UTC(),
	}

	s.logger.Debug("overview built",
		logging.Int("gaps", len(payload.ResourceGaps)),
		logging.Int("demand_areas", len(trends.TopDemandAreas)),
	)
	return payload, nil
}
