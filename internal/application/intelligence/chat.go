package intelligence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// Intent is the bucket a chat message is classified into.
type Intent string

const (
	IntentTrend   Intent = "trend"
	IntentGap     Intent = "gap"
	IntentDefault Intent = "default"
)

// ChatDomain is reported in every chat reply.
const ChatDomain = "community-intelligence"

// Fixed reply texts.
const (
	DefaultChatResponse = "I'm the Community Intelligence assistant. Ask me about community trends and data analysis, or about resource gaps and unmet needs in the community."
	ApologyResponse     = "Sorry, I couldn't process your request right now. Please try again in a moment."
	NoCriticalGapsText  = "No critical resource gaps are currently recorded."
)

// Reply limits.
const (
	ChatTopDemandAreas     = 3
	ChatMaxRecommendations = 2
)

// Keyword sets, tested in order; the first set with a match wins.
var (
	trendKeywords = []string{"trend", "data", "analysis", "intelligence"}
	gapKeywords   = []string{"gap", "need", "problem"}
)

// ClassifyIntent matches message case-insensitively against the trend
// keywords, then the gap keywords.  Matching is by substring, so "needs" and
// "database" match too.
func ClassifyIntent(message string) Intent {
	lower := strings.ToLower(message)
	if containsAny(lower, trendKeywords) {
		return IntentTrend
	}
	if containsAny(lower, gapKeywords) {
		return IntentGap
	}
	return IntentDefault
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// ChatReply is the body of a successful POST /api/chat.
type ChatReply struct {
	Response     string                `json:"response"`
	Domain       string                `json:"domain"`
	Intent       Intent                `json:"intent"`
	Analytics    *domain.TrendSnapshot `json:"analytics,omitempty"`
	ResourceGaps []domain.ResourceGap  `json:"resourceGaps,omitempty"`
	Timestamp    time.Time             `json:"timestamp"`
}

// ChatService answers free-text messages.  It keeps no conversation state.
type ChatService interface {
	Respond(ctx context.Context, message string) (*ChatReply, error)
}

// ChatDeps holds all dependencies for the chat service.
type ChatDeps struct {
	Trends   TrendService
	Fixtures *domain.FixtureStore
	Metrics  *prometheus.AppMetrics
	Now      func() time.Time
	Logger   logging.Logger
}

type chatServiceImpl struct {
	trends   TrendService
	fixtures *domain.FixtureStore
	metrics  *prometheus.AppMetrics
	now      func() time.Time
	logger   logging.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(deps ChatDeps) ChatService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &chatServiceImpl{
		trends:   deps.Trends,
		fixtures: deps.Fixtures,
		metrics:  deps.Metrics,
		now:      deps.Now,
		logger:   deps.Logger.Named("chat"),
	}
}

func (s *chatServiceImpl) Respond(ctx context.Context, message string) (*ChatReply, error) {
	if s.trends == nil || s.fixtures == nil {
		return nil, errors.Internal("chat service is not fully configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, requestAborted(err, "chat request aborted")
	}

	intent := ClassifyIntent(message)
	reply := &ChatReply{
		Domain: ChatDomain,
		Intent: intent,
	}

	switch intent {
	case IntentTrend:
		snapshot := s.trends.Trends(ctx)
		reply.Response = RenderTrendReply(snapshot)
		reply.Analytics = &snapshot
	case IntentGap:
		gaps := criticalGaps(s.fixtures)
		reply.Response = RenderGapReply(gaps)
		reply.ResourceGaps = gaps
	default:
		reply.Response = DefaultChatResponse
	}
	reply.Timestamp = s.now().UTC()

	prometheus.RecordChat(s.metrics, string(intent))
	s.logger.Debug("chat reply rendered", logging.String("intent", string(intent)))
	return reply, nil
}

// criticalGaps returns the critical gaps with their recommendations cut to
// ChatMaxRecommendations.
func criticalGaps(store *domain.FixtureStore) []domain.ResourceGap {
	gaps := store.ByUrgency(domain.LevelCritical)
	for i := range gaps {
		if len(gaps[i].Recommendations) > ChatMaxRecommendations {
			gaps[i].Recommendations = gaps[i].Recommendations[:ChatMaxRecommendations]
		}
	}
	return gaps
}

// RenderTrendReply formats the top demand areas and emerging needs of
// snapshot as chat text.
func RenderTrendReply(snapshot domain.TrendSnapshot) string {
	var sb strings.Builder
	sb.WriteString("Community Trend Analysis\n\nTop demand areas:\n")
	n := len(snapshot.TopDemandAreas)
	if n > ChatTopDemandAreas {
		n = ChatTopDemandAreas
	}
	for i, a := range snapshot.TopDemandAreas[:n] {
		fmt.Fprintf(&sb, "%d. %s (demand score %s)\n", i+1, a.Category, strconv.FormatFloat(a.DemandScore, 'f', -1, 64))
	}
	sb.WriteString("\nEmerging needs:\n")
	for _, need := range snapshot.EmergingNeeds {
		fmt.Fprintf(&sb, "- %s\n", need)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// RenderGapReply formats gaps, each with its analysis and at most
// ChatMaxRecommendations recommendations.
func RenderGapReply(gaps []domain.ResourceGap) string {
	if len(gaps) == 0 {
		return NoCriticalGapsText
	}
	var sb strings.Builder
	sb.WriteString("Critical Resource Gaps\n")
	for _, g := range gaps {
		fmt.Fprintf(&sb, "\n%s\n%s\nRecommended actions:\n", g.Category, g.GapAnalysis)
		recs := g.Recommendations
		if len(recs) > ChatMaxRecommendations {
			recs = recs[:ChatMaxRecommendations]
		}
		for _, r := range recs {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
