package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	domain "github.com/turtacn/community-intelligence/internal/domain/intelligence"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/pkg/client"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// trendsResult renders a trend snapshot for the terminal.
type trendsResult struct {
	domain.TrendSnapshot
}

func (r trendsResult) TableHeaders() []string {
	return []string{"RANK", "CATEGORY", "DEMAND"}
}

func (r trendsResult) TableRows() [][]string {
	rows := make([][]string, 0, len(r.TopDemandAreas))
	for i, a := range r.TopDemandAreas {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			a.Category,
			strconv.FormatFloat(a.DemandScore, 'f', -1, 64),
		})
	}
	return rows
}

func (r trendsResult) String() string {
	var sb strings.Builder
	sb.WriteString("Top demand areas:\n")
	for i, a := range r.TopDemandAreas {
		fmt.Fprintf(&sb, "  %d. %s (%s)\n", i+1, a.Category, strconv.FormatFloat(a.DemandScore, 'f', -1, 64))
	}
	sb.WriteString("Emerging needs:\n")
	for _, n := range r.EmergingNeeds {
		fmt.Fprintf(&sb, "  - %s\n", n)
	}
	fmt.Fprintf(&sb, "Resource utilization: %s\n", r.ResourceUtilization)
	fmt.Fprintf(&sb, "Community growth: %s", r.CommunityGrowth)
	return sb.String()
}

// NewTrendsCmd creates the command that prints the current trend snapshot.
func NewTrendsCmd() *cobra.Command {
	var strict bool
	var server string

	cmd := &cobra.Command{
		Use:   "trends",
		Short: "Compute and print the current resource demand trends",
		Long: "Query the configured data source once and print the ranked demand areas.\n" +
			"Without --strict a failed or empty query prints the fallback ranking.",
		Example: "  community-intelligence trends -o table\n  community-intelligence trends --strict",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if server != "" {
				if strict {
					return errors.InvalidParam("--strict cannot be combined with --server")
				}
				c, err := newAPIClient(server, cliCtx)
				if err != nil {
					return err
				}
				overview, err := c.Overview(cmd.Context())
				if err != nil {
					return err
				}
				return PrintResult(cmd, trendsResult{fromAPISnapshot(overview.Trends)})
			}

			services, err := NewServices(cmd.Context(), cliCtx.Config, prometheus.NewNoopAppMetrics(), cliCtx.Logger)
			if err != nil {
				return err
			}
			defer services.Close()

			var snapshot domain.TrendSnapshot
			if strict {
				snapshot, err = services.Trends.Compute(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				snapshot = services.Trends.Trends(cmd.Context())
			}
			return PrintResult(cmd, trendsResult{snapshot})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail instead of printing fallback data")
	cmd.Flags().StringVar(&server, "server", "", "query a running server at this base URL instead of the data source")
	return cmd
}

// fromAPISnapshot converts a snapshot received from a remote server.
func fromAPISnapshot(s client.TrendSnapshot) domain.TrendSnapshot {
	areas := make([]domain.DemandArea, 0, len(s.TopDemandAreas))
	for _, a := range s.TopDemandAreas {
		areas = append(areas, domain.DemandArea{Category: a.Category, DemandScore: a.DemandScore})
	}
	return domain.TrendSnapshot{
		TopDemandAreas:      areas,
		EmergingNeeds:       s.EmergingNeeds,
		ResourceUtilization: s.ResourceUtilization,
		CommunityGrowth:     s.CommunityGrowth,
	}
}
