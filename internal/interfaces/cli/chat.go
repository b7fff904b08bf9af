package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/community-intelligence/pkg/errors"
)

// chatResult prints only the reply text in text mode.  Reply is either an
// *intelligence.ChatReply or a *client.ChatReply; both encode identically.
type chatResult struct {
	Reply    interface{}
	Response string
}

func (r chatResult) String() string { return r.Response }

func (r chatResult) MarshalJSON() ([]byte, error) { return json.Marshal(r.Reply) }

// NewChatCmd creates the command that answers one chat message.
func NewChatCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the community intelligence assistant a question",
		Example: "  community-intelligence chat what are the current trends\n" +
			"  community-intelligence chat -o json --server http://localhost:3001 where are the gaps",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			message := strings.TrimSpace(strings.Join(args, " "))
			if message == "" {
				return errors.InvalidParam("message must not be empty")
			}

			if server != "" {
				c, err := newAPIClient(server, cliCtx)
				if err != nil {
					return err
				}
				reply, err := c.Chat(cmd.Context(), message)
				if err != nil {
					return err
				}
				return PrintResult(cmd, chatResult{Reply: reply, Response: reply.Response})
			}

			services, err := NewServices(cmd.Context(), cliCtx.Config, prometheus.NewNoopAppMetrics(), cliCtx.Logger)
			if err != nil {
				return err
			}
			defer services.Close()

			reply, err := services.Chat.Respond(cmd.Context(), message)
			if err != nil {
				return err
			}
			return PrintResult(cmd, chatResult{Reply: reply, Response: reply.Response})
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "ask a running server at this base URL instead of answering locally")
	return cmd
}
