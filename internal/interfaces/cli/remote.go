package cli

import (
	"fmt"

	"github.com/turtacn/community-intelligence/internal/config"
	"github.com/turtacn/community-intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/community-intelligence/pkg/client"
)

// sdkLogger adapts logging.Logger to the printf-style SDK logger.
type sdkLogger struct{ l logging.Logger }

func (s sdkLogger) Debugf(format string, args ...interface{}) { s.l.Debug(fmt.Sprintf(format, args...)) }
func (s sdkLogger) Infof(format string, args ...interface{})  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s sdkLogger) Errorf(format string, args ...interface{}) { s.l.Error(fmt.Sprintf(format, args...)) }

// newAPIClient builds an SDK client for a running server.
func newAPIClient(baseURL string, cliCtx *CLIContext) (*client.Client, error) {
	return client.NewClient(baseURL,
		client.WithLogger(sdkLogger{cliCtx.Logger.Named("client")}),
		client.WithUserAgent(fmt.Sprintf("community-intelligence-cli/%s", config.Version)),
	)
}
