package probe

import (
	"fmt"

	"github.com/carverauto/healthchecker/pkg/logger"
)

// schedLogger adapts logger.Logger to the cron.Logger and ants.Logger interfaces.
type schedLogger struct {
	logger logger.Logger
}

// Info is cron's chatty per-tick logging; keep it at debug.
func (l schedLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l schedLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

func (l schedLogger) Printf(format string, args ...interface{}) {
	l.logger.Warn().Msg(fmt.Sprintf(format, args...))
}
