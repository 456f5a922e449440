package irc

import (
	"github.com/fluffle/goirc/logging"
	"github.com/rs/zerolog"
)

// zerologAdapter routes goirc's internal logging through zerolog.
type zerologAdapter struct {
	log *zerolog.Logger
}

// UseLogger installs logger as goirc's package-wide logger.
func UseLogger(logger *zerolog.Logger) {
	if logger == nil {
		return
	}
	l := logger.With().Str("component", "goirc").Logger()
	logging.SetLogger(zerologAdapter{log: &l})
}

func (a zerologAdapter) Debug(f string, args ...interface{}) {
	a.log.Debug().Msgf(f, args...)
}

func (a zerologAdapter) Info(f string, args ...interface{}) {
	a.log.Info().Msgf(f, args...)
}

func (a zerologAdapter) Warn(f string, args ...interface{}) {
	a.log.Warn().Msgf(f, args...)
}

func (a zerologAdapter) Error(f string, args ...interface{}) {
	a.log.Error().Msgf(f, args...)
}
