// Package autoload configures the global zerolog logger from LOG_* variables
// when imported for side effects.
package autoload

import (
	"github.com/rs/zerolog/log"

	configx "github.com/immisense/advisor/pkg/config"
	logx "github.com/immisense/advisor/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		log.Warn().Err(err).Msg("logger config invalid, using defaults")
		return
	}
	logx.Init(*conf)
}
