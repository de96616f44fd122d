// Package autoload configures the global logger from the LOG_* environment
// on import. Blank-import it from main.
package autoload

import (
	configx "github.com/pattaradanai/shopmate/pkg/config"
	logx "github.com/pattaradanai/shopmate/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
