// Package logging builds the process logger from configuration.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/archeus/mt940-merger/internal/config"
)

// New returns a logrus logger configured per cfg. Unknown levels fall
// back to info rather than failing startup.
func New(cfg *config.Config) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}
