package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a logger writing to stdout at the given level, as
// JSON in prod and as text elsewhere.  Unknown levels fall back to info.
func NewLogger(level, env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if env == "prod" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
