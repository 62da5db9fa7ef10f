// Package logging configures the process-wide logrus logger.
package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Init sets the log level and formatter from an explicit level string
// (used by the gateway/node CLI once viper has resolved configuration).
func Init(level string) {
	setLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

// InitFromEnv initializes logging straight from LOG_LEVEL, for code
// paths (tests, the engine/vault packages in isolation) that run before
// or without a resolved Config.
func InitFromEnv() {
	setLevel(os.Getenv("LOG_LEVEL"))
}

func setLevel(level string) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		log.SetLevel(log.TraceLevel)
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.ErrorLevel)
	}
}

func init() {
	InitFromEnv()
}
