package logger

import (
	"os"
	"strings"
)

// InitFromEnv initializes the default logger from LOG_* environment
// variables, called by every service main before anything else logs.
func InitFromEnv(service string) {
	Init(Config{
		Level:   getenvDefault("LOG_LEVEL", "info"),
		Format:  getenvDefault("LOG_FORMAT", "json"),
		Service: getenvDefault("LOG_SERVICE", service),
		Env:     getenvDefault("LOG_ENV", os.Getenv("APP_ENV")),
	})
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
