package envutil

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/trendwatch-backend/internal/platform/logger"
)

// String returns the trimmed value of name, or def when unset or blank.
func String(name, def string, log *logger.Logger) string {
	v, ok := lookup(name)
	if !ok {
		logDefault(log, name, def)
		return def
	}
	return v
}

func Int(name string, def int, log *logger.Logger) int {
	v, ok := lookup(name)
	if !ok {
		logDefault(log, name, def)
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		logInvalid(log, name, v, def)
		return def
	}
	return i
}

func Float(name string, def float64, log *logger.Logger) float64 {
	v, ok := lookup(name)
	if !ok {
		logDefault(log, name, def)
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logInvalid(log, name, v, def)
		return def
	}
	return f
}

func Bool(name string, def bool, log *logger.Logger) bool {
	v, ok := lookup(name)
	if !ok {
		logDefault(log, name, def)
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		logInvalid(log, name, v, def)
		return def
	}
}

// Duration accepts Go duration strings ("90s", "5m") or a bare integer of seconds.
func Duration(name string, def time.Duration, log *logger.Logger) time.Duration {
	v, ok := lookup(name)
	if !ok {
		logDefault(log, name, def.String())
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logInvalid(log, name, v, def.String())
		return def
	}
	return d
}

// List splits a comma-separated value, dropping blank entries.
func List(name string, def []string, log *logger.Logger) []string {
	v, ok := lookup(name)
	if !ok {
		logDefault(log, name, strings.Join(def, ","))
		return def
	}
	out := []string{}
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

func logDefault(log *logger.Logger, name string, def interface{}) {
	if log == nil {
		return
	}
	log.Debug("Environment variable not found, using default", "env_var", name, "default", def)
}

func logInvalid(log *logger.Logger, name, raw string, def interface{}) {
	if log == nil {
		return
	}
	log.Warn("Environment variable invalid, using default", "env_var", name, "value", raw, "default", def)
}
