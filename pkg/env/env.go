// Package env reads the handful of process-level knobs, like LOG_FORMAT,
// that sit outside the daemon's envconfig-backed Config.
package env

import "os"

// Get returns the named environment variable, or fallback when it is unset
// or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
