// Package env reads single process environment variables for the few knobs
// that live outside the envconfig struct, such as the listen port override.
package env

import "os"

// Get returns the variable's value, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
