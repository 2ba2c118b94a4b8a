// Package clix holds small helpers for reading shared CLI flags.
package clix

import (
	"github.com/spf13/pflag"
)

// ParseLimit reads the limit flag, falling back to def when the flag
// is absent or non-positive.
func ParseLimit(flags *pflag.FlagSet, def int) int {
	limit, _ := flags.GetInt("limit")
	if limit <= 0 {
		return def
	}
	return limit
}

// ParseModel reads the model flag, falling back to the configured
// default when the flag is empty.
func ParseModel(flags *pflag.FlagSet, fallback string) string {
	model, _ := flags.GetString("model")
	if model == "" {
		return fallback
	}
	return model
}
