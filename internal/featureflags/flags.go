package featureflags

import (
	"os"
	"strings"
)

// Flag names a toggleable subsystem. A flag is switched on through its
// environment variable, FLAG_<NAME>=1/true/yes/on (case-insensitive), and is
// off by default.
type Flag string

const (
	// IntegrityChecker gates the background hierarchy integrity scans.
	IntegrityChecker Flag = "integrity_checker"
)

// EnvVar returns the environment variable controlling the flag.
func (f Flag) EnvVar() string {
	return "FLAG_" + strings.ToUpper(string(f))
}

// Enabled reports whether the flag is switched on.
func (f Flag) Enabled() bool {
	switch strings.ToLower(os.Getenv(f.EnvVar())) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
