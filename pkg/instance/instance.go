package instance

import (
	"os"
	"strings"
)

// GetID returns the process instance identifier used in log fields and lock
// owners. CREATORHUB_INSTANCE_ID wins, then the platform dyno name, then the
// host name.
func GetID() string {
	for _, env := range []string{"CREATORHUB_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(env)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
