package instance

import (
	"os"

	"github.com/angelmondragon/bazaar-backend/pkg/env"
)

const fallbackID = "bazaar-0"

// GetID identifies the running process in logs: BAZAAR_INSTANCE_ID, then the hostname.
func GetID() string {
	if id := env.Get("BAZAAR_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
