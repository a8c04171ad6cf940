package instance

import "os"

// GetID returns the process instance identifier used in log fields,
// or a default value when the platform does not provide one.
func GetID() string {
	if id := os.Getenv("STOCKLANE_INSTANCE_ID"); id != "" {
		return id
	}
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
