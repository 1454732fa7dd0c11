package instanceid

import (
	"github.com/google/uuid"
)

// nolint:gochecknoglobals
var instanceId uuid.UUID

// nolint:gochecknoinits
func init() {
	instanceId = uuid.New()
}

// String instanceid representation as string
func String() string {
	return instanceId.String()
}
