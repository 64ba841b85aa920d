package ids

import "github.com/segmentio/ksuid"

// New returns a fresh k-sortable entity id.
func New() string {
	return ksuid.New().String()
}
