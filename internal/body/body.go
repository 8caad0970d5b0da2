package body

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidChangeSet is returned when a change set cannot be applied.
var ErrInvalidChangeSet = errors.New("invalid change set")

// Body is one tracked human body as reported by the host on a tracking update.
type Body struct {
	// ID is the host's trackable identifier. It is stable for as long as the
	// host keeps tracking the body.
	ID string `json:"id"`

	// Joints maps host skeleton joint indices to anchor positions.
	Joints map[int]Point3D `json:"joints"`

	// EstimatedHeightScale is the host's estimate of the body's height scale factor.
	EstimatedHeightScale float64 `json:"estimated_height_scale,omitempty"`
}

// Joint returns the position of the given limb and whether the host reported it.
func (b *Body) Joint(l Limb) (Point3D, bool) {
	idx, ok := l.Joint()
	if !ok || b.Joints == nil {
		return Point3D{}, false
	}
	p, ok := b.Joints[idx]
	return p, ok
}

// ChangeSet carries one host tracking callback: the bodies that appeared,
// the bodies whose pose changed and the IDs of bodies no longer tracked.
type ChangeSet struct {
	Added     []Body   `json:"added,omitempty"`
	Updated   []Body   `json:"updated,omitempty"`
	Removed   []string `json:"removed,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"` // unix milliseconds
}

// Validate checks that every body in the change set carries a usable ID.
// IDs become URL path segments and MQTT topic levels, so they may not
// contain '/', '+' or '#'.
func (c *ChangeSet) Validate() error {
	for i, b := range c.Added {
		if err := validateID(b.ID); err != nil {
			return fmt.Errorf("%w: added body %d %v", ErrInvalidChangeSet, i, err)
		}
	}
	for i, b := range c.Updated {
		if err := validateID(b.ID); err != nil {
			return fmt.Errorf("%w: updated body %d %v", ErrInvalidChangeSet, i, err)
		}
	}
	for i, id := range c.Removed {
		if err := validateID(id); err != nil {
			return fmt.Errorf("%w: removed entry %d %v", ErrInvalidChangeSet, i, err)
		}
	}
	return nil
}

func validateID(id string) error {
	if id == "" {
		return errors.New("has no id")
	}
	if strings.ContainsAny(id, "/+#") {
		return fmt.Errorf("has id %q with a reserved character", id)
	}
	return nil
}

// IsEmpty reports whether the change set carries no bodies at all.
func (c *ChangeSet) IsEmpty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// HeightScale returns the estimated height scale of the first added body,
// or of the first updated body when nothing was added.
// The host only ever produces one body anchor, so the first one is used.
func (c *ChangeSet) HeightScale() (float64, bool) {
	if len(c.Added) > 0 {
		return c.Added[0].EstimatedHeightScale, true
	}
	if len(c.Updated) > 0 {
		return c.Updated[0].EstimatedHeightScale, true
	}
	return 0, false
}
