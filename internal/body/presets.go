package body

// StandingBody returns a preset Body with both hands hanging at rest beside the hips.
// Coordinates are in meters in the host's session space, Y pointing up.
func StandingBody(id string) Body {
	return Body{
		ID: id,
		Joints: map[int]Point3D{
			LeftHandJoint:  {X: -0.25, Y: 0.85, Z: -1.50},
			RightHandJoint: {X: 0.25, Y: 0.85, Z: -1.50},
		},
		EstimatedHeightScale: 1.0,
	}
}

// HandPath builds the change sets of a short tracking session: one change set
// adding the body followed by one update per height. Heights for the left hand
// come from left and for the right hand from right; when one slice is shorter
// the remaining updates omit that hand.
func HandPath(id string, left, right []float64) []ChangeSet {
	rest := StandingBody(id)

	sets := []ChangeSet{{Added: []Body{rest}, Timestamp: 0}}

	n := len(left)
	if len(right) > n {
		n = len(right)
	}

	for i := 0; i < n; i++ {
		b := Body{
			ID:                   id,
			Joints:               make(map[int]Point3D, 2),
			EstimatedHeightScale: rest.EstimatedHeightScale,
		}
		if i < len(left) {
			p := rest.Joints[LeftHandJoint]
			p.Y = left[i]
			b.Joints[LeftHandJoint] = p
		}
		if i < len(right) {
			p := rest.Joints[RightHandJoint]
			p.Y = right[i]
			b.Joints[RightHandJoint] = p
		}
		sets = append(sets, ChangeSet{
			Updated:   []Body{b},
			Timestamp: int64(i+1) * 33,
		})
	}

	return sets
}
