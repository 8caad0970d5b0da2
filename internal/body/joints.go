// Package body provides the skeleton vocabulary shared by the hand statistics pipeline.
package body

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// Joint indices in the host skeleton for the anchors this service tracks.
const (
	LeftHandJoint  = 27
	RightHandJoint = 71
)

// Point3D represents a 3D point in space with x, y, z coordinates.
// Y is the vertical axis.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// IsFinite reports whether every coordinate is a finite number.
func (p Point3D) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Vector returns the point as an r3.Vector.
func (p Point3D) Vector() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// String formats the point with three decimals.
func (p Point3D) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", p.X, p.Y, p.Z)
}

// Distance calculates the Euclidean distance between two points.
func Distance(a, b Point3D) float64 {
	return a.Vector().Distance(b.Vector())
}

// Limb identifies a tracked anchor on the body.
type Limb string

const (
	// LeftHand is the left hand anchor.
	LeftHand Limb = "left_hand"
	// RightHand is the right hand anchor.
	RightHand Limb = "right_hand"
)

// Limbs lists every limb the pipeline knows how to track, in reporting order.
var Limbs = []Limb{LeftHand, RightHand}

var limbJoints = map[Limb]int{
	LeftHand:  LeftHandJoint,
	RightHand: RightHandJoint,
}

// Joint returns the host skeleton joint index the limb is reported under.
func (l Limb) Joint() (int, bool) {
	idx, ok := limbJoints[l]
	return idx, ok
}

// ParseLimb converts a name such as "left_hand" or "left" into a Limb.
func ParseLimb(s string) (Limb, error) {
	switch s {
	case "left_hand", "left":
		return LeftHand, nil
	case "right_hand", "right":
		return RightHand, nil
	default:
		return "", fmt.Errorf("unknown limb %q", s)
	}
}
