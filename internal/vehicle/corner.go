package vehicle

import (
	"math"

	"github.com/golang/geo/r3"
)

// Corner is the suspension assembly at one wheel.
type Corner struct {
	Location   Location
	Hardpoints [NumHardpoints]r3.Vector

	StaticCamber float64 // rad, positive top outboard
	StaticToe    float64 // rad, positive toe-in

	ActuationAttachment Attachment
	ActuationType       ActuationType

	SpringRate float64 // lbf/in
	DamperRate float64 // lbf-s/in

	// WheelNormal is the unit spin axis pointing outboard. Like the wheel
	// center it is derived, never user-set.
	WheelNormal r3.Vector
}

func (c *Corner) Point(h Hardpoint) r3.Vector {
	return c.Hardpoints[h]
}

func (c *Corner) SetPoint(h Hardpoint, p r3.Vector) {
	c.Hardpoints[h] = p
}

// StaticWheelNormal builds the outboard spin axis from static camber and toe.
func (c *Corner) StaticWheelNormal() r3.Vector {
	s := c.Location.Side()
	sinT, cosT := math.Sincos(c.StaticToe)
	sinG, cosG := math.Sincos(c.StaticCamber)
	return r3.Vector{X: -sinT * cosG, Y: s * cosT * cosG, Z: -sinG}
}

// WheelUp returns the unit direction within the wheel plane closest to +Z.
func WheelUp(normal r3.Vector) r3.Vector {
	n := normal.Normalize()
	up := r3.Vector{Z: 1}
	return up.Sub(n.Mul(up.Dot(n))).Normalize()
}

// ComputeWheelCenter places the wheel center one tire radius above the
// contact patch within the static wheel plane.
func (c *Corner) ComputeWheelCenter(tireDiameter float64) {
	c.WheelNormal = c.StaticWheelNormal()
	c.Hardpoints[WheelCenter] = c.Hardpoints[ContactPatch].Add(WheelUp(c.WheelNormal).Mul(tireDiameter / 2))
}

// Mirror returns the corner reflected across the X-Z plane onto loc.
func (c Corner) Mirror(loc Location) Corner {
	m := c
	m.Location = loc
	for i, p := range c.Hardpoints {
		m.Hardpoints[i] = r3.Vector{X: p.X, Y: -p.Y, Z: p.Z}
	}
	m.WheelNormal = r3.Vector{X: c.WheelNormal.X, Y: -c.WheelNormal.Y, Z: c.WheelNormal.Z}
	return m
}
