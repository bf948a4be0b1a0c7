package vehicle

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r3"
)

// AxleHardpoint names a whole-axle point shared by both corners.
type AxleHardpoint int

const (
	BarMidPoint AxleHardpoint = iota
	ThirdSpringInboard
	ThirdSpringOutboard
	ThirdDamperInboard
	ThirdDamperOutboard
	NumAxleHardpoints
)

var axleHardpointNames = [NumAxleHardpoints]string{
	"BarMidPoint",
	"ThirdSpringInboard",
	"ThirdSpringOutboard",
	"ThirdDamperInboard",
	"ThirdDamperOutboard",
}

func (h AxleHardpoint) String() string {
	if h < 0 || h >= NumAxleHardpoints {
		return fmt.Sprintf("AxleHardpoint(%d)", int(h))
	}
	return axleHardpointNames[h]
}

func ParseAxleHardpoint(name string) (AxleHardpoint, error) {
	for i, n := range axleHardpointNames {
		if strings.EqualFold(n, name) {
			return AxleHardpoint(i), nil
		}
	}
	return 0, fmt.Errorf("unknown axle hardpoint %q", name)
}

// AxleSuspension holds the anti-roll bar and third spring of one axle.
//
// The third spring and damper inboard ends ride on the left bellcrank and
// the outboard ends on the right bellcrank. With outboard actuation they
// ride on the lower A-arms instead.
type AxleSuspension struct {
	BarStyle      BarStyle
	BarAttachment Attachment
	BarRate       float64 // in-lbf/rad

	HasThirdSpring  bool
	ThirdSpringRate float64 // lbf/in
	ThirdDamperRate float64 // lbf-s/in

	Hardpoints [NumAxleHardpoints]r3.Vector
}

type Suspension struct {
	Corners [NumLocations]Corner
	Front   AxleSuspension
	Rear    AxleSuspension

	// RackRatio is rack travel per steering wheel angle, in/rad.
	RackRatio   float64
	IsSymmetric bool
}

func (s *Suspension) Corner(loc Location) *Corner {
	return &s.Corners[loc]
}

// Axle returns the axle-level parameters of the front or rear axle.
func (s *Suspension) Axle(front bool) *AxleSuspension {
	if front {
		return &s.Front
	}
	return &s.Rear
}

// MirrorRightToLeft overwrites the left corners with mirrored copies of the
// right corners.
func (s *Suspension) MirrorRightToLeft() {
	s.Corners[LeftFront] = s.Corners[RightFront].Mirror(LeftFront)
	s.Corners[LeftRear] = s.Corners[RightRear].Mirror(LeftRear)
}
