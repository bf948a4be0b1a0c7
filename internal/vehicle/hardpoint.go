package vehicle

import (
	"fmt"
	"strings"
)

// Hardpoint names one point of a corner's suspension geometry.
type Hardpoint int

const (
	LowerFrontTubMount Hardpoint = iota
	LowerRearTubMount
	LowerBallJoint
	UpperFrontTubMount
	UpperRearTubMount
	UpperBallJoint
	OutboardTieRod
	InboardTieRod
	OutboardPushrod
	InboardPushrod
	BellCrankPivot1
	BellCrankPivot2
	OutboardSpring
	InboardSpring
	OutboardDamper
	InboardDamper
	ContactPatch
	WheelCenter
	OutboardBarLink
	InboardBarLink
	BarArmAtPivot
	GearEndBarShaft
	OutboardHalfShaft
	InboardHalfShaft
	NumHardpoints
)

// NoHardpoint marks an unused hardpoint reference.
const NoHardpoint Hardpoint = -1

var hardpointNames = [NumHardpoints]string{
	"LowerFrontTubMount",
	"LowerRearTubMount",
	"LowerBallJoint",
	"UpperFrontTubMount",
	"UpperRearTubMount",
	"UpperBallJoint",
	"OutboardTieRod",
	"InboardTieRod",
	"OutboardPushrod",
	"InboardPushrod",
	"BellCrankPivot1",
	"BellCrankPivot2",
	"OutboardSpring",
	"InboardSpring",
	"OutboardDamper",
	"InboardDamper",
	"ContactPatch",
	"WheelCenter",
	"OutboardBarLink",
	"InboardBarLink",
	"BarArmAtPivot",
	"GearEndBarShaft",
	"OutboardHalfShaft",
	"InboardHalfShaft",
}

func (h Hardpoint) String() string {
	if h == NoHardpoint {
		return "None"
	}
	if h < 0 || h >= NumHardpoints {
		return fmt.Sprintf("Hardpoint(%d)", int(h))
	}
	return hardpointNames[h]
}

// ParseHardpoint accepts a hardpoint name case-insensitively. "None" and the
// empty string give NoHardpoint.
func ParseHardpoint(name string) (Hardpoint, error) {
	if name == "" || strings.EqualFold(name, "none") {
		return NoHardpoint, nil
	}
	for i, n := range hardpointNames {
		if strings.EqualFold(n, name) {
			return Hardpoint(i), nil
		}
	}
	return NoHardpoint, fmt.Errorf("unknown hardpoint %q", name)
}

// Location is one of the four corners of the car.
type Location int

const (
	RightFront Location = iota
	LeftFront
	RightRear
	LeftRear
	NumLocations
)

var locationNames = [NumLocations]string{"RightFront", "LeftFront", "RightRear", "LeftRear"}

func (l Location) String() string {
	if l < 0 || l >= NumLocations {
		return fmt.Sprintf("Location(%d)", int(l))
	}
	return locationNames[l]
}

// ParseLocation accepts full names or the RF/LF/RR/LR abbreviations.
func ParseLocation(name string) (Location, error) {
	abbrev := map[string]Location{"rf": RightFront, "lf": LeftFront, "rr": RightRear, "lr": LeftRear}
	if l, ok := abbrev[strings.ToLower(name)]; ok {
		return l, nil
	}
	for i, n := range locationNames {
		if strings.EqualFold(n, name) {
			return Location(i), nil
		}
	}
	return 0, fmt.Errorf("unknown corner location %q", name)
}

func (l Location) IsFront() bool { return l == RightFront || l == LeftFront }
func (l Location) IsLeft() bool  { return l == LeftFront || l == LeftRear }

// Side is +1 for right corners and -1 for left corners.
func (l Location) Side() float64 {
	if l.IsLeft() {
		return -1
	}
	return 1
}

// Opposite returns the corner on the other side of the same axle.
func (l Location) Opposite() Location {
	switch l {
	case RightFront:
		return LeftFront
	case LeftFront:
		return RightFront
	case RightRear:
		return LeftRear
	default:
		return RightRear
	}
}

// Axle returns the right and left corners of the front or rear axle.
func Axle(front bool) (right, left Location) {
	if front {
		return RightFront, LeftFront
	}
	return RightRear, LeftRear
}

// Attachment is the body a pushrod, spring or bar link is fixed to.
type Attachment int

const (
	AttachBellcrank Attachment = iota
	AttachLowerAArm
	AttachUpperAArm
	AttachUpright
	numAttachments
)

var attachmentNames = [numAttachments]string{"Bellcrank", "LowerAArm", "UpperAArm", "Upright"}

func (a Attachment) String() string {
	if a < 0 || a >= numAttachments {
		return fmt.Sprintf("Attachment(%d)", int(a))
	}
	return attachmentNames[a]
}

func ParseAttachment(name string) (Attachment, error) {
	for i, n := range attachmentNames {
		if strings.EqualFold(n, name) {
			return Attachment(i), nil
		}
	}
	return 0, fmt.Errorf("unknown attachment %q", name)
}

// ActuationType selects how the spring and damper are driven.
type ActuationType int

const (
	PushPullrod ActuationType = iota
	OutboardActuation
	numActuationTypes
)

func (a ActuationType) String() string {
	switch a {
	case PushPullrod:
		return "PushPullrod"
	case OutboardActuation:
		return "Outboard"
	}
	return fmt.Sprintf("ActuationType(%d)", int(a))
}

func ParseActuationType(name string) (ActuationType, error) {
	switch strings.ToLower(name) {
	case "pushpullrod", "pushrod", "pullrod":
		return PushPullrod, nil
	case "outboard":
		return OutboardActuation, nil
	}
	return 0, fmt.Errorf("unknown actuation type %q", name)
}

// BarStyle is the anti-roll bar topology of one axle.
type BarStyle int

const (
	BarNone BarStyle = iota
	BarU
	BarT
	BarGeared
	numBarStyles
)

var barStyleNames = [numBarStyles]string{"None", "U-bar", "T-bar", "Geared"}

func (b BarStyle) String() string {
	if b < 0 || b >= numBarStyles {
		return fmt.Sprintf("BarStyle(%d)", int(b))
	}
	return barStyleNames[b]
}

func ParseBarStyle(name string) (BarStyle, error) {
	n := strings.ToLower(strings.ReplaceAll(name, "-", ""))
	switch n {
	case "", "none":
		return BarNone, nil
	case "ubar", "u":
		return BarU, nil
	case "tbar", "t":
		return BarT, nil
	case "geared":
		return BarGeared, nil
	}
	return 0, fmt.Errorf("unknown bar style %q", name)
}
