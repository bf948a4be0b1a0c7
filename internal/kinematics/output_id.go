package kinematics

import (
	"fmt"
	"strings"

	"github.com/san-kum/vvase/internal/units"
	"github.com/san-kum/vvase/internal/vehicle"
)

// CornerDouble names a scalar output computed for every corner.
type CornerDouble int

const (
	Caster CornerDouble = iota
	Camber
	KPI
	Steer
	Spring
	Damper
	// AxlePlunge is the change in half-shaft length from the static car.
	// The solver never holds the shaft to a fixed length; plunge is only reported.
	AxlePlunge
	CasterTrail
	ScrubRadius
	Scrub
	SpringInstallationRatio
	DamperInstallationRatio
	ARBInstallationRatio
	SpindleLength
	SideViewSwingArmLength
	FrontViewSwingArmLength
	AntiBrakePitch
	AntiDrivePitch
	NumCornerDoubles
)

var cornerDoubleNames = [NumCornerDoubles]string{
	"Caster", "Camber", "KPI", "Steer", "Spring", "Damper", "AxlePlunge",
	"CasterTrail", "ScrubRadius", "Scrub",
	"SpringInstallationRatio", "DamperInstallationRatio", "ARBInstallationRatio",
	"SpindleLength", "SideViewSwingArmLength", "FrontViewSwingArmLength",
	"AntiBrakePitch", "AntiDrivePitch",
}

var cornerDoubleUnits = [NumCornerDoubles]units.UnitType{
	units.Angle, units.Angle, units.Angle, units.Angle,
	units.Distance, units.Distance, units.Distance,
	units.Distance, units.Distance, units.Distance,
	units.Unitless, units.Unitless, units.AnglePerDistance,
	units.Distance, units.Distance, units.Distance,
	units.Percent, units.Percent,
}

func (d CornerDouble) String() string {
	if d < 0 || d >= NumCornerDoubles {
		return fmt.Sprintf("CornerDouble(%d)", int(d))
	}
	return cornerDoubleNames[d]
}

// CornerVector names a vector output computed for every corner.
type CornerVector int

const (
	InstantCenter CornerVector = iota
	InstantAxisDirection
	NumCornerVectors
)

var cornerVectorNames = [NumCornerVectors]string{"InstantCenter", "InstantAxisDirection"}

var cornerVectorUnits = [NumCornerVectors]units.UnitType{units.Distance, units.Unitless}

func (v CornerVector) String() string {
	if v < 0 || v >= NumCornerVectors {
		return fmt.Sprintf("CornerVector(%d)", int(v))
	}
	return cornerVectorNames[v]
}

// CarDouble names a whole-car scalar output.
type CarDouble int

const (
	FrontARBTwist CarDouble = iota
	RearARBTwist
	FrontThirdSpring
	FrontThirdDamper
	RearThirdSpring
	RearThirdDamper
	FrontNetSteer
	RearNetSteer
	FrontNetScrub
	RearNetScrub
	FrontTrackGround
	RearTrackGround
	RightWheelbaseGround
	LeftWheelbaseGround
	FrontTrackHub
	RearTrackHub
	RightWheelbaseHub
	LeftWheelbaseHub
	NumCarDoubles
)

var carDoubleNames = [NumCarDoubles]string{
	"FrontARBTwist", "RearARBTwist",
	"FrontThirdSpring", "FrontThirdDamper", "RearThirdSpring", "RearThirdDamper",
	"FrontNetSteer", "RearNetSteer", "FrontNetScrub", "RearNetScrub",
	"FrontTrackGround", "RearTrackGround", "RightWheelbaseGround", "LeftWheelbaseGround",
	"FrontTrackHub", "RearTrackHub", "RightWheelbaseHub", "LeftWheelbaseHub",
}

var carDoubleUnits = [NumCarDoubles]units.UnitType{
	units.Angle, units.Angle,
	units.Distance, units.Distance, units.Distance, units.Distance,
	units.Angle, units.Angle, units.Distance, units.Distance,
	units.Distance, units.Distance, units.Distance, units.Distance,
	units.Distance, units.Distance, units.Distance, units.Distance,
}

func (d CarDouble) String() string {
	if d < 0 || d >= NumCarDoubles {
		return fmt.Sprintf("CarDouble(%d)", int(d))
	}
	return carDoubleNames[d]
}

// CarVector names a whole-car vector output.
type CarVector int

const (
	FrontKinematicRC CarVector = iota
	RearKinematicRC
	RightKinematicPC
	LeftKinematicPC
	FrontRollAxisDirection
	RearRollAxisDirection
	RightPitchAxisDirection
	LeftPitchAxisDirection
	NumCarVectors
)

var carVectorNames = [NumCarVectors]string{
	"FrontKinematicRC", "RearKinematicRC", "RightKinematicPC", "LeftKinematicPC",
	"FrontRollAxisDirection", "RearRollAxisDirection",
	"RightPitchAxisDirection", "LeftPitchAxisDirection",
}

var carVectorUnits = [NumCarVectors]units.UnitType{
	units.Distance, units.Distance, units.Distance, units.Distance,
	units.Unitless, units.Unitless, units.Unitless, units.Unitless,
}

func (v CarVector) String() string {
	if v < 0 || v >= NumCarVectors {
		return fmt.Sprintf("CarVector(%d)", int(v))
	}
	return carVectorNames[v]
}

var axisNames = [3]string{"X", "Y", "Z"}

// OutputClass says which table an output lives in.
type OutputClass int

const (
	ClassCornerDouble OutputClass = iota
	ClassCornerVector
	ClassCarDouble
	ClassCarVector
)

// OutputKey identifies one scalar output by table, corner, item and vector
// axis. Location is ignored for car outputs and Axis for doubles.
type OutputKey struct {
	Class    OutputClass
	Location vehicle.Location
	Item     int
	Axis     int
}

// OutputID is the stable flat index of one scalar output. Corner doubles come
// first, grouped by corner, then corner vector components, then car doubles
// and car vector components.
type OutputID int

const (
	cornerVectorBase = OutputID(int(vehicle.NumLocations) * int(NumCornerDoubles))
	carDoubleBase    = cornerVectorBase + OutputID(int(vehicle.NumLocations)*int(NumCornerVectors)*3)
	carVectorBase    = carDoubleBase + OutputID(NumCarDoubles)

	// NumOutputs is the number of scalar outputs.
	NumOutputs = carVectorBase + OutputID(NumCarVectors)*3
)

// Index maps a key to its flat output id.
func (k OutputKey) Index() (OutputID, error) {
	validLoc := k.Location >= 0 && k.Location < vehicle.NumLocations
	validAxis := k.Axis >= 0 && k.Axis < 3
	switch k.Class {
	case ClassCornerDouble:
		if validLoc && k.Item >= 0 && k.Item < int(NumCornerDoubles) {
			return OutputID(int(k.Location)*int(NumCornerDoubles) + k.Item), nil
		}
	case ClassCornerVector:
		if validLoc && validAxis && k.Item >= 0 && k.Item < int(NumCornerVectors) {
			return cornerVectorBase + OutputID((int(k.Location)*int(NumCornerVectors)+k.Item)*3+k.Axis), nil
		}
	case ClassCarDouble:
		if k.Item >= 0 && k.Item < int(NumCarDoubles) {
			return carDoubleBase + OutputID(k.Item), nil
		}
	case ClassCarVector:
		if validAxis && k.Item >= 0 && k.Item < int(NumCarVectors) {
			return carVectorBase + OutputID(k.Item*3+k.Axis), nil
		}
	}
	return -1, fmt.Errorf("invalid output key %+v", k)
}

// CornerDoubleID is a shorthand for the id of a corner double.
func CornerDoubleID(loc vehicle.Location, d CornerDouble) OutputID {
	return OutputID(int(loc)*int(NumCornerDoubles) + int(d))
}

func CornerVectorID(loc vehicle.Location, v CornerVector, axis int) OutputID {
	return cornerVectorBase + OutputID((int(loc)*int(NumCornerVectors)+int(v))*3+axis)
}

func CarDoubleID(d CarDouble) OutputID {
	return carDoubleBase + OutputID(d)
}

func CarVectorID(v CarVector, axis int) OutputID {
	return carVectorBase + OutputID(int(v)*3+axis)
}

func (id OutputID) Valid() bool {
	return id >= 0 && id < NumOutputs
}

// Key inverts Index. ok is false for ids outside [0, NumOutputs).
func (id OutputID) Key() (k OutputKey, ok bool) {
	switch {
	case id < 0 || id >= NumOutputs:
		return k, false
	case id < cornerVectorBase:
		n := int(id)
		k.Class = ClassCornerDouble
		k.Location = vehicle.Location(n / int(NumCornerDoubles))
		k.Item = n % int(NumCornerDoubles)
	case id < carDoubleBase:
		n := int(id - cornerVectorBase)
		k.Class = ClassCornerVector
		k.Axis = n % 3
		n /= 3
		k.Location = vehicle.Location(n / int(NumCornerVectors))
		k.Item = n % int(NumCornerVectors)
	case id < carVectorBase:
		k.Class = ClassCarDouble
		k.Item = int(id - carDoubleBase)
	default:
		n := int(id - carVectorBase)
		k.Class = ClassCarVector
		k.Item = n / 3
		k.Axis = n % 3
	}
	return k, true
}

// Name is a human readable name such as "RightFront Camber" or
// "FrontKinematicRC Z".
func (id OutputID) Name() string {
	k, ok := id.Key()
	if !ok {
		return fmt.Sprintf("OutputID(%d)", int(id))
	}
	switch k.Class {
	case ClassCornerDouble:
		return k.Location.String() + " " + CornerDouble(k.Item).String()
	case ClassCornerVector:
		return k.Location.String() + " " + CornerVector(k.Item).String() + " " + axisNames[k.Axis]
	case ClassCarDouble:
		return CarDouble(k.Item).String()
	default:
		return CarVector(k.Item).String() + " " + axisNames[k.Axis]
	}
}

func (id OutputID) String() string { return id.Name() }

// Unit is the dimension of the output, used for display conversion.
func (id OutputID) Unit() units.UnitType {
	k, ok := id.Key()
	if !ok {
		return units.Unitless
	}
	switch k.Class {
	case ClassCornerDouble:
		return cornerDoubleUnits[k.Item]
	case ClassCornerVector:
		return cornerVectorUnits[k.Item]
	case ClassCarDouble:
		return carDoubleUnits[k.Item]
	default:
		return carVectorUnits[k.Item]
	}
}

// ParseOutputID looks an output up by its Name, ignoring case.
func ParseOutputID(name string) (OutputID, error) {
	name = strings.Join(strings.Fields(name), " ")
	for id := OutputID(0); id < NumOutputs; id++ {
		if strings.EqualFold(id.Name(), name) {
			return id, nil
		}
	}
	return -1, fmt.Errorf("unknown output %q", name)
}
