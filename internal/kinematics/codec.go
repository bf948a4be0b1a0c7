package kinematics

import "github.com/san-kum/vvase/internal/binio"

// WriteInputs encodes in for the sweep and optimization files.
func WriteInputs(w *binio.Writer, in Inputs) {
	w.Float64(in.Pitch)
	w.Float64(in.Roll)
	w.Float64(in.Heave)
	w.Float64(in.Rack)
	w.Int32(int32(in.Steering))
	w.Int32(int32(in.Order))
	w.Vector(in.CenterOfRotation)
}

func ReadInputs(r *binio.Reader) Inputs {
	var in Inputs
	in.Pitch = r.Float64()
	in.Roll = r.Float64()
	in.Heave = r.Float64()
	in.Rack = r.Float64()
	in.Steering = SteeringInput(r.Enum(int(NumSteeringInputs)))
	in.Order = RotationOrder(r.Enum(int(NumRotationOrders)))
	in.CenterOfRotation = r.Vector()
	return in
}
