// Package vehicle holds the car parameter model: four corners of suspension
// hardpoints, axle-level anti-roll bars and third springs, tires, mass
// properties and the parameter bags used for load transfer.
//
// Coordinates are inches in a car-fixed frame with X rearward, Y to the right
// and Z up. Left corners mirror right corners across the X-Z plane.
//
// # Files
//
// Cars persist in a little-endian binary format with a versioned header; see
// [ReadCar] and [Car.WriteTo].
package vehicle
