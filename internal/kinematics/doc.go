// Package kinematics displaces a car's suspension to a chassis attitude and
// computes the resulting alignment, motion ratios and instant centers.
//
// The chassis-fixed pickups are moved rigidly by the pitch, roll and heave
// inputs. Each corner then has one free degree of freedom, the lower A-arm
// angle, which is solved so that the contact patch lies on the ground. Every
// other member follows from sphere intersections and axis rotations, so link
// lengths are preserved exactly.
//
// The solver never logs and never mutates the car it is given.
package kinematics
