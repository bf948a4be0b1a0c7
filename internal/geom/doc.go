// Package geom holds the 3-D primitives the suspension solver is built on.
//
// Points and directions are [r3.Vector] values in inches. The solver's atomic
// operation is [IntersectThreeSpheres]: given three known points and the distances
// from an unknown point to each, recover the unknown point closest to a guess.
// [RotateToDistance] is its planar companion for points pinned on an axle
// (bellcranks, anti-roll bar arms).
//
// Rigid bodies are moved with [Frame] and [RigidTransform]; chassis attitude uses
// [Transform], which composes elementary rotations with gonum matrices.
package geom
