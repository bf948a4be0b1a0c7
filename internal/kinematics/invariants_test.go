package kinematics_test

import (
	"math"

	"github.com/golang/geo/r3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

func maxPointError(a, b *vehicle.Car) float64 {
	var worst float64
	for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
		for h := vehicle.Hardpoint(0); h < vehicle.NumHardpoints; h++ {
			d := a.Corner(loc).Point(h).Sub(b.Corner(loc).Point(h)).Norm()
			worst = math.Max(worst, d)
		}
	}
	return worst
}

var _ = Describe("Kinematic solve", func() {
	var car *vehicle.Car

	BeforeEach(func() {
		car = vehicle.NewFormulaCar()
	})

	It("leaves every hardpoint in place for zero inputs", func() {
		working, err := kinematics.Solve(car, kinematics.Inputs{})
		Expect(err).NotTo(HaveOccurred())
		Expect(maxPointError(working, car)).To(BeNumerically("<", 1e-9))
	})

	DescribeTable("returns to the original car when the inputs are undone",
		func(in kinematics.Inputs) {
			in.CenterOfRotation = car.MassProperties.CenterOfGravity
			moved, err := kinematics.Solve(car, in)
			Expect(err).NotTo(HaveOccurred())
			back, err := kinematics.Solve(moved, in.Negate())
			Expect(err).NotTo(HaveOccurred())
			Expect(maxPointError(back, car)).To(BeNumerically("<", 1e-6))
		},
		Entry("pitch", kinematics.Inputs{Pitch: -0.015}),
		Entry("roll", kinematics.Inputs{Roll: 0.04}),
		Entry("heave", kinematics.Inputs{Heave: -1}),
		Entry("rack", kinematics.Inputs{Rack: -0.6}),
		Entry("wheel angle", kinematics.Inputs{Rack: 0.4, Steering: kinematics.SteeringWheelAngle}),
		Entry("roll then pitch", kinematics.Inputs{Roll: 0.02, Pitch: 0.01, Order: kinematics.OrderXYZ}),
	)

	Context("with a symmetric car and no roll or steering", func() {
		var out *kinematics.Outputs

		BeforeEach(func() {
			var err error
			_, out, err = kinematics.Analyze(car, kinematics.Inputs{Heave: 0.4})
			Expect(err).NotTo(HaveOccurred())
		})

		It("mirrors camber, steer and the instant centers", func() {
			for _, front := range []bool{true, false} {
				right, left := vehicle.Axle(front)
				Expect(out.Corner(left, kinematics.Camber)).To(BeNumerically("~", out.Corner(right, kinematics.Camber), 1e-9))
				Expect(out.Corner(left, kinematics.Steer)).To(BeNumerically("~", -out.Corner(right, kinematics.Steer), 1e-9))

				ir := out.Corners[right].Vectors[kinematics.InstantCenter]
				il := out.Corners[left].Vectors[kinematics.InstantCenter]
				Expect(il.Sub(r3.Vector{X: ir.X, Y: -ir.Y, Z: ir.Z}).Norm()).To(BeNumerically("<", 1e-6))
			}
		})

		It("keeps the roll centers on the centerline", func() {
			Expect(out.Vectors[kinematics.FrontKinematicRC].Y).To(BeNumerically("~", 0, 1e-7))
			Expect(out.Vectors[kinematics.RearKinematicRC].Y).To(BeNumerically("~", 0, 1e-7))
		})
	})

	It("keeps the contact patches on raised ground", func() {
		working := &vehicle.Car{}
		ground := kinematics.Ground{0.5, -0.25, 0, 0.1}
		Expect(kinematics.SolveInto(car, working, kinematics.Inputs{}, ground)).To(Succeed())
		for loc := vehicle.Location(0); loc < vehicle.NumLocations; loc++ {
			Expect(working.Corner(loc).Point(vehicle.ContactPatch).Z).To(BeNumerically("~", ground[loc], 1e-9))
		}
	})
})
