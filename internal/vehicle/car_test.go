package vehicle

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"

	"github.com/san-kum/vvase/internal/analysis"
)

func TestComputeWheelCenters(t *testing.T) {
	tests := []struct {
		name   string
		camber float64
		toe    float64
	}{
		{"zero alignment", 0, 0},
		{"negative camber", -0.03, 0},
		{"toe in", 0, 0.01},
		{"both", -0.02, -0.005},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			c := NewFormulaCar()
			for loc := Location(0); loc < NumLocations; loc++ {
				c.Corner(loc).StaticCamber = tt.camber
				c.Corner(loc).StaticToe = tt.toe
			}
			c.ComputeWheelCenters()

			for loc := Location(0); loc < NumLocations; loc++ {
				corner := c.Corner(loc)
				r := c.Tires.Tires[loc].Diameter / 2
				spoke := corner.Point(WheelCenter).Sub(corner.Point(ContactPatch))
				g.Expect(spoke.Norm()).To(BeNumerically("~", r, 1e-12))
				g.Expect(spoke.Dot(corner.WheelNormal)).To(BeNumerically("~", 0, 1e-12))
				g.Expect(corner.WheelNormal.Norm()).To(BeNumerically("~", 1, 1e-12))
				// the contact patch is the lowest point of the wheel
				g.Expect(spoke.Z).To(BeNumerically(">", 0))
			}
		})
	}
}

func TestStaticWheelNormalSigns(t *testing.T) {
	c := NewFormulaCar()
	rf := c.Corner(RightFront)
	lf := c.Corner(LeftFront)

	rf.StaticCamber, lf.StaticCamber = 0.05, 0.05
	if n := rf.StaticWheelNormal(); n.Y <= 0 || n.Z >= 0 {
		t.Errorf("right normal %v should point outboard and down for positive camber", n)
	}
	if n := lf.StaticWheelNormal(); n.Y >= 0 || n.Z >= 0 {
		t.Errorf("left normal %v should point outboard and down for positive camber", n)
	}

	rf.StaticCamber, rf.StaticToe = 0, 0.02
	// toe-in turns the front of the right wheel inboard, so its axis leans forward
	if n := rf.StaticWheelNormal(); n.X >= 0 {
		t.Errorf("toe-in right normal %v should have negative x", n)
	}
}

func TestMirror(t *testing.T) {
	c := NewFormulaCar()
	rf := c.Corner(RightFront)
	lf := c.Corner(LeftFront)
	for h := Hardpoint(0); h < NumHardpoints; h++ {
		r, l := rf.Point(h), lf.Point(h)
		if r.X != l.X || r.Y != -l.Y || r.Z != l.Z {
			t.Errorf("%s: right %v and left %v are not mirrored", h, r, l)
		}
	}
	if lf.Location != LeftFront {
		t.Errorf("mirrored location = %s", lf.Location)
	}
}

func TestClone(t *testing.T) {
	c := NewFormulaCar()
	clone := c.Clone()

	clone.Drivetrain.GearRatios[0] = 99
	clone.Corner(RightFront).SetPoint(LowerBallJoint, r3.Vector{X: 1})
	clone.MassProperties.Mass = 1

	if c.Drivetrain.GearRatios[0] == 99 {
		t.Error("gear ratios are shared with the clone")
	}
	if c.Corner(RightFront).Point(LowerBallJoint) == (r3.Vector{X: 1}) {
		t.Error("hardpoints are shared with the clone")
	}
	if c.MassProperties.Mass == 1 {
		t.Error("mass is shared with the clone")
	}
}

func TestValidate(t *testing.T) {
	for _, c := range []*Car{NewFormulaCar(), NewSedanCar()} {
		if err := c.Validate(); err != nil {
			t.Errorf("%s: unexpected error: %v", c.Name, err)
		}
	}

	c := NewFormulaCar()
	c.Tires.Tires[RightRear].Diameter = -1
	c.MassProperties.Mass = 0
	c.Corner(LeftFront).SetPoint(UpperBallJoint, r3.Vector{X: math.NaN()})
	c.Corner(RightFront).SetPoint(LowerRearTubMount, c.Corner(RightFront).Point(LowerFrontTubMount))

	err := c.Validate()
	if !errors.Is(err, analysis.ErrInvalidInputs) {
		t.Fatalf("expected ErrInvalidInputs, got %v", err)
	}
	if !errors.Is(err, analysis.ErrDegenerateLinkage) {
		t.Errorf("expected the coincident tub mounts to be reported, got %v", err)
	}
	if n := len(multierr.Errors(err)); n < 4 {
		t.Errorf("expected at least 4 errors, got %d: %v", n, err)
	}
}

func TestStaticLoads(t *testing.T) {
	g := NewWithT(t)
	c := NewFormulaCar()
	c.MassProperties.CenterOfGravity.Y = 0.5
	patches := c.ContactPatches()
	loads := c.MassProperties.StaticLoads(patches)

	var sum, mx, my float64
	cg := c.MassProperties.CenterOfGravity
	for i, w := range loads {
		sum += w
		mx += w * (patches[i].X - cg.X)
		my += w * (patches[i].Y - cg.Y)
	}
	g.Expect(sum).To(BeNumerically("~", c.MassProperties.Weight(), 1e-9))
	g.Expect(mx).To(BeNumerically("~", 0, 1e-7))
	g.Expect(my).To(BeNumerically("~", 0, 1e-7))
	g.Expect(loads[RightFront]).To(BeNumerically(">", loads[LeftFront]))
	g.Expect(loads[RightRear] + loads[LeftRear]).To(BeNumerically(">", loads[RightFront]+loads[LeftFront]))
}

func TestPrincipalInertias(t *testing.T) {
	g := NewWithT(t)
	m := MassProperties{Ixx: 300, Iyy: 100, Izz: 200}
	moments, axes, err := m.PrincipalInertias()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(moments[0]).To(BeNumerically("~", 100, 1e-9))
	g.Expect(moments[1]).To(BeNumerically("~", 200, 1e-9))
	g.Expect(moments[2]).To(BeNumerically("~", 300, 1e-9))
	g.Expect(math.Abs(axes[0].Y)).To(BeNumerically("~", 1, 1e-9))

	m = NewFormulaCar().MassProperties
	moments, axes, err = m.PrincipalInertias()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(moments[0] + moments[1] + moments[2]).To(BeNumerically("~", m.Ixx+m.Iyy+m.Izz, 1e-6))
	for i := 0; i < 3; i++ {
		g.Expect(axes[i].Norm()).To(BeNumerically("~", 1, 1e-9))
		for j := i + 1; j < 3; j++ {
			g.Expect(axes[i].Dot(axes[j])).To(BeNumerically("~", 0, 1e-9))
		}
	}
}

func TestSprungCG(t *testing.T) {
	m := MassProperties{Mass: 10, CenterOfGravity: r3.Vector{Z: 10}}
	for i := range m.UnsprungMass {
		m.UnsprungMass[i] = 1
		m.UnsprungCG[i] = r3.Vector{Z: 5}
	}
	if got := m.SprungCG(); math.Abs(got.Z-10*10.0/6+20.0/6) > 1e-12 {
		t.Errorf("sprung cg = %v", got)
	}
	if m.SprungMass() != 6 {
		t.Errorf("sprung mass = %f", m.SprungMass())
	}
}

func TestDrivetrainFractions(t *testing.T) {
	tests := []struct {
		drive DriveType
		split float64
		front float64
	}{
		{RearWheelDrive, 0.3, 0},
		{FrontWheelDrive, 0.3, 1},
		{AllWheelDrive, 0.3, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.drive.String(), func(t *testing.T) {
			d := Drivetrain{DriveType: tt.drive, FrontTorqueSplit: tt.split}
			if got := d.Fraction(true); got != tt.front {
				t.Errorf("front fraction = %f, want %f", got, tt.front)
			}
			if got := d.Fraction(false); got != 1-tt.front {
				t.Errorf("rear fraction = %f", got)
			}
			if d.HasHalfShafts(true) != (tt.front > 0) {
				t.Error("front half-shafts disagree with the torque fraction")
			}
		})
	}
}

func TestAerodynamics(t *testing.T) {
	a := Aerodynamics{ReferenceArea: 1500, AirDensity: DefaultAirDensity, LiftCoefficient: 2, DragCoefficient: 1}
	speed := 60.0 * 12 // 60 ft/s
	// 0.5 * rho * v^2 * A * C with rho in slug/ft^3, v in ft/s, A in ft^2
	want := 0.5 * 0.0023769 * 60 * 60 * (1500.0 / 144) * 2
	if got := a.Downforce(speed); math.Abs(got-want) > 1e-9 {
		t.Errorf("downforce = %f, want %f", got, want)
	}
	if got := a.Drag(speed); math.Abs(got-want/2) > 1e-9 {
		t.Errorf("drag = %f, want %f", got, want/2)
	}
}

func TestParseNames(t *testing.T) {
	h, err := ParseHardpoint("lowerballjoint")
	if err != nil || h != LowerBallJoint {
		t.Errorf("ParseHardpoint = %v, %v", h, err)
	}
	if h, _ := ParseHardpoint("none"); h != NoHardpoint {
		t.Errorf("none = %v", h)
	}
	if _, err := ParseHardpoint("Steering Wheel"); err == nil {
		t.Error("expected error")
	}
	if l, err := ParseLocation("LR"); err != nil || l != LeftRear {
		t.Errorf("ParseLocation = %v, %v", l, err)
	}
	if b, err := ParseBarStyle("T-bar"); err != nil || b != BarT {
		t.Errorf("ParseBarStyle = %v, %v", b, err)
	}
	for h := Hardpoint(0); h < NumHardpoints; h++ {
		back, err := ParseHardpoint(h.String())
		if err != nil || back != h {
			t.Errorf("%s does not round trip", h)
		}
	}
}

func TestLocationHelpers(t *testing.T) {
	for loc := Location(0); loc < NumLocations; loc++ {
		if loc.Opposite().Opposite() != loc {
			t.Errorf("%s opposite is not an involution", loc)
		}
		if loc.Opposite().IsFront() != loc.IsFront() || loc.Opposite().IsLeft() == loc.IsLeft() {
			t.Errorf("%s opposite %s is not across the axle", loc, loc.Opposite())
		}
	}
	if RightRear.Side() != 1 || LeftFront.Side() != -1 {
		t.Error("side signs are wrong")
	}
}

func TestCarPool(t *testing.T) {
	pool := NewCarPool()
	src := NewFormulaCar()
	c := pool.GetCopy(src)
	if c.Corner(RightFront).Point(LowerBallJoint) != src.Corner(RightFront).Point(LowerBallJoint) {
		t.Error("pooled copy differs from source")
	}
	c.Drivetrain.GearRatios[0] = 42
	if src.Drivetrain.GearRatios[0] == 42 {
		t.Error("pooled copy shares gear ratios")
	}
	pool.Put(c)
	pool.Put(nil)

	again := pool.GetCopy(NewSedanCar())
	if again.Name != "sedan" {
		t.Errorf("reused car kept stale name %q", again.Name)
	}
}
