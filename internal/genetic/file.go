package genetic

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/san-kum/vvase/internal/binio"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

// FileMagic opens every optimization file.
var FileMagic = [4]byte{'V', 'O', 'P', 'T'}

const (
	// fileV0 stores settings, genes and goals.
	fileV0 int32 = iota
	// fileV1 adds the sort algorithm and the fixed crossover point.
	fileV1

	FileVersion = fileV1
)

const maxItems = 1 << 12

// WriteTo encodes the problem definition. The car itself is referenced by
// CarPath and not embedded.
func (p *Problem) WriteTo(dst io.Writer) (int64, error) {
	w := binio.NewWriter(dst)
	w.Header(FileMagic, FileVersion)
	w.Str(p.Name)
	w.Str(p.CarPath)

	s := p.Settings
	w.Int32(int32(s.PopulationSize))
	w.Int32(int32(s.Generations))
	w.Float64(s.ElitePercentage)
	w.Float64(s.MutationProbability)
	w.Int64(s.Seed)
	w.Int32(int32(s.Sort))
	w.Int32(int32(s.CrossoverPoint))

	w.Int32(int32(len(p.Genes)))
	for _, g := range p.Genes {
		w.Int32(int32(g.Hardpoint))
		w.Int32(int32(g.TiedTo) + 1)
		w.Int32(int32(g.Location))
		w.Int32(int32(g.Axis))
		w.Float64(g.Min)
		w.Float64(g.Max)
		w.Int32(int32(g.NumValues))
	}

	w.Int32(int32(len(p.Goals)))
	for _, g := range p.Goals {
		w.Int32(int32(g.Output))
		w.Float64(g.Desired)
		w.Float64(g.ExpectedDeviation)
		w.Float64(g.Importance)
		w.Bool(g.Delta)
		kinematics.WriteInputs(w, g.Before)
		kinematics.WriteInputs(w, g.After)
	}
	err := w.Flush()
	return w.Written(), errors.Wrap(err, "write optimization")
}

// ReadProblem decodes an optimization file. The returned problem has no Car;
// load it from CarPath.
func ReadProblem(src io.Reader) (*Problem, error) {
	r := binio.NewReader(src)
	version := r.Header(FileMagic, FileVersion)
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "read optimization header")
	}

	p := &Problem{Name: r.Str(), CarPath: r.Str()}
	s := DefaultSettings()
	s.PopulationSize = r.Count(1 << 20)
	s.Generations = r.Count(1 << 20)
	s.ElitePercentage = r.Float64()
	s.MutationProbability = r.Float64()
	s.Seed = r.Int64()
	if version >= fileV1 {
		s.Sort = SortAlgorithm(r.Enum(int(numSortAlgorithms)))
		s.CrossoverPoint = r.Count(maxItems)
	}
	p.Settings = s

	n := r.Count(maxItems)
	for i := 0; i < n && r.Err() == nil; i++ {
		g := Gene{Hardpoint: vehicle.Hardpoint(r.Enum(int(vehicle.NumHardpoints)))}
		// stored shifted by one so NoTie is zero
		g.TiedTo = vehicle.Hardpoint(r.Enum(int(vehicle.NumHardpoints)+1) - 1)
		g.Location = vehicle.Location(r.Enum(int(vehicle.NumLocations)))
		g.Axis = r.Enum(3)
		g.Min = r.Float64()
		g.Max = r.Float64()
		g.NumValues = r.Count(1 << 20)
		p.Genes = append(p.Genes, g)
	}

	n = r.Count(maxItems)
	for i := 0; i < n && r.Err() == nil; i++ {
		g := Goal{
			Output:            kinematics.OutputID(r.Enum(int(kinematics.NumOutputs))),
			Desired:           r.Float64(),
			ExpectedDeviation: r.Float64(),
			Importance:        r.Float64(),
			Delta:             r.Bool(),
		}
		g.Before = kinematics.ReadInputs(r)
		g.After = kinematics.ReadInputs(r)
		p.Goals = append(p.Goals, g)
	}
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "read optimization (version %d)", version)
	}
	return p, nil
}

func SaveFile(path string, p *Problem) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create optimization file")
	}
	if _, err := p.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close optimization file")
}

// LoadFile reads an optimization file and, when CarPath is set, the car it
// refers to. A relative CarPath is taken relative to the optimization file.
func LoadFile(path string) (*Problem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open optimization file")
	}
	defer f.Close()
	p, err := ReadProblem(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	if p.CarPath == "" {
		return p, nil
	}
	carPath := p.CarPath
	if !filepath.IsAbs(carPath) {
		carPath = filepath.Join(filepath.Dir(path), carPath)
	}
	if p.Car, err = vehicle.LoadCarFile(carPath); err != nil {
		return nil, errors.Wrapf(err, "load car for %s", path)
	}
	return p, nil
}
