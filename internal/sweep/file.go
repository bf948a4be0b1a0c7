package sweep

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/san-kum/vvase/internal/binio"
	"github.com/san-kum/vvase/internal/kinematics"
)

// FileMagic opens every sweep file.
var FileMagic = [4]byte{'V', 'S', 'W', 'P'}

const (
	// fileV0 has a single axis.
	fileV0 int32 = iota
	// fileV1 adds the optional secondary axis.
	fileV1

	FileVersion = fileV1
)

const maxCars = 1 << 10

// WriteTo encodes the definition. Results are not stored; a sweep is re-run
// after loading.
func (d *Definition) WriteTo(dst io.Writer) (int64, error) {
	w := binio.NewWriter(dst)
	w.Header(FileMagic, FileVersion)
	w.Str(d.Name)
	w.Int32(int32(len(d.CarPaths)))
	for _, p := range d.CarPaths {
		w.Str(p)
	}
	writeAxis(w, d.Primary)
	w.Bool(d.Secondary != nil)
	if d.Secondary != nil {
		writeAxis(w, *d.Secondary)
	}
	kinematics.WriteInputs(w, d.Base)
	err := w.Flush()
	return w.Written(), errors.Wrap(err, "write sweep")
}

func ReadDefinition(src io.Reader) (*Definition, error) {
	r := binio.NewReader(src)
	version := r.Header(FileMagic, FileVersion)
	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "read sweep header")
	}

	d := &Definition{Name: r.Str()}
	n := r.Count(maxCars)
	for i := 0; i < n && r.Err() == nil; i++ {
		d.CarPaths = append(d.CarPaths, r.Str())
	}
	d.Primary = readAxis(r)
	if version >= fileV1 && r.Bool() {
		a := readAxis(r)
		d.Secondary = &a
	}
	d.Base = kinematics.ReadInputs(r)
	if err := r.Err(); err != nil {
		return nil, errors.Wrapf(err, "read sweep (version %d)", version)
	}
	return d, nil
}

func writeAxis(w *binio.Writer, a Axis) {
	w.Int32(int32(a.Variable))
	w.Float64(a.Start)
	w.Float64(a.End)
	w.Int32(int32(a.Points))
}

func readAxis(r *binio.Reader) Axis {
	return Axis{
		Variable: Variable(r.Enum(int(NumVariables))),
		Start:    r.Float64(),
		End:      r.Float64(),
		Points:   r.Count(1 << 20),
	}
}

func SaveFile(path string, d *Definition) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create sweep file")
	}
	if _, err := d.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close sweep file")
}

func LoadFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open sweep file")
	}
	defer f.Close()
	d, err := ReadDefinition(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return d, nil
}
