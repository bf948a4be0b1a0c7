package sweep

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/san-kum/vvase/internal/jobqueue"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

// Driver submits sweep points to a job queue. The queue must be started by
// the caller.
type Driver struct {
	queue  *jobqueue.Queue
	pool   *vehicle.CarPool
	logger *zap.SugaredLogger

	// Progress, when set, is called from worker goroutines after every
	// point with the number of points finished so far.
	Progress func(done, total int)
}

func NewDriver(queue *jobqueue.Queue, pool *vehicle.CarPool, logger *zap.SugaredLogger) *Driver {
	if pool == nil {
		pool = vehicle.NewCarPool()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Driver{queue: queue, pool: pool, logger: logger}
}

// Run evaluates every grid point of def for every car. A point that fails
// to solve is recorded as NaN and counted in Cube.Failed; only invalid
// definitions and cancellation fail the run.
func (d *Driver) Run(ctx context.Context, def Definition, cars []*vehicle.Car) (*Cube, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if len(cars) == 0 {
		return nil, fmt.Errorf("sweep %q: no cars", def.Name)
	}

	names := make([]string, len(cars))
	for i, c := range cars {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("sweep %q car %s: %w", def.Name, c.Name, err)
		}
		names[i] = c.Name
	}
	inputs := def.Inputs()
	cube := NewCube(names, inputs)

	total := len(cars) * len(inputs)
	failed := make([]atomic.Int64, len(cars))
	var done atomic.Int64
	latch := jobqueue.NewLatch(total)
	start := time.Now()

	for ci, car := range cars {
		for p, in := range inputs {
			ci, car, p, in := ci, car, p, in
			job := jobqueue.Job{
				Name:     fmt.Sprintf("%s/%s/%d", def.Name, car.Name, p),
				Priority: jobqueue.Normal,
				Latch:    latch,
				Run: func(ctx context.Context) error {
					err := d.evaluate(cube, ci, p, car, in)
					if err != nil {
						failed[ci].Inc()
						d.logger.Debugw("sweep point failed", "sweep", def.Name, "car", car.Name, "point", p, "error", err)
					}
					n := int(done.Inc())
					if d.Progress != nil {
						d.Progress(n, total)
					}
					return err
				},
			}
			if err := d.queue.Add(job); err != nil {
				// count down the points that will never run
				for k := ci*len(inputs) + p; k < total; k++ {
					latch.Done()
				}
				return nil, fmt.Errorf("sweep %q: %w", def.Name, err)
			}
		}
	}

	if err := latch.WaitContext(ctx); err != nil {
		dropped := d.queue.Drop(latch)
		latch.Wait()
		d.logger.Infow("sweep cancelled", "sweep", def.Name, "completed", done.Load(), "dropped", dropped)
		return nil, err
	}
	for i := range failed {
		cube.Failed[i] = int(failed[i].Load())
	}

	d.logger.Infow("sweep finished",
		"sweep", def.Name,
		"cars", len(cars),
		"points", len(inputs),
		"failed", sum(cube.Failed),
		"elapsed", time.Since(start),
	)
	return cube, nil
}

func (d *Driver) evaluate(cube *Cube, ci, p int, car *vehicle.Car, in kinematics.Inputs) error {
	working := d.pool.Get()
	defer d.pool.Put(working)
	out, err := kinematics.AnalyzeInto(car, working, in, kinematics.Ground{})
	cube.Set(ci, p, out)
	return err
}

func sum(xs []int) int {
	var n int
	for _, x := range xs {
		n += x
	}
	return n
}
