// Package experiment runs analyses against a session of loaded cars.
package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/vvase/internal/config"
	"github.com/san-kum/vvase/internal/genetic"
	"github.com/san-kum/vvase/internal/jobqueue"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/quasistatic"
	"github.com/san-kum/vvase/internal/storage"
	"github.com/san-kum/vvase/internal/sweep"
	"github.com/san-kum/vvase/internal/vehicle"
)

// Analysis is one configured computation.
type Analysis interface {
	Kind() string
	Name() string
	Run(ctx context.Context, s *Session) (*Result, error)
}

// Result holds what an analysis produced. Exactly one of the typed fields
// is set, matching Kind.
type Result struct {
	Kind    string
	Name    string
	Cars    []string
	Elapsed time.Duration
	Params  map[string]string
	Summary map[string]float64
	Table   *storage.Table

	Kinematics   *kinematics.Outputs
	Quasistatic  *quasistatic.Outputs
	Sweep        *sweep.Definition
	Cube         *sweep.Cube
	Optimization *genetic.Result
}

// Run converts the result for the run store.
func (r *Result) Run() storage.Run {
	return storage.Run{
		Kind:    r.Kind,
		Name:    r.Name,
		Cars:    r.Cars,
		Elapsed: r.Elapsed,
		Params:  r.Params,
		Summary: r.Summary,
		Table:   r.Table,
	}
}

// Session owns the cars, the worker pool and the logger shared by every
// analysis run through it.
type Session struct {
	Config *config.Config
	Logger *zap.SugaredLogger

	// Progress, when set, receives progress of sweeps and optimizations.
	// Sweeps call it from worker goroutines.
	Progress func(name string, done, total int)
	// OnGeneration, when set, receives every finished GA generation.
	OnGeneration func(name string, g genetic.Generation)

	pool  *vehicle.CarPool
	queue *jobqueue.Queue

	mu    sync.RWMutex
	cars  map[string]*vehicle.Car
	order []string
}

// NewSession starts cfg.NumWorkers() workers that run until Close.
func NewSession(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) *Session {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Session{
		Config: cfg,
		Logger: logger,
		pool:   vehicle.NewCarPool(),
		queue:  jobqueue.New(logger.Named("jobqueue"), nil),
		cars:   map[string]*vehicle.Car{},
	}
	s.queue.Start(ctx, cfg.NumWorkers())
	return s
}

// Close stops the workers, dropping any jobs still queued.
func (s *Session) Close() error {
	return s.queue.Stop()
}

func (s *Session) Queue() *jobqueue.Queue {
	return s.queue
}

func (s *Session) Pool() *vehicle.CarPool {
	return s.pool
}

// AddCar registers a car under its name, replacing any car of that name.
func (s *Session) AddCar(car *vehicle.Car) error {
	if car.Name == "" {
		return fmt.Errorf("car has no name")
	}
	if err := car.Validate(); err != nil {
		return fmt.Errorf("car %q: %w", car.Name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[car.Name]; !ok {
		s.order = append(s.order, car.Name)
	}
	s.cars[car.Name] = car
	return nil
}

// LoadCar reads a YAML car document or a binary car file, chosen by
// extension, and adds it. Cars without a name take the file's base name.
func (s *Session) LoadCar(path string) (*vehicle.Car, error) {
	var car *vehicle.Car
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		car, err = config.LoadCar(path)
	default:
		car, err = vehicle.LoadCarFile(path)
	}
	if err != nil {
		return nil, err
	}
	if car.Name == "" {
		car.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := s.AddCar(car); err != nil {
		return nil, err
	}
	s.Logger.Debugw("car loaded", "car", car.Name, "path", path)
	return car, nil
}

// Car returns a car by name. An empty name selects the first car added.
func (s *Session) Car(name string) (*vehicle.Car, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name == "" {
		if len(s.order) == 0 {
			return nil, fmt.Errorf("no cars loaded")
		}
		name = s.order[0]
	}
	car, ok := s.cars[name]
	if !ok {
		return nil, fmt.Errorf("unknown car %q", name)
	}
	return car, nil
}

// Cars returns the named cars, or every car in load order when names is
// empty.
func (s *Session) Cars(names ...string) ([]*vehicle.Car, error) {
	if len(names) == 0 {
		s.mu.RLock()
		names = append([]string(nil), s.order...)
		s.mu.RUnlock()
	}
	cars := make([]*vehicle.Car, 0, len(names))
	for _, n := range names {
		car, err := s.Car(n)
		if err != nil {
			return nil, err
		}
		cars = append(cars, car)
	}
	if len(cars) == 0 {
		return nil, fmt.Errorf("no cars loaded")
	}
	return cars, nil
}

func (s *Session) CarNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

func (s *Session) progress(name string, done, total int) {
	if s.Progress != nil {
		s.Progress(name, done, total)
	}
}
