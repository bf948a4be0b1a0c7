// Package genetic searches hardpoint positions for the geometry that best
// meets a set of kinematic goals.
package genetic

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/vvase/internal/analysis"
	"github.com/san-kum/vvase/internal/jobqueue"
	"github.com/san-kum/vvase/internal/kinematics"
	"github.com/san-kum/vvase/internal/vehicle"
)

// FailedFitness is assigned to citizens whose geometry cannot be solved.
const FailedFitness = math.MaxFloat64

type Settings struct {
	PopulationSize      int
	Generations         int
	ElitePercentage     float64 // fraction of each generation copied unchanged
	MutationProbability float64 // per gene
	CrossoverPoint      int     // 0 picks a random point per child
	Sort                SortAlgorithm
	Seed                int64
}

func DefaultSettings() Settings {
	return Settings{
		PopulationSize:      20,
		Generations:         10,
		ElitePercentage:     0.1,
		MutationProbability: 0.1,
		Sort:                MergeSort,
		Seed:                1,
	}
}

func (s Settings) Validate(numGenes int) error {
	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf("settings: "+format+": %w", append(args, analysis.ErrInvalidInputs)...))
	}
	if s.PopulationSize < 2 {
		add("population must be at least 2, got %d", s.PopulationSize)
	}
	if s.Generations < 1 {
		add("need at least one generation, got %d", s.Generations)
	}
	if !(s.ElitePercentage >= 0 && s.ElitePercentage <= 1) {
		add("elite percentage %g outside [0, 1]", s.ElitePercentage)
	}
	if !(s.MutationProbability >= 0 && s.MutationProbability <= 1) {
		add("mutation probability %g outside [0, 1]", s.MutationProbability)
	}
	if s.CrossoverPoint < 0 || s.CrossoverPoint > numGenes {
		add("crossover point %d outside [0, %d]", s.CrossoverPoint, numGenes)
	}
	if s.Sort < 0 || s.Sort >= numSortAlgorithms {
		add("unknown sort algorithm %d", s.Sort)
	}
	return errs
}

// Problem is a car, the genes to vary on it and the goals to meet.
type Problem struct {
	Name     string
	Car      *vehicle.Car
	CarPath  string
	Genes    []Gene
	Goals    []Goal
	Settings Settings
}

func (p *Problem) Validate() error {
	var errs error
	if p.Car == nil {
		errs = multierr.Append(errs, fmt.Errorf("no car: %w", analysis.ErrInvalidInputs))
	} else {
		errs = multierr.Append(errs, p.Car.Validate())
	}
	if len(p.Genes) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no genes: %w", analysis.ErrInvalidInputs))
	}
	if len(p.Goals) == 0 {
		errs = multierr.Append(errs, fmt.Errorf("no goals: %w", analysis.ErrInvalidInputs))
	}
	for _, g := range p.Genes {
		errs = multierr.Append(errs, g.Validate())
	}
	for _, g := range p.Goals {
		errs = multierr.Append(errs, g.Validate())
	}
	return multierr.Append(errs, p.Settings.Validate(len(p.Genes)))
}

// Citizen is one candidate with its fitness; lower is better.
type Citizen struct {
	Genome  Genome
	Fitness float64
}

// Generation summarizes one evaluated population. Failed citizens are
// excluded from the mean and standard deviation.
type Generation struct {
	Index   int
	Best    Citizen
	Mean    float64
	StdDev  float64
	Worst   float64
	Failed  int
	Elapsed time.Duration
}

type Result struct {
	Best        Citizen
	Values      []float64 // gene values of the best citizen
	Car         *vehicle.Car
	Generations []Generation
	Evaluations int
}

// Optimizer evaluates citizens on a job queue the caller has started.
type Optimizer struct {
	queue  *jobqueue.Queue
	pool   *vehicle.CarPool
	logger *zap.SugaredLogger

	// Progress, when set, is called after every generation.
	Progress func(Generation)
}

func NewOptimizer(queue *jobqueue.Queue, pool *vehicle.CarPool, logger *zap.SugaredLogger) *Optimizer {
	if pool == nil {
		pool = vehicle.NewCarPool()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Optimizer{queue: queue, pool: pool, logger: logger}
}

// evaluator scores genomes and remembers every score.
type evaluator struct {
	problem *Problem
	pool    *vehicle.CarPool
	logger  *zap.SugaredLogger
	inputs  []kinematics.Inputs

	mu    sync.Mutex
	cache map[string]float64
	count atomic.Int64
}

func newEvaluator(p *Problem, pool *vehicle.CarPool, logger *zap.SugaredLogger) *evaluator {
	seen := map[kinematics.Inputs]bool{}
	var inputs []kinematics.Inputs
	for _, g := range p.Goals {
		for _, in := range g.inputs() {
			if !seen[in] {
				seen[in] = true
				inputs = append(inputs, in)
			}
		}
	}
	return &evaluator{problem: p, pool: pool, logger: logger, inputs: inputs, cache: map[string]float64{}}
}

func (e *evaluator) cached(g Genome) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.cache[g.key()]
	return f, ok
}

// car builds the candidate geometry into dst.
func (e *evaluator) car(g Genome, dst *vehicle.Car) {
	dst.CopyFrom(e.problem.Car)
	for i, gene := range e.problem.Genes {
		gene.apply(dst, g[i])
	}
}

func (e *evaluator) fitness(g Genome) float64 {
	if f, ok := e.cached(g); ok {
		return f
	}
	e.count.Inc()

	candidate := e.pool.Get()
	working := e.pool.Get()
	defer e.pool.Put(candidate)
	defer e.pool.Put(working)
	e.car(g, candidate)

	f, err := e.score(candidate, working)
	if err != nil {
		e.logger.Debugw("citizen failed", "genome", []int(g), "error", err)
		f = FailedFitness
	}

	e.mu.Lock()
	e.cache[g.key()] = f
	e.mu.Unlock()
	return f
}

func (e *evaluator) score(candidate, working *vehicle.Car) (float64, error) {
	outs := make(map[kinematics.Inputs]*kinematics.Outputs, len(e.inputs))
	for _, in := range e.inputs {
		out, err := kinematics.AnalyzeInto(candidate, working, in, kinematics.Ground{})
		if err != nil {
			return 0, err
		}
		outs[in] = out
	}
	var total float64
	for _, goal := range e.problem.Goals {
		total += goal.Cost(goal.value(outs))
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("fitness is %v: %w", total, analysis.ErrBadGeometry)
	}
	return total, nil
}

// evaluateAll scores every genome on the queue and returns the fitnesses.
// Each distinct uncached genome is scored once.
func (o *Optimizer) evaluateAll(ctx context.Context, e *evaluator, genomes []Genome, label string) ([]float64, error) {
	fitness := make([]float64, len(genomes))
	scores := map[string]*float64{}
	var todo []Genome
	for i, g := range genomes {
		if f, ok := e.cached(g); ok {
			fitness[i] = f
			continue
		}
		if _, ok := scores[g.key()]; !ok {
			scores[g.key()] = new(float64)
			todo = append(todo, g)
		}
	}

	latch := jobqueue.NewLatch(len(todo))
	for i, g := range todo {
		g := g
		score := scores[g.key()]
		err := o.queue.Add(jobqueue.Job{
			Name:     fmt.Sprintf("%s/%d", label, i),
			Priority: jobqueue.Normal,
			Latch:    latch,
			Run: func(context.Context) error {
				*score = e.fitness(g)
				return nil
			},
		})
		if err != nil {
			for k := i; k < len(todo); k++ {
				latch.Done()
			}
			return nil, err
		}
	}
	if err := latch.WaitContext(ctx); err != nil {
		o.queue.Drop(latch)
		latch.Wait()
		return nil, err
	}
	for i, g := range genomes {
		if score, ok := scores[g.key()]; ok {
			fitness[i] = *score
		}
	}
	return fitness, nil
}

// Run performs a generational search: uniform random initial population,
// elitism, parents drawn from the fitter half, single-point crossover and
// per-gene mutation.
func (o *Optimizer) Run(ctx context.Context, p *Problem) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := p.Settings
	rng := rand.New(rand.NewSource(s.Seed))
	e := newEvaluator(p, o.pool, o.logger)

	population := make([]Genome, s.PopulationSize)
	for i := range population {
		population[i] = randomGenome(rng, p.Genes)
	}

	res := &Result{}
	elite := int(math.Round(s.ElitePercentage * float64(s.PopulationSize)))
	if elite == 0 && s.ElitePercentage > 0 {
		elite = 1
	}

	for gen := 0; gen < s.Generations; gen++ {
		start := time.Now()
		fitness, err := o.evaluateAll(ctx, e, population, fmt.Sprintf("%s/gen%d", p.Name, gen))
		if err != nil {
			return nil, err
		}

		ranked := make([]Ranked, len(population))
		for i, f := range fitness {
			ranked[i] = Ranked{Index: i, Fitness: f}
		}
		Sort(s.Sort, ranked)

		summary := summarize(gen, population, ranked)
		summary.Elapsed = time.Since(start)
		res.Generations = append(res.Generations, summary)
		if res.Best.Genome == nil || summary.Best.Fitness < res.Best.Fitness {
			res.Best = summary.Best
		}
		o.logger.Infow("generation finished",
			"problem", p.Name,
			"generation", gen,
			"best", summary.Best.Fitness,
			"mean", summary.Mean,
			"failed", summary.Failed,
		)
		if o.Progress != nil {
			o.Progress(summary)
		}
		if gen == s.Generations-1 {
			break
		}
		population = breed(rng, p, population, ranked, elite)
	}

	o.finish(e, res)
	return res, nil
}

func randomGenome(rng *rand.Rand, genes []Gene) Genome {
	g := make(Genome, len(genes))
	for i, gene := range genes {
		g[i] = rng.Intn(gene.NumValues)
	}
	return g
}

// breed builds the next population from a ranked one.
func breed(rng *rand.Rand, p *Problem, population []Genome, ranked []Ranked, elite int) []Genome {
	s := p.Settings
	next := make([]Genome, 0, len(population))
	for i := 0; i < elite && i < len(ranked); i++ {
		next = append(next, population[ranked[i].Index].clone())
	}

	fitter := (len(ranked) + 1) / 2
	for len(next) < len(population) {
		a := population[ranked[rng.Intn(fitter)].Index]
		b := population[ranked[rng.Intn(fitter)].Index]

		point := s.CrossoverPoint
		if point == 0 && len(a) > 1 {
			point = 1 + rng.Intn(len(a)-1)
		}
		child := make(Genome, len(a))
		copy(child, a[:point])
		copy(child[point:], b[point:])

		for i, gene := range p.Genes {
			if rng.Float64() < s.MutationProbability {
				child[i] = rng.Intn(gene.NumValues)
			}
		}
		next = append(next, child)
	}
	return next
}

func summarize(gen int, population []Genome, ranked []Ranked) Generation {
	best := ranked[0]
	summary := Generation{
		Index: gen,
		Best:  Citizen{Genome: population[best.Index].clone(), Fitness: best.Fitness},
	}
	var ok []float64
	for _, r := range ranked {
		if r.Fitness == FailedFitness {
			summary.Failed++
			continue
		}
		ok = append(ok, r.Fitness)
	}
	if len(ok) == 0 {
		summary.Mean, summary.StdDev, summary.Worst = math.NaN(), math.NaN(), FailedFitness
		return summary
	}
	summary.Mean, summary.StdDev = stat.MeanStdDev(ok, nil)
	if len(ok) == 1 {
		summary.StdDev = 0
	}
	summary.Worst = floats.Max(ok)
	return summary
}

// finish fills in the best citizen's gene values and geometry.
func (o *Optimizer) finish(e *evaluator, res *Result) {
	res.Evaluations = int(e.count.Load())
	res.Values = make([]float64, len(e.problem.Genes))
	for i, gene := range e.problem.Genes {
		res.Values[i] = gene.Value(res.Best.Genome[i])
	}
	res.Car = &vehicle.Car{}
	e.car(res.Best.Genome, res.Car)
}
