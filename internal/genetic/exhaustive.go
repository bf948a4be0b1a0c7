package genetic

import (
	"context"
	"fmt"

	"github.com/san-kum/vvase/internal/analysis"
)

// DefaultSearchLimit caps the genome space Exhaustive will enumerate.
const DefaultSearchLimit = 100000

// Exhaustive scores every genome in the space of p.Genes and returns the
// best. Spaces larger than limit are rejected. It is the reference against
// which the genetic search is checked on small problems.
func (o *Optimizer) Exhaustive(ctx context.Context, p *Problem, limit int) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if n := SpaceSize(p.Genes, limit); n > limit {
		return nil, fmt.Errorf("%s: more than %d genomes to search: %w", p.Name, limit, analysis.ErrInvalidInputs)
	}

	var genomes []Genome
	enumerate(p.Genes, 0, make(Genome, len(p.Genes)), &genomes)

	e := newEvaluator(p, o.pool, o.logger)
	fitness, err := o.evaluateAll(ctx, e, genomes, p.Name+"/exhaustive")
	if err != nil {
		return nil, err
	}

	ranked := make([]Ranked, len(genomes))
	for i, f := range fitness {
		ranked[i] = Ranked{Index: i, Fitness: f}
	}
	Sort(p.Settings.Sort, ranked)

	res := &Result{Generations: []Generation{summarize(0, genomes, ranked)}}
	res.Best = res.Generations[0].Best
	o.logger.Infow("exhaustive search finished", "problem", p.Name, "genomes", len(genomes), "best", res.Best.Fitness)
	o.finish(e, res)
	return res, nil
}

func enumerate(genes []Gene, depth int, current Genome, out *[]Genome) {
	if depth == len(genes) {
		*out = append(*out, current.clone())
		return
	}
	for i := 0; i < genes[depth].NumValues; i++ {
		current[depth] = i
		enumerate(genes, depth+1, current, out)
	}
}
