package vehicle

import "sync"

// CarPool recycles working cars so parallel analyses do not allocate a fresh
// clone for every evaluation.
type CarPool struct {
	pool sync.Pool
}

func NewCarPool() *CarPool {
	return &CarPool{
		pool: sync.Pool{
			New: func() interface{} {
				return &Car{}
			},
		},
	}
}

// Get returns a car with unspecified contents.
func (p *CarPool) Get() *Car {
	return p.pool.Get().(*Car)
}

func (p *CarPool) Put(c *Car) {
	if c != nil {
		p.pool.Put(c)
	}
}

// GetCopy returns a pooled car holding a deep copy of src.
func (p *CarPool) GetCopy(src *Car) *Car {
	dst := p.Get()
	dst.CopyFrom(src)
	return dst
}
