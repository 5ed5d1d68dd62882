package session

import "gonum.org/v1/gonum/stat"

// costSample is one (elapsed seconds, accumulated pre-tax cost) observation
// recorded after an accepted meter reading.
type costSample struct {
	elapsed float64
	cost    float64
}

// projection keeps a bounded window of cost samples and extrapolates the
// session cost linearly. The projection is advisory: it decides whether to
// raise a stop request, never how much to bill.
type projection struct {
	samples []costSample
	max     int
}

func newProjection(max int) *projection {
	return &projection{max: max}
}

func (p *projection) add(elapsed float64, cost float64) {
	p.samples = append(p.samples, costSample{elapsed: elapsed, cost: cost})
	if len(p.samples) > p.max {
		p.samples = p.samples[len(p.samples)-p.max:]
	}
}

// at returns the projected cost at the given elapsed time using an ordinary
// least-squares fit over the sample window. With fewer than two samples the
// last observed cost is returned.
func (p *projection) at(elapsed float64) float64 {
	n := len(p.samples)
	if n == 0 {
		return 0
	}
	if n < 2 {
		return p.samples[n-1].cost
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, s := range p.samples {
		xs[i] = s.elapsed
		ys[i] = s.cost
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	proj := alpha + beta*elapsed
	if last := p.samples[n-1].cost; proj < last {
		// cost never decreases
		return last
	}
	return proj
}
