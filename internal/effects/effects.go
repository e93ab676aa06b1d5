package effects

// Effector processes stereo audio in-place.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

// Add appends e. Not safe while the chain is processing.
func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func (c *Chain) Len() int { return len(c.effects) }

// slot wraps an effect with an enable switch. A disabled slot passes
// audio through and clears the effect state once, so re-enabling does
// not replay a stale tail.
type slot struct {
	fx      Effector
	enabled bool
	dirty   bool
}

func (s *slot) Process(l, r float32) (float32, float32) {
	if !s.enabled {
		if s.dirty {
			s.fx.Reset()
			s.dirty = false
		}
		return l, r
	}
	s.dirty = true
	return s.fx.Process(l, r)
}

func (s *slot) Reset() {
	s.fx.Reset()
	s.dirty = false
}

func clamp(v, lo, hi float32) float32 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
