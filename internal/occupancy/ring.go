package occupancy

// HistorySize is the number of intensity samples kept per direction.
const HistorySize = 30

// ring is a fixed-capacity circular buffer of intensities with a running sum.
type ring struct {
	buf  [HistorySize]float64
	head int // next write position
	size int
	sum  float64
}

func (r *ring) push(v float64) {
	if r.size == HistorySize {
		r.sum -= r.buf[r.head]
	} else {
		r.size++
	}
	r.buf[r.head] = v
	r.sum += v
	r.head = (r.head + 1) % HistorySize
}

func (r *ring) mean() float64 {
	if r.size == 0 {
		return 0
	}
	m := r.sum / float64(r.size)
	// running sums drift slightly below zero after many evictions
	if m < 0 {
		return 0
	}
	return m
}

// values returns the buffered samples, oldest first.
func (r *ring) values() []float64 {
	out := make([]float64, 0, r.size)
	start := (r.head - r.size + HistorySize) % HistorySize
	for i := 0; i < r.size; i++ {
		out = append(out, r.buf[(start+i)%HistorySize])
	}
	return out
}

func (r *ring) reset() {
	*r = ring{}
}
