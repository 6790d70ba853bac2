package server

// TrailPoint is one recent-position sample; T is simulation time in seconds.
type TrailPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	T float64 `json:"t"`
}

// Trail is a bounded circular buffer of recent packet positions. Once the
// capacity is reached, appends overwrite the oldest sample. A trail is owned
// by exactly one packet at a time and returns to its pool on retirement or
// hop recycle.
type Trail struct {
	points [trailCapacity]TrailPoint
	cursor int
	count  int
}

func newTrail() *Trail {
	return &Trail{}
}

// Append records a sample, overwriting the oldest once full.
func (t *Trail) Append(x, y, now float64) {
	t.points[t.cursor] = TrailPoint{X: x, Y: y, T: now}
	t.cursor = (t.cursor + 1) % trailCapacity
	if t.count < trailCapacity {
		t.count++
	}
}

// Len reports the number of stored samples.
func (t *Trail) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Cursor reports the next write index.
func (t *Trail) Cursor() int {
	if t == nil {
		return 0
	}
	return t.cursor
}

// ForEach visits samples oldest to newest by logical age.
func (t *Trail) ForEach(visit func(TrailPoint)) {
	if t == nil || t.count == 0 {
		return
	}
	start := 0
	if t.count == trailCapacity {
		start = t.cursor
	}
	for i := 0; i < t.count; i++ {
		visit(t.points[(start+i)%trailCapacity])
	}
}

// Points copies the samples oldest to newest.
func (t *Trail) Points() []TrailPoint {
	if t == nil || t.count == 0 {
		return nil
	}
	out := make([]TrailPoint, 0, t.count)
	t.ForEach(func(p TrailPoint) { out = append(out, p) })
	return out
}

// Reset empties the buffer.
func (t *Trail) Reset() {
	t.cursor = 0
	t.count = 0
}
