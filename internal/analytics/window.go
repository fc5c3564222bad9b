package analytics

// RollingWindow is a fixed-capacity FIFO of float64 samples backed by a ring
// buffer. The backing array is allocated once and never grows.
// It is not safe for concurrent use; Detector serialises access.
type RollingWindow struct {
	buf  []float64
	head int // index of the oldest element
	size int
}

func NewRollingWindow(capacity int) *RollingWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &RollingWindow{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when the window is full.
func (w *RollingWindow) Push(v float64) {
	if w.size < len(w.buf) {
		w.buf[(w.head+w.size)%len(w.buf)] = v
		w.size++
		return
	}
	w.buf[w.head] = v
	w.head = (w.head + 1) % len(w.buf)
}

// Snapshot returns a copy of the window in insertion order, oldest first.
func (w *RollingWindow) Snapshot() []float64 {
	out := make([]float64, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

func (w *RollingWindow) Size() int { return w.size }

func (w *RollingWindow) Cap() int { return len(w.buf) }
