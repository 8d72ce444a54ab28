package completion

// exchangeRing is a fixed-capacity window over the most recent exchanges.
// When full, appends overwrite the oldest entry. It bounds the conversation
// context resent with every run so request size cannot grow without limit.
//
// The ring is owned by one session and never accessed concurrently.
type exchangeRing struct {
	buf        []Exchange
	head, tail int64
}

func newExchangeRing(capacity int) *exchangeRing {
	if capacity < 1 {
		capacity = 1
	}
	return &exchangeRing{buf: make([]Exchange, capacity)}
}

// Len returns the number of exchanges currently held.
func (r *exchangeRing) Len() int {
	return int(r.tail - r.head)
}

// Append adds e, evicting the oldest exchange when the ring is full.
func (r *exchangeRing) Append(e Exchange) {
	if r.Len() == len(r.buf) {
		r.head++
	}
	r.buf[r.tail%int64(len(r.buf))] = e
	r.tail++
}

// Replace resets the window to the last cap(ring) entries of es.
func (r *exchangeRing) Replace(es []Exchange) {
	r.head, r.tail = 0, 0
	for _, e := range es {
		r.Append(e)
	}
}

// Snapshot returns the held exchanges, oldest first.
func (r *exchangeRing) Snapshot() []Exchange {
	out := make([]Exchange, 0, r.Len())
	for i := r.head; i < r.tail; i++ {
		out = append(out, r.buf[i%int64(len(r.buf))])
	}
	return out
}

// At returns the exchange at the given offset from the end (0 = newest)
// among entries matching role. ok is false when no such entry exists.
func (r *exchangeRing) At(role Role, offset int) (Exchange, bool) {
	if offset < 0 {
		return Exchange{}, false
	}
	seen := 0
	for i := r.tail - 1; i >= r.head; i-- {
		e := r.buf[i%int64(len(r.buf))]
		if e.Role != role {
			continue
		}
		if seen == offset {
			return e, true
		}
		seen++
	}
	return Exchange{}, false
}
