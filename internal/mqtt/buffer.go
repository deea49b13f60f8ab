package mqtt

import "go.uber.org/zap"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer holds messages produced while the broker is unreachable.
// When full the oldest message is dropped. Caller must synchronize.
type ringBuffer struct {
	log   *zap.Logger
	slots []bufferedMsg
	start int // oldest message
	n     int
	// dropped counts messages lost since the last drain.
	dropped int
}

func newRingBuffer(capacity int, log *zap.Logger) *ringBuffer {
	if log == nil {
		log = zap.NewNop()
	}
	return &ringBuffer{log: log, slots: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.slots)
	if r.n < size {
		r.slots[(r.start+r.n)%size] = msg
		r.n++
		return
	}
	if r.dropped == 0 {
		r.log.Warn("offline buffer full, dropping oldest", zap.Int("capacity", size))
	}
	r.dropped++
	r.slots[r.start] = msg
	r.start = (r.start + 1) % size
}

// drainAll returns buffered messages oldest first and empties the buffer.
func (r *ringBuffer) drainAll() []bufferedMsg {
	if r.n == 0 {
		return nil
	}
	out := make([]bufferedMsg, 0, r.n)
	for i := 0; i < r.n; i++ {
		out = append(out, r.slots[(r.start+i)%len(r.slots)])
	}
	if r.dropped > 0 {
		r.log.Warn("replaying offline buffer after drops", zap.Int("dropped", r.dropped), zap.Int("replayed", r.n))
	}
	clear(r.slots)
	r.start, r.n, r.dropped = 0, 0, 0
	return out
}

func (r *ringBuffer) len() int {
	return r.n
}
