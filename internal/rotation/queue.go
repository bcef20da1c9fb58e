package rotation

import (
	"errors"
	"math/rand/v2"
	"sync"

	"github.com/mrwolf/parami/internal/models"
)

// ErrInvalidState is returned when a rotation snapshot is not a full
// permutation of the theme ids or its cursor is out of range
var ErrInvalidState = errors.New("invalid rotation state")

// Queue hands out themes from shuffled cycles so that every theme is shown
// once per cycle. It owns no persisted state: callers pass a snapshot in and
// store the snapshot that comes back.
type Queue struct {
	size        int
	avoidRepeat bool

	mu  sync.Mutex
	rng *rand.Rand
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithSource sets the random source used for shuffling
func WithSource(src rand.Source) QueueOption {
	return func(q *Queue) {
		q.rng = rand.New(src)
	}
}

// WithBoundaryRepeat allows the last theme of one cycle to open the next.
// By default a new cycle never starts with the theme that closed the old one.
func WithBoundaryRepeat() QueueOption {
	return func(q *Queue) {
		q.avoidRepeat = false
	}
}

// NewQueue creates a queue over theme ids 1..size
func NewQueue(size int, opts ...QueueOption) *Queue {
	q := &Queue{
		size:        size,
		avoidRepeat: true,
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Fresh returns a newly shuffled cycle positioned at its first theme
func (q *Queue) Fresh() models.RotationState {
	return models.RotationState{Order: q.permutation(), Cursor: 0}
}

func (q *Queue) permutation() []int {
	order := make([]int, q.size)
	for i := range order {
		order[i] = i + 1
	}
	q.mu.Lock()
	q.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	q.mu.Unlock()
	return order
}

// Current returns the theme the snapshot points at
func (q *Queue) Current(state models.RotationState) (int, error) {
	if !q.Valid(state) {
		return 0, ErrInvalidState
	}
	return state.Order[state.Cursor], nil
}

// Advance moves to the next theme. When the cycle is used up a new shuffled
// cycle starts at cursor 0. An invalid snapshot is replaced by a fresh cycle.
func (q *Queue) Advance(state models.RotationState) (int, models.RotationState) {
	if !q.Valid(state) {
		next := q.Fresh()
		return next.Order[0], next
	}

	if state.Cursor+1 < len(state.Order) {
		order := make([]int, len(state.Order))
		copy(order, state.Order)
		next := models.RotationState{Order: order, Cursor: state.Cursor + 1}
		return order[next.Cursor], next
	}

	last := state.Order[len(state.Order)-1]
	order := q.permutation()
	if q.avoidRepeat && len(order) > 1 && order[0] == last {
		q.mu.Lock()
		swap := 1 + q.rng.IntN(len(order)-1)
		q.mu.Unlock()
		order[0], order[swap] = order[swap], order[0]
	}
	return order[0], models.RotationState{Order: order, Cursor: 0}
}

// Valid reports whether state is a permutation of 1..size with an in-range cursor
func (q *Queue) Valid(state models.RotationState) bool {
	if len(state.Order) != q.size || state.Cursor < 0 || state.Cursor >= len(state.Order) {
		return false
	}
	seen := make([]bool, q.size+1)
	for _, id := range state.Order {
		if id < 1 || id > q.size || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}
