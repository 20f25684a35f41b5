package geometry

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Counter hands out strictly increasing integers. Next reads and advances in
// a single atomic step, so two callers can never observe the same value.
type Counter struct {
	next atomic.Int64
}

// NewCounter creates a counter whose first value is start
func NewCounter(start int) *Counter {
	c := &Counter{}
	c.next.Store(int64(start))
	return c
}

// Next returns the current value and increments the counter
func (c *Counter) Next() int {
	return int(c.next.Add(1) - 1)
}

// Peek returns the value the next call to Next will return
func (c *Counter) Peek() int {
	return int(c.next.Load())
}

// Stack tracks the z value of every panel. Higher z paints later and wins
// hit-tests.
type Stack struct {
	counter *Counter
	mu      sync.RWMutex
	z       map[int]int
}

// NewStack creates an empty stack whose first assigned z value is 1
func NewStack() *Stack {
	return &Stack{
		counter: NewCounter(1),
		z:       make(map[int]int),
	}
}

// Add registers a panel on top of every existing panel and returns its z
func (s *Stack) Add(id int) int {
	return s.BringToFront(id)
}

// BringToFront assigns id the next counter value. After it returns, the
// panel's z is greater than every value assigned before.
func (s *Stack) BringToFront(id int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	z := s.counter.Next()
	s.z[id] = z
	return z
}

// Remove drops a panel from the stack
func (s *Stack) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.z, id)
}

// Z returns the panel's z value and whether it is registered
func (s *Stack) Z(id int) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.z[id]
	return z, ok
}

// Len returns the number of registered panels
func (s *Stack) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.z)
}

// Top returns the front-most panel id, or false when the stack is empty
func (s *Stack) Top() (int, bool) {
	order := s.Order()
	if len(order) == 0 {
		return 0, false
	}
	return order[len(order)-1], true
}

// Order returns panel ids in paint order (lowest z first)
func (s *Stack) Order() []int {
	s.mu.RLock()
	ids := make([]int, 0, len(s.z))
	for id := range s.z {
		ids = append(ids, id)
	}
	z := make(map[int]int, len(s.z))
	for id, v := range s.z {
		z[id] = v
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return z[ids[i]] < z[ids[j]] })
	return ids
}

// MaxZ returns the highest z value currently assigned, or 0 when empty
func (s *Stack) MaxZ() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := 0
	for _, v := range s.z {
		if v > m {
			m = v
		}
	}
	return m
}
