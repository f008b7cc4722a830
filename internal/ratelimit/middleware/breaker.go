package middleware

import "sync"

// circuitBreaker tracks consecutive primary store errors. After
// failureThreshold failures it opens and checks go to the fallback; after
// successThreshold consecutive successful calls it closes again.
type circuitBreaker struct {
	mu               sync.Mutex
	open             bool
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
}

func newCircuitBreaker(failureThreshold, successThreshold int) *circuitBreaker {
	return &circuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
	}
}

func (c *circuitBreaker) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// RecordFailure reports whether the breaker is open afterwards.
func (c *circuitBreaker) RecordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount++
	c.successCount = 0
	if !c.open && c.failureCount >= c.failureThreshold {
		c.open = true
	}
	return c.open
}

// RecordSuccess reports whether the breaker is closed afterwards.
func (c *circuitBreaker) RecordSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		c.failureCount = 0
		return true
	}
	c.successCount++
	if c.successCount >= c.successThreshold {
		c.open = false
		c.failureCount = 0
		c.successCount = 0
	}
	return !c.open
}
