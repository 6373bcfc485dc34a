package net

import "time"

// Bucket is a token bucket that starts full and regains one token per
// refill interval, up to capacity.
type Bucket struct {
	capacity int
	tokens   int
	refill   time.Duration
	last     time.Time
}

func NewBucket(capacity int, refill time.Duration) *Bucket {
	return &Bucket{capacity: capacity, tokens: capacity, refill: refill}
}

func (b *Bucket) advance(now time.Time) {
	if b.last.IsZero() {
		b.last = now
		return
	}
	if b.refill <= 0 {
		b.tokens = b.capacity
		b.last = now
		return
	}
	gained := int(now.Sub(b.last) / b.refill)
	if gained <= 0 {
		return
	}
	b.tokens += gained
	if b.tokens >= b.capacity {
		b.tokens = b.capacity
		b.last = now
		return
	}
	b.last = b.last.Add(time.Duration(gained) * b.refill)
}

// Take consumes a token if one is available at now.
func (b *Bucket) Take(now time.Time) bool {
	b.advance(now)
	if b.tokens == 0 {
		return false
	}
	b.tokens--
	return true
}

func (b *Bucket) Tokens(now time.Time) int {
	b.advance(now)
	return b.tokens
}
