package entity

// Queue is a fixed-capacity FIFO of identifiers with at most one entry per
// slot index. Pushing an index that is already queued replaces the stored
// identifier in place, so an entity that changes several times before a flush
// is delivered once, at its queued position, with its latest generation.
type Queue struct {
	ring     []Uii
	position []uint32 // ring position per slot index, capacity when not queued
	front    uint32
	back     uint32
	length   uint32
	capacity uint32
}

func NewQueue(capacity int) *Queue {
	check(capacity > 0 && capacity <= MaxCapacity, "NewQueue",
		"capacity %d out of range [1, %d]", capacity, MaxCapacity)
	q := &Queue{
		ring:     make([]Uii, capacity),
		position: make([]uint32, capacity),
		capacity: uint32(capacity),
	}
	for i := range q.position {
		q.position[i] = q.capacity
	}
	return q
}

func (q *Queue) Len() int { return int(q.length) }
func (q *Queue) Cap() int { return int(q.capacity) }

func (q *Queue) Push(id Uii) {
	idx := id.Index()
	check(idx < q.capacity, "Push", "%s out of bounds (capacity %d)", id, q.capacity)

	if pos := q.position[idx]; pos != q.capacity {
		check(pos < q.capacity, "Push", "position %d of %s is corrupt", pos, id)
		q.ring[pos] = id
		return
	}

	check(q.length < q.capacity, "Push", "queue is full (capacity %d)", q.capacity)
	q.position[idx] = q.back
	q.ring[q.back] = id
	q.back++
	if q.back == q.capacity {
		q.back = 0
	}
	q.length++
}

func (q *Queue) Front() Uii {
	check(q.length > 0, "Front", "queue is empty")
	return q.ring[q.front]
}

func (q *Queue) Pop() Uii {
	check(q.length > 0, "Pop", "queue is empty")
	id := q.ring[q.front]
	q.front++
	if q.front == q.capacity {
		q.front = 0
	}
	q.length--
	q.position[id.Index()] = q.capacity
	return id
}
