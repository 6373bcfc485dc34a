package entity

// noLink terminates both the free list and the per-cell occupant lists.
const noLink = ^uint32(0)

type slotState uint8

const (
	slotUnused slotState = iota
	slotFree
	slotLive
)

// slot is the bookkeeping half of one Vector element. next/prev chain the
// free list while the slot is free (prev unused) and the cell list while it
// is live and attached; a free slot never has a cell.
type slot struct {
	id    Uii
	next  uint32
	prev  uint32
	cell  *Cell
	state slotState
}

// Vector is a fixed-capacity collection of reusable slots addressed by Uii.
// Released slots go onto a free list and are reused before untouched ones;
// every release bumps the slot generation so stale identifiers stop
// resolving. Accessed only from the game loop goroutine, no locks.
type Vector[T any] struct {
	slots []slot
	items []T
	size  uint32 // slots handed out at least once
	free  uint32 // free list head
	live  int
}

func NewVector[T any](capacity int) *Vector[T] {
	check(capacity > 0 && capacity <= MaxCapacity, "NewVector",
		"capacity %d out of range [1, %d]", capacity, MaxCapacity)
	v := &Vector[T]{
		slots: make([]slot, capacity),
		items: make([]T, capacity),
		free:  noLink,
	}
	for i := range v.slots {
		v.slots[i] = slot{id: Invalid, next: noLink, prev: noLink}
	}
	return v
}

func (v *Vector[T]) Len() int { return v.live }
func (v *Vector[T]) Cap() int { return len(v.slots) }

// Allocate returns the identifier of a fresh live slot whose payload is the
// zero value, or Invalid when every slot is live.
func (v *Vector[T]) Allocate() Uii {
	var idx uint32
	switch {
	case v.free != noLink:
		idx = v.free
		s := &v.slots[idx]
		check(s.state == slotFree, "Allocate", "free list head %d is not free", idx)
		check(s.cell == nil && s.prev == noLink, "Allocate", "free slot %d is linked into a cell", idx)
		v.free = s.next
		s.next = noLink
	case int(v.size) < len(v.slots):
		idx = v.size
		v.size++
		v.slots[idx].id = NewUii(idx, 0)
	default:
		return Invalid
	}

	s := &v.slots[idx]
	s.state = slotLive
	var zero T
	v.items[idx] = zero
	v.live++
	return s.id
}

// Release returns a live, detached slot to the free list and invalidates
// every identifier issued for it so far. Releasing a slot that is still in
// a cell, or releasing twice, is a fault.
func (v *Vector[T]) Release(id Uii) {
	s := v.liveSlot(id, "Release")
	check(s.cell == nil && s.next == noLink && s.prev == noLink, "Release",
		"%s is still linked into a cell", id)

	idx := id.Index()
	s.id = s.id.nextGeneration()
	s.state = slotFree
	s.next = v.free
	v.free = idx
	v.live--

	var zero T
	v.items[idx] = zero
}

// Resolve returns the payload only while id names the current occupant.
func (v *Vector[T]) Resolve(id Uii) (*T, bool) {
	idx := id.Index()
	if id == Invalid || idx >= v.size {
		return nil, false
	}
	s := &v.slots[idx]
	if s.state != slotLive || s.id != id {
		return nil, false
	}
	return &v.items[idx], true
}

func (v *Vector[T]) Alive(id Uii) bool {
	_, ok := v.Resolve(id)
	return ok
}

// Get is the generation-unaware accessor used for internal iteration.
func (v *Vector[T]) Get(idx uint32) *T {
	check(idx < v.size, "Get", "index %d out of bounds (size %d)", idx, v.size)
	return &v.items[idx]
}

// Each visits live slots in index order.
func (v *Vector[T]) Each(fn func(Uii, *T)) {
	for i := uint32(0); i < v.size; i++ {
		if v.slots[i].state == slotLive {
			fn(v.slots[i].id, &v.items[i])
		}
	}
}

// AttachToCell links id at the front of c's occupant list.
func (v *Vector[T]) AttachToCell(id Uii, c *Cell) {
	s := v.liveSlot(id, "AttachToCell")
	check(c != nil, "AttachToCell", "nil cell for %s", id)
	check(s.cell == nil && s.next == noLink && s.prev == noLink, "AttachToCell",
		"%s is already attached to a cell", id)

	idx := id.Index()
	if !c.Empty() {
		head := c.Head()
		check(head < v.size, "AttachToCell", "cell head %d out of bounds", head)
		h := &v.slots[head]
		check(h.cell == c && h.prev == noLink, "AttachToCell", "cell head %d is corrupt", head)
		h.prev = idx
		s.next = head
	}
	s.cell = c
	c.setHead(idx)
}

// DetachGetNext unlinks id from its cell and returns the occupant that
// followed it, or Invalid at the tail. A live id that is not attached is
// left alone and Invalid is returned.
func (v *Vector[T]) DetachGetNext(id Uii) Uii {
	s := v.liveSlot(id, "DetachGetNext")
	if s.cell == nil {
		return Invalid
	}

	next := Invalid
	if s.next != noLink {
		n := &v.slots[s.next]
		n.prev = s.prev
		next = n.id
	}
	if s.prev != noLink {
		v.slots[s.prev].next = s.next
	} else if s.next != noLink {
		s.cell.setHead(s.next)
	} else {
		s.cell.setHead(IndexMask)
	}

	s.next, s.prev, s.cell = noLink, noLink, nil
	return next
}

// CellOf returns the cell id is attached to, or nil.
func (v *Vector[T]) CellOf(id Uii) *Cell {
	if !v.Alive(id) {
		return nil
	}
	return v.slots[id.Index()].cell
}

// EachInCell walks c's occupants from the head. fn may detach the occupant
// it is given but must not touch any other list.
func (v *Vector[T]) EachInCell(c *Cell, fn func(Uii, *T)) {
	if c.Empty() {
		return
	}
	for idx := c.Head(); idx != noLink; {
		check(idx < v.size, "EachInCell", "link %d out of bounds", idx)
		s := &v.slots[idx]
		next := s.next
		fn(s.id, &v.items[idx])
		idx = next
	}
}

func (v *Vector[T]) liveSlot(id Uii, op string) *slot {
	idx := id.Index()
	check(id != Invalid && idx < v.size, op, "%s out of bounds (size %d)", id, v.size)
	s := &v.slots[idx]
	check(s.state == slotLive, op, "%s is not live, double free or use after free", id)
	check(s.id == id, op, "%s is stale, slot now holds %s", id, s.id)
	return s
}
