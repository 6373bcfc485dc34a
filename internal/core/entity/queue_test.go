package entity

import "testing"

func TestQueueDeduplicatesScenario(t *testing.T) {
	q := NewQueue(3)
	a := NewUii(0, 0)
	b := NewUii(1, 0)
	aUpdated := NewUii(0, 1)

	q.Push(a)
	q.Push(b)
	q.Push(aUpdated)

	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
	if got := q.Pop(); got != aUpdated {
		t.Fatalf("first Pop() = %s, want %s", got, aUpdated)
	}
	if got := q.Pop(); got != b {
		t.Fatalf("second Pop() = %s, want %s", got, b)
	}
	if q.Len() != 0 {
		t.Fatalf("Len() after drain = %d", q.Len())
	}
}

func TestQueueRepeatedPushKeepsOneEntry(t *testing.T) {
	q := NewQueue(8)
	for gen := uint32(0); gen < 5; gen++ {
		q.Push(NewUii(4, gen))
	}
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	if got := q.Front(); got != NewUii(4, 4) {
		t.Fatalf("Front() = %s, want uii(4:4)", got)
	}
	if got := q.Pop(); got.Generation() != 4 {
		t.Fatalf("Pop() generation = %d, want 4", got.Generation())
	}
}

func TestQueueRequeueAfterPop(t *testing.T) {
	q := NewQueue(2)
	id := NewUii(1, 0)
	q.Push(id)
	q.Pop()
	q.Push(id)
	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
}

func TestQueueWrapsAround(t *testing.T) {
	q := NewQueue(3)
	for round := 0; round < 10; round++ {
		for i := uint32(0); i < 3; i++ {
			q.Push(NewUii(i, uint32(round)))
		}
		if q.Len() != q.Cap() {
			t.Fatalf("round %d: Len() = %d, want %d", round, q.Len(), q.Cap())
		}
		for i := uint32(0); i < 3; i++ {
			if got := q.Pop(); got != NewUii(i, uint32(round)) {
				t.Fatalf("round %d: Pop() = %s, want index %d", round, got, i)
			}
		}
	}
}

func TestQueueFaults(t *testing.T) {
	q := NewQueue(2)
	expectFault(t, "Pop", func() { q.Pop() })
	expectFault(t, "Front", func() { q.Front() })
	expectFault(t, "Push", func() { q.Push(NewUii(2, 0)) })
	expectFault(t, "Push", func() { q.Push(Invalid) })
	expectFault(t, "NewQueue", func() { NewQueue(0) })
}
