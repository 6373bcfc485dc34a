package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/inmosttrail/server/internal/core/entity"
	"github.com/inmosttrail/server/internal/core/event"
	coresys "github.com/inmosttrail/server/internal/core/system"
	"github.com/inmosttrail/server/internal/data"
	"github.com/inmosttrail/server/internal/persist"
	"github.com/inmosttrail/server/internal/world"
)

type memStore struct {
	saves [][]persist.AvatarRow
	err   error
}

func (m *memStore) SaveAll(_ context.Context, rows []persist.AvatarRow) error {
	if m.err != nil {
		return m.err
	}
	m.saves = append(m.saves, rows)
	return nil
}

func newWorld(t *testing.T) (*world.State, *event.Bus) {
	t.Helper()
	bus := event.NewBus()
	ws := world.NewState(world.Options{Width: 16, Height: 16, Capacity: 8},
		data.NewUnitTable(nil), bus, zaptest.NewLogger(t))
	return ws, bus
}

func TestPersistenceSavesServerAvatarsOnInterval(t *testing.T) {
	ws, _ := newWorld(t)
	_, _ = ws.Spawn(3, world.Point{X: 4, Y: 5}, world.NoOwner)
	_, _ = ws.Spawn(1, world.Point{X: 1, Y: 1}, 0) // player, not saved

	store := &memStore{}
	sys := NewPersistenceSystem(ws, store, zaptest.NewLogger(t), 3)
	for i := 0; i < 2; i++ {
		sys.Update(time.Millisecond)
	}
	if len(store.saves) != 0 {
		t.Fatal("saved before the interval elapsed")
	}
	sys.Update(time.Millisecond)
	if len(store.saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(store.saves))
	}
	rows := store.saves[0]
	if len(rows) != 1 || rows[0] != (persist.AvatarRow{UnitType: 3, X: 4, Y: 5}) {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestPersistenceDisabledWithZeroInterval(t *testing.T) {
	ws, _ := newWorld(t)
	store := &memStore{}
	sys := NewPersistenceSystem(ws, store, zaptest.NewLogger(t), 0)
	for i := 0; i < 10; i++ {
		sys.Update(time.Millisecond)
	}
	if len(store.saves) != 0 {
		t.Fatal("disabled persistence saved")
	}
}

func TestPersistenceSurvivesStoreErrors(t *testing.T) {
	ws, _ := newWorld(t)
	store := &memStore{err: errors.New("connection refused")}
	sys := NewPersistenceSystem(ws, store, zaptest.NewLogger(t), 1)
	sys.Update(time.Millisecond)
	sys.SaveAll()
}

func TestRestore(t *testing.T) {
	ws, _ := newWorld(t)
	n := Restore(ws, []persist.AvatarRow{
		{UnitType: 2, X: 3, Y: 3},
		{UnitType: 2, X: 99, Y: 3}, // outside a 16x16 world
		{UnitType: 1, X: -1, Y: 0},
		{UnitType: 4, X: 0, Y: 15},
	}, zaptest.NewLogger(t))
	if n != 2 || ws.Count() != 2 {
		t.Fatalf("restored %d (count %d), want 2", n, ws.Count())
	}
	ws.Each(func(id entity.Uii, a *world.Avatar) {
		if a.Owned() {
			t.Errorf("%s restored with an owner", id)
		}
	})
}

func TestTickPipeline(t *testing.T) {
	ws, bus := newWorld(t)
	var changed []entity.Uii
	event.Subscribe(bus, func(ev event.AvatarChanged) { changed = append(changed, ev.ID) })

	r := coresys.NewRunner()
	r.Register(NewWorldSystem(ws))
	r.Register(NewEventSystem(bus))

	id, _ := ws.Spawn(0, world.Point{X: 0, Y: 0}, 0)
	_ = ws.Walk(id, world.Point{X: 1, Y: 0})

	// tick 1 delivers the spawn and walk events emitted before it
	r.Tick(time.Millisecond)
	if len(changed) != 2 {
		t.Fatalf("changed = %v after first tick", changed)
	}

	// default unit walks one cell in 4 ticks; arrival is delivered one tick later
	for i := 0; i < 4; i++ {
		r.Tick(time.Millisecond)
	}
	if len(changed) != 3 {
		t.Fatalf("changed = %v, want arrival event", changed)
	}
	a, _ := ws.Resolve(id)
	if a.State != world.Idle || a.Begin != (world.Point{X: 1, Y: 0}) {
		t.Fatalf("avatar = %+v", *a)
	}
}
