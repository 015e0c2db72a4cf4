package wt_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"wt-go/internal/testutil"
	"wt-go/internal/wt"
)

type manageFixture struct {
	screen    *wt.ManageScreen
	faulty    *testutil.FaultyStore
	clock     *testutil.StubClock
	publisher *testutil.RecordingPublisher
}

func newManageFixture(t *testing.T, entries ...*wt.MeasurementEntry) *manageFixture {
	t.Helper()
	faulty := testutil.NewFaultyStore(testutil.NewTestStore())
	store := wt.NewEntryStore(faulty, "", nil)
	for _, e := range entries {
		if err := store.Save(context.Background(), e); err != nil {
			t.Fatal(err)
		}
	}
	clock := testutil.FixedClock()
	pub := &testutil.RecordingPublisher{}
	return &manageFixture{
		screen:    wt.NewManageScreen(store, pub, clock, time.UTC, nil, 3*time.Second),
		faulty:    faulty,
		clock:     clock,
		publisher: pub,
	}
}

func entryAt(id int64, ts string, weight float64) *wt.MeasurementEntry {
	return &wt.MeasurementEntry{ID: id, Timestamp: ts, Weight: wt.Float(weight)}
}

func rowIDs(rows []wt.Row) []int64 {
	ids := make([]int64, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

func TestManageScreen_LoadNewestFirst(t *testing.T) {
	f := newManageFixture(t,
		entryAt(1, "2024-01-10T08:00:00.000Z", 71),
		entryAt(2, "2024-01-12T08:00:00.000Z", 70.5),
		entryAt(3, "2024-01-11T08:00:00.000Z", 70.8),
		entryAt(4, "not a date", 69),
	)

	view := f.screen.Load(context.Background(), "s1")
	if view.State != wt.StateLoaded {
		t.Fatalf("state = %v, want loaded", view.State)
	}

	got := rowIDs(view.Rows)
	want := []int64{2, 3, 1, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row order = %v, want %v", got, want)
		}
	}

	first := view.Rows[0]
	if first.Date != "2024/01/12 08:00" || first.Weight != "70.50 kg" || first.BMI != "N/A" {
		t.Errorf("first row = %+v", first)
	}
	if view.Rows[3].Date != "Invalid Date" {
		t.Errorf("bad timestamp rendered as %q", view.Rows[3].Date)
	}
}

func TestManageScreen_LoadStates(t *testing.T) {
	f := newManageFixture(t)
	if view := f.screen.Load(context.Background(), "s1"); view.State != wt.StateEmpty || view.Message != wt.TextRecordsEmpty {
		t.Errorf("empty view = %+v", view)
	}

	f.faulty.Set(func(s *testutil.FaultyStore) { s.ListErr = errors.New("down") })
	view := f.screen.Load(context.Background(), "s1")
	if view.State != wt.StateError || view.Message != wt.TextRecordsLoadFailed || len(view.Rows) != 0 {
		t.Errorf("error view = %+v", view)
	}
}

func TestManageScreen_ViewUnknownSession(t *testing.T) {
	f := newManageFixture(t)
	if _, ok := f.screen.View("never-loaded"); ok {
		t.Error("View() ok = true for a session that never loaded")
	}
}

func TestManageScreen_DeleteRequiresConfirmation(t *testing.T) {
	f := newManageFixture(t, entryAt(1, "2024-01-10T08:00:00.000Z", 71))
	f.screen.Load(context.Background(), "s1")

	if err := f.screen.Delete(context.Background(), "s1", 1, false); !errors.Is(err, wt.ErrNotConfirmed) {
		t.Fatalf("Delete() error = %v, want ErrNotConfirmed", err)
	}
	view, _ := f.screen.View("s1")
	if len(view.Rows) != 1 || len(view.Messages) != 0 {
		t.Errorf("view after unconfirmed delete = %+v", view)
	}
	keys, _ := f.faulty.List(context.Background(), "data/")
	if len(keys) != 1 {
		t.Errorf("stored keys = %v, want untouched", keys)
	}
}

func TestManageScreen_DeleteRemovesRowWithoutReload(t *testing.T) {
	f := newManageFixture(t,
		entryAt(1, "2024-01-10T08:00:00.000Z", 71),
		entryAt(2, "2024-01-12T08:00:00.000Z", 70.5),
	)
	ctx := context.Background()
	f.screen.Load(ctx, "s1")

	// Any further listing would fail; the view must come from the local list.
	f.faulty.Set(func(s *testutil.FaultyStore) { s.ListErr = errors.New("list must not be called") })

	if err := f.screen.Delete(ctx, "s1", 2, true); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	view, _ := f.screen.View("s1")
	if ids := rowIDs(view.Rows); len(ids) != 1 || ids[0] != 1 {
		t.Errorf("rows = %v, want [1]", ids)
	}
	if msg := onlyMessage(t, view.Messages); msg.Kind != wt.MessageSuccess || msg.Text != wt.TextDeleted {
		t.Errorf("message = %+v", msg)
	}

	events := f.publisher.Events()
	if len(events) != 1 || events[0].Type != wt.EventEntryDeleted || events[0].ID != 2 {
		t.Errorf("events = %+v", events)
	}

	f.clock.Advance(3 * time.Second)
	if view, _ := f.screen.View("s1"); len(view.Messages) != 0 {
		t.Errorf("messages after 3s = %v, want cleared", view.Messages)
	}
}

func TestManageScreen_DeleteLastRowShowsEmpty(t *testing.T) {
	f := newManageFixture(t, entryAt(1, "2024-01-10T08:00:00.000Z", 71))
	ctx := context.Background()
	f.screen.Load(ctx, "s1")

	if err := f.screen.Delete(ctx, "s1", 1, true); err != nil {
		t.Fatal(err)
	}
	view, _ := f.screen.View("s1")
	if view.State != wt.StateEmpty || view.Message != wt.TextRecordsEmpty {
		t.Errorf("view = %+v, want empty state", view)
	}
}

func TestManageScreen_DeleteFailureKeepsRow(t *testing.T) {
	f := newManageFixture(t, entryAt(1, "2024-01-10T08:00:00.000Z", 71))
	ctx := context.Background()
	f.screen.Load(ctx, "s1")
	f.faulty.Set(func(s *testutil.FaultyStore) { s.DeleteErr = errors.New("denied") })

	if err := f.screen.Delete(ctx, "s1", 1, true); !errors.Is(err, wt.ErrStorageUnavailable) {
		t.Fatalf("Delete() error = %v, want ErrStorageUnavailable", err)
	}
	view, _ := f.screen.View("s1")
	if len(view.Rows) != 1 || view.Rows[0].Deleting {
		t.Errorf("rows = %+v, want row kept and idle", view.Rows)
	}
	if msg := onlyMessage(t, view.Messages); msg.Kind != wt.MessageError || msg.Text != wt.TextDeleteFailed {
		t.Errorf("message = %+v", msg)
	}
	if len(f.publisher.Events()) != 0 {
		t.Error("event published for failed delete")
	}

	f.clock.Advance(3 * time.Second)
	view, _ = f.screen.View("s1")
	if len(view.Messages) != 0 {
		t.Errorf("messages after ttl = %+v, want none", view.Messages)
	}
	if len(view.Rows) != 1 || view.Rows[0].Deleting {
		t.Errorf("rows after ttl = %+v, want row kept and idle", view.Rows)
	}
}

func TestManageScreen_DeleteInFlightDisablesOnlyThatRow(t *testing.T) {
	f := newManageFixture(t,
		entryAt(1, "2024-01-10T08:00:00.000Z", 71),
		entryAt(2, "2024-01-12T08:00:00.000Z", 70.5),
	)
	ctx := context.Background()
	f.screen.Load(ctx, "s1")

	gate := make(chan struct{})
	f.faulty.Set(func(s *testutil.FaultyStore) { s.Gate = gate })

	done := make(chan error, 1)
	go func() { done <- f.screen.Delete(ctx, "s1", 1, true) }()

	deleting := func(id int64) bool {
		view, _ := f.screen.View("s1")
		for _, r := range view.Rows {
			if r.ID == id {
				return r.Deleting
			}
		}
		return false
	}
	waitFor(t, func() bool { return deleting(1) })

	if deleting(2) {
		t.Error("row 2 marked deleting while only row 1 is in flight")
	}
	if err := f.screen.Delete(ctx, "s1", 1, true); !errors.Is(err, wt.ErrDeleteInProgress) {
		t.Errorf("repeat Delete() error = %v, want ErrDeleteInProgress", err)
	}

	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	view, _ := f.screen.View("s1")
	if ids := rowIDs(view.Rows); len(ids) != 1 || ids[0] != 2 {
		t.Errorf("rows = %v, want [2]", ids)
	}
}

func TestManageScreen_IdleSessionsExpire(t *testing.T) {
	f := newManageFixture(t, entryAt(1, "2024-01-10T08:00:00.000Z", 71))
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		f.screen.Load(ctx, fmt.Sprintf("idle-%d", i))
	}
	f.screen.Load(ctx, "active")

	for i := 0; i < 3; i++ {
		f.clock.Advance(wt.SessionTTL / 2)
		if _, ok := f.screen.View("active"); !ok {
			t.Fatalf("active session dropped after %d views", i)
		}
	}

	for _, id := range []string{"idle-0", "idle-500", "idle-999"} {
		if _, ok := f.screen.View(id); ok {
			t.Errorf("View(%s) ok = true, want session expired", id)
		}
	}
	if view, ok := f.screen.View("active"); !ok || len(view.Rows) != 1 {
		t.Errorf("View(active) = %+v, %v", view, ok)
	}
}

func TestManageScreen_SnapshotKeepsNoSession(t *testing.T) {
	f := newManageFixture(t,
		entryAt(1, "2024-01-10T08:00:00.000Z", 71),
		entryAt(2, "2024-01-12T08:00:00.000Z", 70.5),
	)

	view := f.screen.Snapshot(context.Background())
	if view.State != wt.StateLoaded || !slices.Equal(rowIDs(view.Rows), []int64{2, 1}) {
		t.Errorf("Snapshot() = %+v", view)
	}
	if _, ok := f.screen.View(""); ok {
		t.Error("Snapshot() left a session behind")
	}
}
