package wt

import (
	"context"
	"sync"
	"time"
)

// Row is one line of the records table, with every value already formatted.
type Row struct {
	ID          int64             `json:"id"`
	Date        string            `json:"date"`
	Weight      string            `json:"weight"`
	BMI         string            `json:"bmi"`
	BodyFat     string            `json:"bodyFat"`
	MuscleMass  string            `json:"muscleMass"`
	VisceralFat string            `json:"visceralFat"`
	Deleting    bool              `json:"deleting"`
	Entry       *MeasurementEntry `json:"entry"`
}

// ManageView is what the data management screen renders.
type ManageView struct {
	State    DisplayState `json:"state"`
	Message  string       `json:"message,omitempty"`
	Messages []Message    `json:"messages"`
	Rows     []Row        `json:"rows"`
}

type rowKey struct {
	session string
	id      int64
}

type manageSession struct {
	state   DisplayState
	entries []*MeasurementEntry
	touched time.Time
}

// SessionTTL is how long an idle session keeps its loaded list.
const SessionTTL = 30 * time.Minute

// ManageScreen lists entries newest first and deletes them one row at a time.
//
// Each session keeps the list it loaded; a successful delete removes the row
// from that list without fetching again. Deletes are tracked per row, so a
// pending delete disables only its own row.
type ManageScreen struct {
	entries   *EntryStore
	publisher Publisher
	board     *MessageBoard
	clock     Clock
	loc       *time.Location
	logger    Logger
	ttl       time.Duration

	mu       sync.Mutex
	sessions map[string]*manageSession
	deleting map[rowKey]struct{}
}

// NewManageScreen creates a ManageScreen. ttl is how long delete outcome
// messages stay visible.
func NewManageScreen(entries *EntryStore, publisher Publisher, clock Clock, loc *time.Location, logger Logger, ttl time.Duration) *ManageScreen {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &ManageScreen{
		entries:   entries,
		publisher: publisher,
		board:     NewMessageBoard(clock),
		clock:     clock,
		loc:       location(loc),
		logger:    logger,
		ttl:       ttl,
		sessions:  make(map[string]*manageSession),
		deleting:  make(map[rowKey]struct{}),
	}
}

// Load fetches every entry for the session, replacing its local list.
func (m *ManageScreen) Load(ctx context.Context, session string) ManageView {
	sess := &manageSession{state: StateLoading}
	m.mu.Lock()
	m.prune()
	sess.touched = m.clock.Now()
	m.sessions[session] = sess
	m.mu.Unlock()

	loaded := m.fetch(ctx)

	m.mu.Lock()
	sess.state, sess.entries = loaded.state, loaded.entries
	m.mu.Unlock()

	view, _ := m.View(session)
	return view
}

// Snapshot fetches every entry and renders it without keeping a session list.
func (m *ManageScreen) Snapshot(ctx context.Context) ManageView {
	loaded := m.fetch(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.render(loaded, nil, "")
}

func (m *ManageScreen) fetch(ctx context.Context) manageSession {
	entries, err := m.entries.ListAll(ctx)
	switch {
	case err != nil:
		m.logger.Error("loading records failed", "error", err)
		return manageSession{state: StateError}
	case len(entries) == 0:
		return manageSession{state: StateEmpty}
	default:
		sortDescending(entries)
		return manageSession{state: StateLoaded, entries: entries}
	}
}

// prune drops sessions idle for longer than SessionTTL. mu must be held.
func (m *ManageScreen) prune() {
	cutoff := m.clock.Now().Add(-SessionTTL)
	for id, sess := range m.sessions {
		if sess.touched.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

// View renders the session's local list without fetching. The boolean is
// false when the session has never loaded the screen.
func (m *ManageScreen) View(session string) (ManageView, bool) {
	messages := m.board.Current(session)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune()
	sess, ok := m.sessions[session]
	if !ok {
		return ManageView{State: StateLoading, Messages: messages}, false
	}
	sess.touched = m.clock.Now()

	return m.render(*sess, messages, session), true
}

// render builds the view of a loaded list. mu must be held.
func (m *ManageScreen) render(sess manageSession, messages []Message, session string) ManageView {
	view := ManageView{State: sess.state, Messages: messages}
	switch sess.state {
	case StateError:
		view.Message = TextRecordsLoadFailed
	case StateEmpty:
		view.Message = TextRecordsEmpty
	case StateLoaded:
		view.Rows = make([]Row, len(sess.entries))
		for i, e := range sess.entries {
			_, busy := m.deleting[rowKey{session, e.ID}]
			view.Rows[i] = m.row(e, busy)
		}
	}
	return view
}

func (m *ManageScreen) row(e *MeasurementEntry, deleting bool) Row {
	return Row{
		ID:          e.ID,
		Date:        FormatRowTime(e.Timestamp, m.loc),
		Weight:      FormatWeight(e.Weight),
		BMI:         FormatBMI(e.BMI),
		BodyFat:     FormatBodyFat(e.BodyFat),
		MuscleMass:  FormatMuscleMass(e.MuscleMass),
		VisceralFat: FormatVisceralFat(e.VisceralFat),
		Deleting:    deleting,
		Entry:       e,
	}
}

// Delete removes the entry with id once the user has confirmed.
//
// While the call is pending the row reports Deleting and a second delete of
// the same row fails with ErrDeleteInProgress; other rows are unaffected.
// On success the row leaves the session's list and a success message is
// posted; on failure the row stays and an error message is posted.
func (m *ManageScreen) Delete(ctx context.Context, session string, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	key := rowKey{session, id}
	m.mu.Lock()
	if _, busy := m.deleting[key]; busy {
		m.mu.Unlock()
		return ErrDeleteInProgress
	}
	m.deleting[key] = struct{}{}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.deleting, key)
		m.mu.Unlock()
	}()

	m.board.Clear(session)

	if err := m.entries.Delete(ctx, id); err != nil {
		m.board.Post(session, MessageError, TextDeleteFailed, m.ttl)
		return err
	}

	m.removeRow(session, id)
	m.board.Post(session, MessageSuccess, TextDeleted, m.ttl)

	if err := m.publisher.Publish(ctx, Event{Type: EventEntryDeleted, ID: id, At: m.clock.Now()}); err != nil {
		m.logger.Warn("publishing event failed", "type", EventEntryDeleted, "id", id, "error", err)
	}
	return nil
}

// removeRow drops id from the session's local list.
func (m *ManageScreen) removeRow(session string, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[session]
	if !ok {
		return
	}

	kept := sess.entries[:0]
	for _, e := range sess.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	sess.entries = kept

	if sess.state == StateLoaded && len(kept) == 0 {
		sess.state = StateEmpty
	}
}
