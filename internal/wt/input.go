package wt

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MeasurementForm holds the raw form values as typed by the user.
// Weight is required; a blank optional field means "not measured".
type MeasurementForm struct {
	Weight      string `json:"weight"`
	BMI         string `json:"bmi"`
	BodyFat     string `json:"bodyFat"`
	MuscleMass  string `json:"muscleMass"`
	VisceralFat string `json:"visceralFat"`
}

// InputView is what the input screen renders.
type InputView struct {
	Form       MeasurementForm `json:"form"`
	Messages   []Message       `json:"messages"`
	Submitting bool            `json:"submitting"`
}

// InputScreen turns submitted forms into stored entries.
// Each session has at most one submission in flight.
type InputScreen struct {
	entries   *EntryStore
	publisher Publisher
	board     *MessageBoard
	clock     Clock
	idgen     IDGenerator
	logger    Logger
	ttl       time.Duration

	mu         sync.Mutex
	submitting map[string]struct{}
}

// NewInputScreen creates an InputScreen. ttl is how long confirmation and
// error messages stay visible.
func NewInputScreen(entries *EntryStore, publisher Publisher, clock Clock, idgen IDGenerator, logger Logger, ttl time.Duration) *InputScreen {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &InputScreen{
		entries:    entries,
		publisher:  publisher,
		board:      NewMessageBoard(clock),
		clock:      clock,
		idgen:      idgen,
		logger:     logger,
		ttl:        ttl,
		submitting: make(map[string]struct{}),
	}
}

// View returns the blank form for the session along with any live messages.
func (s *InputScreen) View(session string) InputView {
	return InputView{
		Messages:   s.board.Current(session),
		Submitting: s.isSubmitting(session),
	}
}

// Submit builds an entry from form and saves it.
//
// On success the returned view has an empty form and a confirmation message.
// On failure the form values are kept so the user need not retype them, and
// an error message is shown. A submission while another one from the same
// session is pending fails with ErrSubmitInProgress.
func (s *InputScreen) Submit(ctx context.Context, session string, form MeasurementForm) (InputView, *MeasurementEntry, error) {
	if !s.acquire(session) {
		return InputView{Form: form, Messages: s.board.Current(session), Submitting: true}, nil, ErrSubmitInProgress
	}
	defer s.release(session)

	s.board.Clear(session)

	entry, err := form.Entry(s.idgen.New(), FormatTimestamp(s.clock.Now()))
	if err != nil {
		text := TextBadNumber
		if strings.TrimSpace(form.Weight) == "" {
			text = TextWeightEmpty
		}
		s.board.Post(session, MessageError, text, s.ttl)
		return InputView{Form: form, Messages: s.board.Current(session)}, nil, err
	}

	if err := s.entries.Save(ctx, entry); err != nil {
		s.board.Post(session, MessageError, TextSaveFailed, s.ttl)
		return InputView{Form: form, Messages: s.board.Current(session)}, nil, err
	}

	s.board.Post(session, MessageSuccess, TextSaved, s.ttl)
	s.publish(ctx, Event{Type: EventEntrySaved, ID: entry.ID, Entry: entry, At: s.clock.Now()})

	return InputView{Messages: s.board.Current(session)}, entry, nil
}

func (s *InputScreen) publish(ctx context.Context, ev Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("publishing event failed", "type", ev.Type, "id", ev.ID, "error", err)
	}
}

func (s *InputScreen) acquire(session string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.submitting[session]; busy {
		return false
	}
	s.submitting[session] = struct{}{}
	return true
}

func (s *InputScreen) release(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submitting, session)
}

func (s *InputScreen) isSubmitting(session string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, busy := s.submitting[session]
	return busy
}

// Entry converts the form into an entry with the given id and timestamp.
// Weight must be present; every present field must be a finite number.
func (f MeasurementForm) Entry(id int64, timestamp string) (*MeasurementEntry, error) {
	if strings.TrimSpace(f.Weight) == "" {
		return nil, fmt.Errorf("%w: weight is required", ErrValidation)
	}

	e := &MeasurementEntry{ID: id, Timestamp: timestamp}
	fields := []struct {
		name string
		raw  string
		dst  **float64
	}{
		{"weight", f.Weight, &e.Weight},
		{"bmi", f.BMI, &e.BMI},
		{"bodyFat", f.BodyFat, &e.BodyFat},
		{"muscleMass", f.MuscleMass, &e.MuscleMass},
		{"visceralFat", f.VisceralFat, &e.VisceralFat},
	}

	for _, fld := range fields {
		v, err := parseOptional(fld.raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrValidation, fld.name, err)
		}
		*fld.dst = v
	}
	return e, nil
}

// parseOptional maps a blank string to nil and anything else to a finite float.
func parseOptional(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("not a finite number: %q", raw)
	}
	return &v, nil
}
