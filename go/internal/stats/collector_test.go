package stats

import (
	"context"
	"testing"
	"time"
)

type fakeStore struct {
	recs []Record
}

func (f *fakeStore) InsertPhaseRecord(ctx context.Context, rec Record) error {
	f.recs = append(f.recs, rec)
	return nil
}

func TestRecordCapturesActivePhaseStarts(t *testing.T) {
	store := &fakeStore{}
	c := NewCollector(store, nil)
	ctx := context.Background()

	c.record(ctx, []byte(`{"type":"TIMER_UPDATE","userId":"7","status":"WORK","startTime":"2026-03-01T09:00:00Z","duration":"PT25M0S"}`))

	if len(store.recs) != 1 {
		t.Fatalf("recorded %d rows, want 1", len(store.recs))
	}
	rec := store.recs[0]
	if rec.UserID != 7 || rec.Phase != "WORK" || rec.DurationSec != 1500 {
		t.Errorf("record = %+v, want user 7 WORK 1500s", rec)
	}
	want := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if !rec.StartedAt.Equal(want) {
		t.Errorf("started at %v, want %v", rec.StartedAt, want)
	}
}

func TestRecordIgnoresNonPhaseTraffic(t *testing.T) {
	store := &fakeStore{}
	c := NewCollector(store, nil)
	ctx := context.Background()

	// Paused updates, presence, chat, unknown types and garbage all pass
	// through without a row.
	c.record(ctx, []byte(`{"type":"TIMER_UPDATE","userId":"7","status":"ONLINE","duration":"PT20M0S"}`))
	c.record(ctx, []byte(`{"type":"STATUS","userId":"7","status":"OFFLINE"}`))
	c.record(ctx, []byte(`{"type":"CHAT","senderId":"7","body":"hi"}`))
	c.record(ctx, []byte(`{"type":"SOMETHING_NEW"}`))
	c.record(ctx, []byte(`not json`))
	c.record(ctx, []byte(`{"type":"TIMER_UPDATE","userId":"alice","status":"WORK","duration":"PT25M0S"}`))

	if len(store.recs) != 0 {
		t.Errorf("recorded %d rows, want 0", len(store.recs))
	}
}
