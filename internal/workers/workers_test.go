package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"falcaoProAPI/internal/logging"
)

type fakeSweepStore struct {
	cutoff   time.Time
	from, to time.Time
	ids      []string
	markErr  error
}

func (f *fakeSweepStore) MarkLapsed(ctx context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 2, f.markErr
}

func (f *fakeSweepStore) ExpiringUserIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	f.from, f.to = from, to
	return f.ids, nil
}

type fakeReminder struct {
	calls [][]string
	days  int
}

func (f *fakeReminder) NotifyExpiring(userIDs []string, days int) {
	f.calls = append(f.calls, userIDs)
	f.days = days
}

func newTestSweeper(store SweepStore, reminder Reminder) *SubscriptionSweeper {
	s := NewSubscriptionSweeper(store, reminder, time.Hour, logging.Discard())
	s.now = func() time.Time { return time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC) }
	return s
}

func TestSweep_Windows(t *testing.T) {
	store := &fakeSweepStore{ids: []string{"u1", "u2"}}
	reminder := &fakeReminder{}

	newTestSweeper(store, reminder).Sweep(context.Background())

	assert.Equal(t, time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC), store.cutoff)
	assert.Equal(t, time.Date(2025, 1, 13, 15, 0, 0, 0, time.UTC), store.from)
	assert.Equal(t, time.Date(2025, 1, 13, 16, 0, 0, 0, time.UTC), store.to)
	assert.Equal(t, [][]string{{"u1", "u2"}}, reminder.calls)
	assert.Equal(t, 3, reminder.days)
}

func TestSweep_NoExpiringUsers(t *testing.T) {
	reminder := &fakeReminder{}
	newTestSweeper(&fakeSweepStore{}, reminder).Sweep(context.Background())

	assert.Empty(t, reminder.calls)
}

func TestSweep_MarkErrorStillReminds(t *testing.T) {
	store := &fakeSweepStore{ids: []string{"u1"}, markErr: errors.New("db down")}
	reminder := &fakeReminder{}

	newTestSweeper(store, reminder).Sweep(context.Background())

	assert.Len(t, reminder.calls, 1)
}

func TestSweep_NilReminder(t *testing.T) {
	store := &fakeSweepStore{ids: []string{"u1"}}

	assert.NotPanics(t, func() {
		newTestSweeper(store, nil).Sweep(context.Background())
	})
	assert.True(t, store.from.IsZero())
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &fakeSweepStore{}

	done := make(chan struct{})
	go func() {
		newTestSweeper(store, &fakeReminder{}).Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
