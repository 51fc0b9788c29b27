package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleReport() LoadReport {
	return LoadReport{
		State:        "Loading",
		Target:       "Menu",
		VisibleDone:  10,
		VisibleTotal: 10,
		HiddenDone:   2,
		HiddenTotal:  2,
		Entries:      4,
		Dropped:      1,
		Duration:     1500 * time.Millisecond,
		CompletedAt:  time.Unix(1700000000, 0).UTC(),
	}
}

func TestReportRepoInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rep := sampleReport()
	mock.ExpectExec("INSERT INTO load_reports").
		WithArgs(rep.State, rep.Target, int64(10), int64(10), int64(2), int64(2), 4, int64(1), int64(1500), rep.CompletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, newReportRepo(mock).Insert(context.Background(), rep))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepoInsertWrapsError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO load_reports").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err = newReportRepo(mock).Insert(context.Background(), sampleReport())
	require.ErrorContains(t, err, "insert load report: connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepoRecent(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	want := sampleReport()
	rows := pgxmock.NewRows([]string{
		"state", "target", "visible_done", "visible_total", "hidden_done", "hidden_total",
		"entries", "dropped", "duration_ms", "completed_at",
	}).AddRow(want.State, want.Target, int64(10), int64(10), int64(2), int64(2), 4, int64(1), int64(1500), want.CompletedAt)
	mock.ExpectQuery("FROM load_reports").WithArgs(5).WillReturnRows(rows)

	got, err := newReportRepo(mock).Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, []LoadReport{want}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

type memWriter struct {
	mu   sync.Mutex
	reps []LoadReport
	gate chan struct{}
}

func (m *memWriter) Insert(_ context.Context, rep LoadReport) error {
	if m.gate != nil {
		<-m.gate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reps = append(m.reps, rep)
	return nil
}

func TestRecorderWritesAndFlushesOnClose(t *testing.T) {
	t.Parallel()

	w := &memWriter{}
	r := NewRecorder(w, 4, zap.NewNop())
	require.True(t, r.Enqueue(sampleReport()))
	require.True(t, r.Enqueue(sampleReport()))
	r.Close()

	require.Len(t, w.reps, 2)
}

func TestRecorderDropsWhenFull(t *testing.T) {
	t.Parallel()

	w := &memWriter{gate: make(chan struct{})}
	r := NewRecorder(w, 1, zap.NewNop())

	// The writer goroutine may already hold the first report; the queue
	// still has one slot, so at most two enqueues succeed.
	accepted := 0
	for i := 0; i < 4; i++ {
		if r.Enqueue(sampleReport()) {
			accepted++
		}
	}
	require.LessOrEqual(t, accepted, 2)
	require.GreaterOrEqual(t, accepted, 1)

	close(w.gate)
	r.Close()
	require.Len(t, w.reps, accepted)
}
