package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LoadReport summarises one completed tracking session.
type LoadReport struct {
	State        string
	Target       string
	VisibleDone  uint32
	VisibleTotal uint32
	HiddenDone   uint32
	HiddenTotal  uint32
	Entries      int
	Dropped      uint64
	Duration     time.Duration
	CompletedAt  time.Time
}

// querier is the subset of pgxpool.Pool the repo needs; pgxmock satisfies it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type ReportRepo struct {
	db querier
}

func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db.Pool}
}

func newReportRepo(q querier) *ReportRepo {
	return &ReportRepo{db: q}
}

// Insert stores one report.
func (r *ReportRepo) Insert(ctx context.Context, rep LoadReport) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO load_reports (state, target, visible_done, visible_total, hidden_done, hidden_total, entries, dropped, duration_ms, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rep.State, rep.Target,
		int64(rep.VisibleDone), int64(rep.VisibleTotal),
		int64(rep.HiddenDone), int64(rep.HiddenTotal),
		rep.Entries, int64(rep.Dropped),
		rep.Duration.Milliseconds(), rep.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert load report: %w", err)
	}
	return nil
}

// Recent returns up to limit reports, newest first.
func (r *ReportRepo) Recent(ctx context.Context, limit int) ([]LoadReport, error) {
	rows, err := r.db.Query(ctx,
		`SELECT state, target, visible_done, visible_total, hidden_done, hidden_total, entries, dropped, duration_ms, completed_at
		 FROM load_reports ORDER BY completed_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query load reports: %w", err)
	}
	defer rows.Close()

	var out []LoadReport
	for rows.Next() {
		var (
			rep                                           LoadReport
			visDone, visTotal, hidDone, hidTotal, dropped int64
			durationMs                                    int64
		)
		if err := rows.Scan(&rep.State, &rep.Target, &visDone, &visTotal, &hidDone, &hidTotal,
			&rep.Entries, &dropped, &durationMs, &rep.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan load report: %w", err)
		}
		rep.VisibleDone = uint32(visDone)
		rep.VisibleTotal = uint32(visTotal)
		rep.HiddenDone = uint32(hidDone)
		rep.HiddenTotal = uint32(hidTotal)
		rep.Dropped = uint64(dropped)
		rep.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate load reports: %w", err)
	}
	return out, nil
}
