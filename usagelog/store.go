package usagelog

import "context"

type Store interface {
	InsertBatch(ctx context.Context, events []*Event) error

	// CountByDate and CountByMonth return event counts for a bucket
	// key ("2006-01-02" / "2006-01").
	CountByDate(ctx context.Context, date string) (int64, error)
	CountByMonth(ctx context.Context, month string) (int64, error)

	// DistinctHWIDsByDate returns how many distinct fingerprints
	// checked in on a day.
	DistinctHWIDsByDate(ctx context.Context, date string) (int64, error)
}
