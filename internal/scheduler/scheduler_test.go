package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeRepairer struct {
	calls int
	n     int64
	err   error
}

func (f *fakeRepairer) RepairStatuses(ctx context.Context) (int64, error) {
	f.calls++
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("no deadline")
	}
	return f.n, f.err
}

type fakeDLQ struct{ n int64 }

func (f fakeDLQ) DeadLetterCount(context.Context) (int64, error) { return f.n, nil }

func TestRepairStatusesLogsRepairedRows(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := &fakeRepairer{n: 3}
	s := New(r, nil, Specs{}, zap.New(core))

	s.RepairStatuses()

	assert.Equal(t, 1, r.calls)
	require.Equal(t, 1, logs.FilterMessage("repaired invalid statuses").Len())
	assert.Equal(t, int64(3), logs.All()[0].ContextMap()["rows"])
}

func TestRepairStatusesLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := New(&fakeRepairer{err: errors.New("db down")}, nil, Specs{}, zap.New(core))
	s.RepairStatuses()
	assert.Equal(t, 1, logs.FilterMessage("status repair failed").Len())
}

func TestReportDeadLettersOnlyWhenNonEmpty(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	New(nil, fakeDLQ{}, Specs{}, zap.New(core)).ReportDeadLetters()
	assert.Zero(t, logs.Len())

	New(nil, fakeDLQ{n: 2}, Specs{}, zap.New(core)).ReportDeadLetters()
	assert.Equal(t, 1, logs.FilterMessage("notification jobs in dead-letter queue").Len())
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(&fakeRepairer{}, nil, Specs{StatusRepair: "not a spec"}, nil)
	assert.Error(t, s.Start())
}

func TestStartRegistersConfiguredJobs(t *testing.T) {
	s := New(&fakeRepairer{}, fakeDLQ{}, Specs{StatusRepair: "0 3 * * *", DLQReport: "*/15 * * * *"}, nil)
	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.engine.Entries(), 2)

	skipped := New(nil, fakeDLQ{}, Specs{StatusRepair: "0 3 * * *"}, nil)
	require.NoError(t, skipped.Start())
	defer skipped.Stop()
	assert.Empty(t, skipped.engine.Entries())
}
