package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/ftpledger/internal/queue"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
	"github.com/dharsanguruparan/ftpledger/internal/source"
	"github.com/dharsanguruparan/ftpledger/internal/testutil"
)

func newProcessor(t *testing.T, dir reconcile.AccountDirectory) (*Processor, *testutil.FailingLedger) {
	t.Helper()
	store := testutil.NewStore(t, "alice", "bob")
	if dir == nil {
		dir = store
	}
	ledger := &testutil.FailingLedger{MemoryStore: store}
	svc := reconcile.New(dir, ledger)
	return NewProcessor(svc, source.Static{}, zap.NewNop()), ledger
}

func ingestTask(t *testing.T, username string) *asynq.Task {
	t.Helper()
	task, err := queue.NewIngestTask(testutil.Candidate(username, "report.pdf", 1048576))
	require.NoError(t, err)
	return task
}

func TestHandleIngest(t *testing.T) {
	p, ledger := newProcessor(t, nil)
	mux := p.Handler()

	require.NoError(t, mux.ProcessTask(context.Background(), ingestTask(t, "alice")))
	require.NoError(t, mux.ProcessTask(context.Background(), ingestTask(t, "alice")))

	files, err := ledger.ListFiles(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestHandleIngestSkipsRetryForCallerErrors(t *testing.T) {
	p, _ := newProcessor(t, nil)
	mux := p.Handler()

	err := mux.ProcessTask(context.Background(), ingestTask(t, "ghost"))
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, reconcile.ErrAccountNotFound)

	err = mux.ProcessTask(context.Background(), asynq.NewTask(queue.TaskIngestFile, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	payload, _ := json.Marshal(map[string]any{"username": "alice"})
	err = mux.ProcessTask(context.Background(), asynq.NewTask(queue.TaskIngestFile, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, reconcile.ErrInvalidInput)
}

func TestHandleIngestTimestampForms(t *testing.T) {
	p, ledger := newProcessor(t, nil)
	mux := p.Handler()

	payload := []byte(`{"username":"alice","filename":"a.txt","filepath":"/home/alice/a.txt","filesize":1,"timestamp":"2024-05-06T07:08:09"}`)
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(queue.TaskIngestFile, payload)))
	f, err := ledger.FindFile(context.Background(), mustAccountID(t, ledger, "alice"), "/home/alice/a.txt")
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.True(t, time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC).Equal(f.UploadedAt))

	payload = []byte(`{"username":"alice","filename":"b.txt","filepath":"/home/alice/b.txt","filesize":1,"timestamp":"whenever"}`)
	err = mux.ProcessTask(context.Background(), asynq.NewTask(queue.TaskIngestFile, payload))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, reconcile.ErrInvalidInput)
}

func mustAccountID(t *testing.T, ledger *testutil.FailingLedger, username string) string {
	t.Helper()
	a, err := ledger.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return a.ID
}

func TestHandleIngestRetriesStorageErrors(t *testing.T) {
	p, ledger := newProcessor(t, nil)
	ledger.FailFind = true

	err := p.Handler().ProcessTask(context.Background(), ingestTask(t, "alice"))
	require.Error(t, err)
	assert.ErrorIs(t, err, reconcile.ErrStorage)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleReconcile(t *testing.T) {
	p, ledger := newProcessor(t, nil)

	require.NoError(t, p.Handler().ProcessTask(context.Background(), queue.NewReconcileTask()))
	files, err := ledger.ListFiles(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, files, 6)

	// Partial failures are logged, not retried.
	ledger.FailTracked = true
	assert.NoError(t, p.Handler().ProcessTask(context.Background(), queue.NewReconcileTask()))
}

func TestHandleReconcileListFailure(t *testing.T) {
	store := testutil.NewStore(t, "alice")
	p, _ := newProcessor(t, &testutil.FailingDirectory{MemoryStore: store, FailList: true})

	err := p.Handler().ProcessTask(context.Background(), queue.NewReconcileTask())
	assert.ErrorIs(t, err, reconcile.ErrStorage)
}

func TestNewSchedulerDisabled(t *testing.T) {
	s, err := NewScheduler(asynq.RedisClientOpt{Addr: "localhost:6379"}, "", zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, s)
}
