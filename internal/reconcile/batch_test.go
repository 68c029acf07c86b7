package reconcile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/ftpledger/internal/model"
	"github.com/dharsanguruparan/ftpledger/internal/reconcile"
	"github.com/dharsanguruparan/ftpledger/internal/testutil"
)

func threeEach(users ...string) *testutil.MapSource {
	src := &testutil.MapSource{Files: map[string][]model.CandidateFile{}}
	for _, u := range users {
		src.Files[u] = []model.CandidateFile{
			testutil.Candidate(u, "test-image.jpg", 2048000),
			testutil.Candidate(u, "document.pdf", 1024000),
			testutil.Candidate(u, "data.txt", 512000),
		}
	}
	return src
}

func TestReconcileBatchSkipsTrackedFiles(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice", "bob")
	svc, _ := newService(store, store)
	src := threeEach("alice", "bob")

	// One file already tracked per account.
	for _, u := range []string{"alice", "bob"} {
		_, err := svc.Ingest(ctx, src.Files[u][1])
		require.NoError(t, err)
	}

	summary, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.UsersProcessed)
	assert.Equal(t, []model.AccountResult{
		{User: "alice", FilesFound: 3, NewFiles: 2},
		{User: "bob", FilesFound: 3, NewFiles: 2},
	}, summary.Results)
	assert.NoError(t, reconcile.PartialFailure(summary))

	files, err := store.ListFiles(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, files, 6)
}

func TestReconcileBatchSecondRunInsertsNothing(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice", "bob")
	svc, _ := newService(store, store)
	src := threeEach("alice", "bob")

	first, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 6, first.NewFiles())

	second, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.NewFiles())
	for _, r := range second.Results {
		assert.Equal(t, 3, r.FilesFound)
	}
}

func TestReconcileBatchDuplicateWithinBatch(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice")
	svc, _ := newService(store, store)
	first := testutil.Candidate("alice", "a.txt", 100)
	again := first
	again.Filesize = 999
	src := &testutil.MapSource{Files: map[string][]model.CandidateFile{
		"alice": {first, testutil.Candidate("alice", "b.txt", 1), again},
	}}

	summary, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 3, summary.Results[0].FilesFound)
	assert.Equal(t, 2, summary.Results[0].NewFiles)

	account, err := store.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	got, err := store.FindFile(ctx, account.ID, first.Filepath)
	require.NoError(t, err)
	require.NotNil(t, got)
	// The first observation wins.
	assert.Equal(t, reconcile.BytesToMB(100), got.FileSizeMB)
}

func TestReconcileBatchIsolatesFailingAccount(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice", "bob")
	svc, _ := newService(store, store)
	src := threeEach("alice", "bob")
	src.Fail = map[string]bool{"alice": true}

	summary, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.False(t, summary.Success)
	require.Len(t, summary.Results, 2)

	alice, bob := summary.Results[0], summary.Results[1]
	assert.Equal(t, "alice", alice.User)
	assert.Contains(t, alice.Error, "scan")
	assert.Zero(t, alice.NewFiles)
	assert.Equal(t, "bob", bob.User)
	assert.Empty(t, bob.Error)
	assert.Equal(t, 3, bob.NewFiles)

	assert.Equal(t, []string{"alice"}, summary.FailedAccounts())
	assert.ErrorIs(t, reconcile.PartialFailure(summary), reconcile.ErrPartialBatchFailure)
}

func TestReconcileBatchLedgerReadFailure(t *testing.T) {
	store := testutil.NewStore(t, "alice")
	svc, _ := newService(store, &testutil.FailingLedger{MemoryStore: store, FailTracked: true})

	summary, err := svc.ReconcileActive(context.Background(), threeEach("alice"))
	require.NoError(t, err)
	assert.False(t, summary.Success)
	assert.Equal(t, 3, summary.Results[0].FilesFound)
	assert.Contains(t, summary.Results[0].Error, reconcile.ErrStorage.Error())
}

func TestReconcileBatchWithoutBatchWrites(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice")
	svc, _ := newService(store, testutil.RowLedger{Store: store})

	summary, err := svc.ReconcileActive(ctx, threeEach("alice"))
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Results[0].NewFiles)
}

func TestReconcileBatchFallsBackToRowsAndReportsFailures(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice")
	src := threeEach("alice")
	ledger := &testutil.FailingLedger{
		MemoryStore: store,
		FailBatch:   true,
		FailPaths:   map[string]bool{"/home/alice/document.pdf": true},
	}
	svc, _ := newService(store, ledger)

	summary, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	r := summary.Results[0]
	assert.Equal(t, 3, r.FilesFound)
	assert.Equal(t, 2, r.NewFiles)
	assert.Equal(t, 1, r.FailedFiles)
	assert.Empty(t, r.Error)
	assert.True(t, summary.Success)

	// The failed row is picked up by the next run.
	svc, _ = newService(store, store)
	again, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Results[0].NewFiles)
}

func TestReconcileBatchKeepsAccountOrder(t *testing.T) {
	users := []string{"eve", "dave", "carol", "bob", "alice", "frank", "grace"}
	store := testutil.NewStore(t, users...)
	svc, _ := newService(store, store, reconcile.WithConcurrency(3))

	var accounts []model.Account
	for _, u := range users {
		a, err := store.FindByUsername(context.Background(), u)
		require.NoError(t, err)
		accounts = append(accounts, *a)
	}

	summary := svc.ReconcileBatch(context.Background(), accounts, threeEach(users...))
	require.Len(t, summary.Results, len(users))
	for i, u := range users {
		assert.Equal(t, u, summary.Results[i].User)
		assert.Equal(t, 3, summary.Results[i].NewFiles)
	}
}

func TestReconcileActiveSkipsInactiveAccounts(t *testing.T) {
	store := testutil.NewStore(t, "alice")
	testutil.AddAccount(t, store, "mallory", false)
	svc, _ := newService(store, store)
	src := threeEach("alice", "mallory")

	summary, err := svc.ReconcileActive(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.UsersProcessed)
	assert.Equal(t, []string{"alice"}, src.Calls())
}

func TestReconcileActiveListFailure(t *testing.T) {
	store := testutil.NewStore(t, "alice")
	svc, _ := newService(&testutil.FailingDirectory{MemoryStore: store, FailList: true}, store)

	summary, err := svc.ReconcileActive(context.Background(), threeEach("alice"))
	assert.Nil(t, summary)
	require.ErrorIs(t, err, reconcile.ErrStorage)
}

func TestReconcileBatchCancelled(t *testing.T) {
	store := testutil.NewStore(t, "alice", "bob")
	svc, _ := newService(store, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := svc.ReconcileActive(context.Background(), threeEach("alice", "bob"))
	require.NoError(t, err)
	require.True(t, summary.Success)

	accounts, err := store.ListActive(context.Background())
	require.NoError(t, err)
	summary = svc.ReconcileBatch(ctx, accounts, threeEach("alice", "bob"))
	assert.False(t, summary.Success)
	for _, r := range summary.Results {
		assert.Contains(t, r.Error, context.Canceled.Error())
	}

	// Rows committed before the cancellation stay.
	files, err := store.ListFiles(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, files, 6)
}

func TestReconcileBatchEmpty(t *testing.T) {
	store := testutil.NewStore(t)
	svc, _ := newService(store, store)

	summary, err := svc.ReconcileActive(context.Background(), threeEach())
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 0, summary.UsersProcessed)
	assert.Empty(t, summary.Results)
}

func TestReconcileBatchAuditsWrittenRows(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice", "bob")
	auditor := &recordingAuditor{}
	svc, _ := newService(store, store, reconcile.WithAuditor(auditor))
	src := threeEach("alice", "bob")

	_, err := svc.Ingest(ctx, src.Files["alice"][0])
	require.NoError(t, err)

	_, err = svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	var want []string
	for _, u := range []string{"alice", "bob"} {
		for _, c := range src.Files[u] {
			want = append(want, c.Filepath)
		}
	}
	assert.ElementsMatch(t, want, auditor.paths)

	_, err = svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.Len(t, auditor.paths, 6)
}

func TestReconcileBatchFallbackAuditsOnlyWrittenRows(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewStore(t, "alice")
	src := threeEach("alice")
	ledger := &testutil.FailingLedger{
		MemoryStore: store,
		FailBatch:   true,
		FailPaths:   map[string]bool{src.Files["alice"][1].Filepath: true},
	}
	auditor := &recordingAuditor{}
	svc, _ := newService(store, ledger, reconcile.WithAuditor(auditor))

	summary, err := svc.ReconcileActive(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []model.AccountResult{{User: "alice", FilesFound: 3, NewFiles: 2, FailedFiles: 1}}, summary.Results)
	assert.Equal(t, []string{src.Files["alice"][0].Filepath, src.Files["alice"][2].Filepath}, auditor.paths)
}
