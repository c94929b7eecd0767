package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/repository"
	"github.com/habibshaikh14/drivesoft-final-round/domain/service"
	"github.com/habibshaikh14/drivesoft-final-round/infrastructure/metrics"
)

// fakeSource serves a fixed set of rows. An optional release channel makes
// FetchAccounts block until the channel is closed.
type fakeSource struct {
	rows    []service.AccountRow
	err     error
	release chan struct{}

	mu      sync.Mutex
	fetches int
}

func (f *fakeSource) Authenticate(ctx context.Context) (string, error) {
	return "token", nil
}

func (f *fakeSource) FetchAccounts(ctx context.Context) ([]service.AccountRow, error) {
	f.mu.Lock()
	f.fetches++
	f.mu.Unlock()

	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeSource) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

// memoryRepo is an in-memory AccountRepository with transactional batches.
// Flush commits pending rows and records how many rows each flush carried.
// Acct IDs listed in racedAcctIDs model a concurrent writer: the existence
// check does not see them, but Insert reports them as duplicates while
// leaving the batch usable, matching the conflict-tolerant insert contract.
type memoryRepo struct {
	mu           sync.Mutex
	committed    map[string]*entity.Account
	order        []string
	flushSizes   []int
	racedAcctIDs map[string]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{committed: make(map[string]*entity.Account)}
}

func (r *memoryRepo) ExistsByAcctID(ctx context.Context, acctID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.committed[acctID]
	return ok, nil
}

func (r *memoryRepo) ListAll(ctx context.Context) ([]*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Account, 0, len(r.order))
	for _, acctID := range r.order {
		out = append(out, r.committed[acctID])
	}
	return out, nil
}

func (r *memoryRepo) CountAll(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.committed)), nil
}

func (r *memoryRepo) NewBatch(ctx context.Context) (repository.AccountBatch, error) {
	return &memoryBatch{repo: r, pending: make(map[string]*entity.Account)}, nil
}

type memoryBatch struct {
	repo         *memoryRepo
	pending      map[string]*entity.Account
	pendingOrder []string
}

func (b *memoryBatch) ExistsByAcctID(ctx context.Context, acctID string) (bool, error) {
	if _, ok := b.pending[acctID]; ok {
		return true, nil
	}
	return b.repo.ExistsByAcctID(ctx, acctID)
}

func (b *memoryBatch) Insert(ctx context.Context, account *entity.Account) error {
	if b.repo.racedAcctIDs[account.AcctID] {
		return repository.ErrDuplicateAccount
	}
	if exists, _ := b.ExistsByAcctID(ctx, account.AcctID); exists {
		return repository.ErrDuplicateAccount
	}
	b.pending[account.AcctID] = account
	b.pendingOrder = append(b.pendingOrder, account.AcctID)
	return nil
}

func (b *memoryBatch) Flush(ctx context.Context) error {
	b.repo.mu.Lock()
	defer b.repo.mu.Unlock()
	b.repo.flushSizes = append(b.repo.flushSizes, len(b.pendingOrder))
	for _, acctID := range b.pendingOrder {
		b.repo.committed[acctID] = b.pending[acctID]
		b.repo.order = append(b.repo.order, acctID)
	}
	b.pending = make(map[string]*entity.Account)
	b.pendingOrder = nil
	return nil
}

func (b *memoryBatch) Rollback() error {
	b.pending = make(map[string]*entity.Account)
	b.pendingOrder = nil
	return nil
}

func newTestSyncService(repo repository.AccountRepository, source service.AccountSource, batchSize int) *SyncService {
	m := metrics.NewSyncMetrics("test", prometheus.NewRegistry())
	return NewSyncService(repo, source, nil, m, batchSize, zap.NewNop())
}

func TestSyncPersistsNormalizedAccounts(t *testing.T) {
	source := &fakeSource{rows: []service.AccountRow{
		{
			AcctID:             "A1",
			ContractSalesPrice: "12000.00",
			ContractDate:       "01/15/2024 12:00:00 AM",
			Borrower1LastName:  "Doe",
		},
		{
			AcctID:             "A2",
			ContractSalesPrice: "oops",
			ContractDate:       "oops",
		},
	}}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	ran := svc.Sync(context.Background())
	assert.True(t, ran)

	accounts, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	a1 := accounts[0]
	assert.Equal(t, "A1", a1.AcctID)
	require.True(t, a1.ContractSalesPrice.Valid)
	assert.Equal(t, "12000", a1.ContractSalesPrice.Decimal.String())
	require.NotNil(t, a1.ContractDate)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), *a1.ContractDate)

	a2 := accounts[1]
	assert.Equal(t, "A2", a2.AcctID)
	assert.False(t, a2.ContractSalesPrice.Valid)
	assert.Nil(t, a2.ContractDate)
}

func TestSyncIsIdempotentAcrossCycles(t *testing.T) {
	source := &fakeSource{rows: []service.AccountRow{
		{AcctID: "A1", ContractSalesPrice: "100"},
		{AcctID: "A2", ContractSalesPrice: "200"},
	}}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	svc.Sync(context.Background())
	svc.Sync(context.Background())

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 2, source.fetchCount())
}

func TestSyncSkipsDuplicateRowsWithinOneFetch(t *testing.T) {
	source := &fakeSource{rows: []service.AccountRow{
		{AcctID: "A1", AcctType: "first"},
		{AcctID: "A1", AcctType: "second"},
		{AcctID: "A2"},
	}}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	svc.Sync(context.Background())

	accounts, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.NotNil(t, accounts[0].AcctType)
	assert.Equal(t, "first", *accounts[0].AcctType)
}

func TestSyncDropsRowsWithoutAcctID(t *testing.T) {
	source := &fakeSource{rows: []service.AccountRow{
		{AcctID: ""},
		{AcctID: "A1"},
	}}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	svc.Sync(context.Background())

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSyncSingleFlight(t *testing.T) {
	release := make(chan struct{})
	source := &fakeSource{
		rows:    []service.AccountRow{{AcctID: "A1"}},
		release: release,
	}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	done := make(chan bool)
	go func() {
		done <- svc.Sync(context.Background())
	}()

	// Wait until the first cycle is inside FetchAccounts.
	require.Eventually(t, func() bool {
		return source.fetchCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Overlapping trigger collapses into a skip.
	assert.False(t, svc.Sync(context.Background()))

	close(release)
	assert.True(t, <-done)
	assert.Equal(t, 1, source.fetchCount())
}

func TestSyncFlushCadence(t *testing.T) {
	rows := make([]service.AccountRow, 65)
	for i := range rows {
		rows[i] = service.AccountRow{AcctID: "A" + string(rune('0'+i/10)) + string(rune('0'+i%10))}
	}
	source := &fakeSource{rows: rows}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	svc.Sync(context.Background())

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(65), count)

	// Mid-sequence flushes fire on positional index 30 and 60, the final
	// flush carries the remainder.
	assert.Equal(t, []int{31, 30, 4}, repo.flushSizes)
}

func TestSyncContainsSourceFailure(t *testing.T) {
	source := &fakeSource{err: &service.FetchError{Message: "boom"}}
	repo := newMemoryRepo()
	svc := newTestSyncService(repo, source, 30)

	// The cycle runs and fails internally; the failure never propagates.
	assert.True(t, svc.Sync(context.Background()))

	count, err := repo.CountAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// The guard is released for the next trigger.
	assert.True(t, svc.Sync(context.Background()))
}

func TestSyncContinuesPastInsertRace(t *testing.T) {
	repo := newMemoryRepo()
	// A2 is persisted by a concurrent writer between the existence check and
	// the insert: the check misses it, the insert reports a duplicate.
	repo.racedAcctIDs = map[string]bool{"A2": true}
	source := &fakeSource{rows: []service.AccountRow{
		{AcctID: "A1"},
		{AcctID: "A2"},
		{AcctID: "A3"},
	}}
	svc := newTestSyncService(repo, source, 30)

	assert.True(t, svc.Sync(context.Background()))

	// The raced row is skipped, the cycle survives, and rows after it are
	// still persisted by the same batch.
	accounts, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "A1", accounts[0].AcctID)
	assert.Equal(t, "A3", accounts[1].AcctID)
	assert.Equal(t, []int{2}, repo.flushSizes)
}
