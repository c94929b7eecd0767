package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/repository"
	"github.com/habibshaikh14/drivesoft-final-round/domain/service"
	"github.com/habibshaikh14/drivesoft-final-round/infrastructure/metrics"
)

// AccountCache caches the rendered account list. Implementations must treat
// failures as misses; the cache never fails a request.
type AccountCache interface {
	GetAll(ctx context.Context) ([]*entity.Account, bool)
	SetAll(ctx context.Context, accounts []*entity.Account)
	Invalidate(ctx context.Context)
}

// SyncService mirrors the IDMS account list into local storage. At most one
// cycle executes at a time; overlapping triggers collapse into a skip.
type SyncService struct {
	accounts repository.AccountRepository
	source   service.AccountSource
	cache    AccountCache // optional
	metrics  *metrics.SyncMetrics
	logger   *zap.Logger

	batchSize int
	syncing   atomic.Bool
}

// NewSyncService creates a new sync service. cache may be nil.
func NewSyncService(
	accounts repository.AccountRepository,
	source service.AccountSource,
	cache AccountCache,
	syncMetrics *metrics.SyncMetrics,
	batchSize int,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		accounts:  accounts,
		source:    source,
		cache:     cache,
		metrics:   syncMetrics,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Sync runs one fetch→normalize→dedup→write cycle under the single-flight
// guard. If a cycle is already running the call is a no-op. Errors are
// contained here: they are logged and counted, never propagated, so a failed
// cycle cannot take down the scheduler. The next trigger is the only retry.
// The return value reports whether this call executed a cycle.
func (s *SyncService) Sync(ctx context.Context) bool {
	if !s.syncing.CompareAndSwap(false, true) {
		s.logger.Info("Sync already in progress, skipping trigger")
		s.metrics.CyclesSkipped.Inc()
		return false
	}
	defer s.syncing.Store(false)

	s.metrics.CyclesStarted.Inc()
	start := time.Now()

	if err := s.runCycle(ctx); err != nil {
		s.metrics.CyclesFailed.Inc()
		s.logger.Error("Sync cycle failed", zap.Error(err))
		return true
	}

	s.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	return true
}

// runCycle executes the pipeline body: fetch, normalize, dedup, batch-write.
func (s *SyncService) runCycle(ctx context.Context) error {
	rows, err := s.source.FetchAccounts(ctx)
	if err != nil {
		return err
	}
	s.metrics.AccountsFetched.Add(float64(len(rows)))

	accounts := make([]*entity.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, NormalizeRow(row))
	}
	accounts = DedupeByAcctID(accounts)

	// Rows without a natural key cannot be checked for existence; drop them
	// before the writer stage.
	kept := accounts[:0]
	dropped := 0
	for _, account := range accounts {
		if !account.HasAcctID() {
			dropped++
			continue
		}
		kept = append(kept, account)
	}
	accounts = kept
	if dropped > 0 {
		s.logger.Warn("Dropped rows without AcctID", zap.Int("dropped", dropped))
	}

	inserted, err := s.saveAccounts(ctx, accounts)
	if inserted > 0 {
		s.metrics.AccountsInserted.Add(float64(inserted))
		if s.cache != nil {
			s.cache.Invalidate(ctx)
		}
	}
	if err != nil {
		return err
	}

	s.logger.Info("Sync cycle completed",
		zap.Int("fetched", len(rows)),
		zap.Int("unique", len(accounts)),
		zap.Int("inserted", inserted),
	)
	return nil
}

// saveAccounts idempotently inserts new accounts in order. Accounts whose
// acct_id already exists are skipped. The batch is flushed on the positional
// index every batchSize records and once more at the end, so earlier flushes
// stay durable if a later write fails; the skip-if-exists check makes
// re-processing the remainder safe on the next cycle.
func (s *SyncService) saveAccounts(ctx context.Context, accounts []*entity.Account) (int, error) {
	batch, err := s.accounts.NewBatch(ctx)
	if err != nil {
		return 0, err
	}
	defer batch.Rollback()

	inserted := 0
	for i, account := range accounts {
		exists, err := batch.ExistsByAcctID(ctx, account.AcctID)
		if err != nil {
			return inserted, err
		}
		if exists {
			continue
		}

		if err := batch.Insert(ctx, account); err != nil {
			// A concurrent writer won the insert race; the row exists now,
			// which is all this engine needs.
			if errors.Is(err, repository.ErrDuplicateAccount) {
				continue
			}
			return inserted, err
		}
		inserted++

		if i%s.batchSize == 0 && i > 0 {
			if err := batch.Flush(ctx); err != nil {
				return inserted, err
			}
		}
	}

	if err := batch.Flush(ctx); err != nil {
		return inserted, err
	}
	return inserted, nil
}
