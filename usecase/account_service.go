package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/habibshaikh14/drivesoft-final-round/domain/entity"
	"github.com/habibshaikh14/drivesoft-final-round/domain/repository"
)

// AccountService serves mirrored accounts to the API layer.
type AccountService struct {
	accounts repository.AccountRepository
	sync     *SyncService
	cache    AccountCache // optional
	logger   *zap.Logger
}

// NewAccountService creates a new account service. cache may be nil.
func NewAccountService(
	accounts repository.AccountRepository,
	sync *SyncService,
	cache AccountCache,
	logger *zap.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		sync:     sync,
		cache:    cache,
		logger:   logger,
	}
}

// FetchAll returns every mirrored account. With syncFirst set, a sync cycle
// runs before the read; if another cycle is already in flight the request
// falls through to the read immediately rather than waiting.
func (s *AccountService) FetchAll(ctx context.Context, syncFirst bool) ([]*entity.Account, error) {
	if syncFirst {
		s.sync.Sync(ctx)
	} else if s.cache != nil {
		if accounts, ok := s.cache.GetAll(ctx); ok {
			return accounts, nil
		}
	}

	accounts, err := s.accounts.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.SetAll(ctx, accounts)
	}
	return accounts, nil
}
