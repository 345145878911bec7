package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store is the read side of Repository.
type Store interface {
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)
	History(ctx context.Context, userID string, limit int) ([]Transaction, error)
	LedgerSum(ctx context.Context, userID string) (decimal.Decimal, error)
}

type Service struct {
	repo         Store
	historyLimit int
}

func NewService(repo Store, historyLimit int) *Service {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &Service{repo: repo, historyLimit: historyLimit}
}

func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	return s.repo.Balance(ctx, userID)
}

// History returns the most recent transactions first.
func (s *Service) History(ctx context.Context, userID string) ([]Transaction, error) {
	return s.repo.History(ctx, userID, s.historyLimit)
}

// Audit checks that the stored balance equals the ledger sum.
func (s *Service) Audit(ctx context.Context, userID string) (Audit, error) {
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		return Audit{}, err
	}
	sum, err := s.repo.LedgerSum(ctx, userID)
	if err != nil {
		return Audit{}, err
	}
	return Audit{
		UserID:     userID,
		Balance:    balance,
		LedgerSum:  sum,
		Consistent: balance.Equal(sum),
	}, nil
}
