package profiles

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/printvend/internal/common"
)

type Store interface {
	Upsert(ctx context.Context, id, email, fullName string) (*Profile, error)
	Get(ctx context.Context, id string) (*Profile, error)
}

// WalletOpener creates the zero balance of a new user.
type WalletOpener interface {
	EnsureAccount(ctx context.Context, userID string) error
}

type Service struct {
	repo    Store
	wallets WalletOpener
}

func NewService(repo Store, wallets WalletOpener) *Service {
	return &Service{repo: repo, wallets: wallets}
}

// Ensure is called on sign-in: it creates or refreshes the profile and makes
// sure the user has a wallet.
func (s *Service) Ensure(ctx context.Context, userID, email, fullName string) (*Profile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, common.ErrInvalidProfile
	}
	p, err := s.repo.Upsert(ctx, userID, strings.TrimSpace(email), strings.TrimSpace(fullName))
	if err != nil {
		return nil, err
	}
	if err := s.wallets.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	return s.repo.Get(ctx, userID)
}

// RoleOf returns the role of userID. Users without a profile are plain users.
func (s *Service) RoleOf(ctx context.Context, userID string) (Role, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, common.ErrProfileNotFound) {
		log.WithField("user_id", userID).Debug("no profile, pricing as USER")
		return RoleUser, nil
	}
	if err != nil {
		return "", err
	}
	return p.Role, nil
}

// IsVIP reports whether userID prints for free.
func (s *Service) IsVIP(ctx context.Context, userID string) (bool, error) {
	role, err := s.RoleOf(ctx, userID)
	return role == RoleVIP, err
}
