package support

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/printvend/internal/common"
	"serotonyl.ru/printvend/internal/notify"
)

// maxMessageLen caps stored message text, in runes.
const maxMessageLen = 4000

type Store interface {
	Insert(ctx context.Context, t *Ticket) error
}

type Service struct {
	repo     Store
	notifier notify.Notifier
	now      func() time.Time
}

func NewService(repo Store, n notify.Notifier) *Service {
	if n == nil {
		n = notify.Nop{}
	}
	return &Service{repo: repo, notifier: n, now: time.Now}
}

// Submit stores the ticket and pings the staff chat. A failed notification
// is logged; the ticket is already saved.
func (s *Service) Submit(ctx context.Context, userID, orderID, message string) (*Ticket, error) {
	userID = strings.TrimSpace(userID)
	message = strings.TrimSpace(message)
	if userID == "" || message == "" {
		return nil, common.ErrInvalidTicket
	}
	if r := []rune(message); len(r) > maxMessageLen {
		message = string(r[:maxMessageLen])
	}

	t := &Ticket{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		CreatedAt: s.now(),
	}
	if id := strings.TrimSpace(orderID); id != "" {
		t.OrderID = &id
	}

	if err := s.repo.Insert(ctx, t); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"ticket": t.ID, "user_id": userID}).Info("support ticket created")
	if err := s.notifier.Notify(ctx, formatTicket(t)); err != nil {
		log.WithError(err).WithField("ticket", t.ID).Warn("failed to notify staff")
	}
	return t, nil
}

func formatTicket(t *Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New support ticket %s\n", t.ID)
	fmt.Fprintf(&b, "User: %s\n", t.UserID)
	if t.OrderID != nil {
		fmt.Fprintf(&b, "Order: %s\n", *t.OrderID)
	}
	b.WriteString("\n")
	b.WriteString(t.Message)
	return b.String()
}
