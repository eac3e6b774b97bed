package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/user"
)

const maxQueryLimit = 100

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotifications(ctx context.Context, notes ...Notification) ([]Notification, error)
		// QueryNotifications returns the user's notifications, newest first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		CountUnread(ctx context.Context, userID string) (int, error)
		// MarkRead marks the user's notifications as read; no ids means all of them.
		// It returns the number of matched ids, or of newly read notifications when no ids are given.
		MarkRead(ctx context.Context, userID string, at time.Time, ids ...string) (int, error)
	}

	// Broker delivers notifications to connected clients as they are created.
	Broker interface {
		Publish(ctx context.Context, note Notification) error
		// Subscribe opens a subscription to the user's notifications.
		// The caller owns the Subscription and must Close it.
		Subscribe(ctx context.Context, userID string) (Subscription, error)
	}

	Subscription interface {
		C() <-chan Notification
		Close() error
	}

	// PublishObserver is told the outcome of every broker publish.
	PublishObserver interface {
		ObservePublish(err error)
	}

	// UserDirectory looks up the recipients' mailboxes.
	UserDirectory interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		// Notify persists the notifications, then publishes & emails them.
		// Only persistence failures are returned.
		Notify(ctx context.Context, notes ...New) error
		Query(ctx context.Context, filter QueryFilter) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, userID string, ids ...string) (int, error)
		Subscribe(ctx context.Context, userID string) (Subscription, error)
	}

	service struct {
		repo     Repository
		broker   Broker
		users    UserDirectory
		mailSvc  core.EmailService
		logger   core.Logger
		observer PublishObserver
		sync     bool
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	broker Broker,
	users UserDirectory,
	mailSvc core.EmailService,
	logger core.Logger,
	observer PublishObserver,
) Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &service{
		repo:     repo,
		broker:   broker,
		users:    users,
		mailSvc:  mailSvc,
		logger:   logger,
		observer: observer,
	}
}

func (svc *service) Notify(ctx context.Context, news ...New) error {
	if len(news) == 0 {
		return nil
	}

	now := time.Now().UTC()
	notes := make([]Notification, 0, len(news))
	emails := make([]New, 0)
	for _, nn := range news {
		if nn.UserID == "" {
			continue
		}
		nn.clean()
		notes = append(notes, Notification{
			UserID:    nn.UserID,
			Title:     nn.Title,
			Message:   nn.Message,
			Link:      nn.Link,
			CreatedAt: now,
		})
		if nn.Email {
			emails = append(emails, nn)
		}
	}
	if len(notes) == 0 {
		return nil
	}

	notes, err := svc.repo.CreateNotifications(ctx, notes...)
	if err != nil {
		return errors.Wrap(err, "creating notifications")
	}

	if svc.sync {
		svc.deliver(context.Background(), notes, emails)
	} else {
		go svc.deliver(context.Background(), notes, emails)
	}
	return nil
}

// deliver publishes & emails already persisted notifications; failures are only logged.
func (svc *service) deliver(ctx context.Context, notes []Notification, emails []New) {
	for _, note := range notes {
		err := svc.broker.Publish(ctx, note)
		svc.observer.ObservePublish(err)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("notification.deliver: publishing to %s: %v", note.UserID, err), err)
		}
	}

	msgs := make([]*core.EmailMessage, 0, len(emails))
	for _, nn := range emails {
		usr, err := svc.users.GetByID(ctx, nn.UserID)
		if err != nil {
			svc.logger.Warn(fmt.Sprintf("notification.deliver: fetching recipient %s: %v", nn.UserID, err), err)
			continue
		}
		addr, ok := usr.Mailbox()
		if !ok || !usr.IsActive {
			continue
		}
		msgs = append(msgs, &core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: addr}},
			Subject:      nn.Title,
			TemplateName: "notification",
			TemplateData: map[string]string{
				"Name":    usr.Name,
				"Title":   nn.Title,
				"Message": nn.Message,
				"Link":    nn.Link,
			},
		})
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
}

func (svc *service) Query(ctx context.Context, filter QueryFilter) ([]Notification, error) {
	filter.Clean()
	return svc.repo.QueryNotifications(ctx, filter)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

func (svc *service) MarkRead(ctx context.Context, userID string, ids ...string) (int, error) {
	n, err := svc.repo.MarkRead(ctx, userID, time.Now().UTC(), ids...)
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 && n == 0 {
		return 0, ErrNotFound
	}
	return n, nil
}

func (svc *service) Subscribe(ctx context.Context, userID string) (Subscription, error) {
	return svc.broker.Subscribe(ctx, userID)
}

type nopObserver struct{}

func (nopObserver) ObservePublish(error) {}
