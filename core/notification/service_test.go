package notification_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
	"github.com/trezcool/skripsi/core/user"
	emailsvc "github.com/trezcool/skripsi/services/email"
	"github.com/trezcool/skripsi/services/realtime"
	inmemdb "github.com/trezcool/skripsi/storage/database/inmem"
)

func TestMain(m *testing.M) {
	core.ParseEmailTemplates(core.NewNopLogger(), true)
	os.Exit(m.Run())
}

type publishRecorder struct {
	mu     sync.Mutex
	ok     int
	failed int
}

func (r *publishRecorder) ObservePublish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
	} else {
		r.ok++
	}
}

type failingBroker struct {
	notification.Broker
}

func (failingBroker) Publish(context.Context, notification.Notification) error {
	return errors.New("broker down")
}

type setup struct {
	svc      notification.Service
	mailSvc  *emailsvc.ConsoleService
	observer *publishRecorder
	budi     user.User
	sari     user.User
}

func newSetup(t *testing.T, broker notification.Broker) setup {
	t.Helper()
	ctx := context.Background()
	conf := core.NewTestConfig()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)

	budi, err := usrRepo.CreateUser(ctx, user.User{Name: "Budi", Username: "budi", Email: "budi@kampus.ac.id", IsActive: true, Roles: []string{user.RoleStudent}})
	require.NoError(t, err)
	sari, err := usrRepo.CreateUser(ctx, user.User{Name: "Sari", Username: "sari", IsActive: true, Roles: []string{user.RoleLecturer}})
	require.NoError(t, err)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	observer := new(publishRecorder)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	svc := notification.NewServiceMock(inmemdb.NewNotificationRepository(db), broker, usrSvc, mailSvc, observer)
	return setup{svc: svc, mailSvc: mailSvc, observer: observer, budi: budi, sari: sari}
}

func TestService_Notify(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewLocalBroker()
	s := newSetup(t, broker)

	sub, err := s.svc.Subscribe(ctx, s.budi.ID)
	require.NoError(t, err)
	defer sub.Close()

	err = s.svc.Notify(ctx,
		notification.New{UserID: s.budi.ID, Title: " Proposal diterima ", Message: "Selamat", Link: "/proposals/1", Email: true},
		notification.New{UserID: s.sari.ID, Title: "Bimbingan baru", Email: true}, // no email address
		notification.New{Title: "nobody"},
	)
	require.NoError(t, err)

	select {
	case note := <-sub.C():
		assert.Equal(t, "Proposal diterima", note.Title)
		assert.NotEmpty(t, note.ID)
		assert.False(t, note.IsRead)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not published")
	}

	sent := s.mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "budi@kampus.ac.id", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "/proposals/1")

	assert.Equal(t, 2, s.observer.ok)
	assert.Equal(t, 0, s.observer.failed)

	n, err := s.svc.UnreadCount(ctx, s.sari.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoError(t, s.svc.Notify(ctx))
}

func TestService_NotifyBrokerFailure(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, failingBroker{Broker: realtime.NewLocalBroker()})

	err := s.svc.Notify(ctx, notification.New{UserID: s.budi.ID, Title: "Jadwal seminar hasil"})
	require.NoError(t, err)
	assert.Equal(t, 1, s.observer.failed)

	// still persisted
	notes, err := s.svc.Query(ctx, notification.QueryFilter{UserID: s.budi.ID})
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestService_QueryAndMarkRead(t *testing.T) {
	ctx := context.Background()
	s := newSetup(t, realtime.NewLocalBroker())

	for _, title := range []string{"satu", "dua", "tiga"} {
		require.NoError(t, s.svc.Notify(ctx, notification.New{UserID: s.budi.ID, Title: title}))
	}
	require.NoError(t, s.svc.Notify(ctx, notification.New{UserID: s.sari.ID, Title: "lain"}))

	notes, err := s.svc.Query(ctx, notification.QueryFilter{UserID: s.budi.ID})
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, "tiga", notes[0].Title) // newest first

	notes, err = s.svc.Query(ctx, notification.QueryFilter{UserID: s.budi.ID, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	n, err := s.svc.MarkRead(ctx, s.budi.ID, notes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.svc.MarkRead(ctx, s.sari.ID, notes[1].ID) // not hers
	assert.Equal(t, notification.ErrNotFound, errors.Cause(err))

	unread, err := s.svc.Query(ctx, notification.QueryFilter{UserID: s.budi.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	n, err = s.svc.MarkRead(ctx, s.budi.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := s.svc.UnreadCount(ctx, s.budi.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = s.svc.UnreadCount(ctx, s.sari.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
