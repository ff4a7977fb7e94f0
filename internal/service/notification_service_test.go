package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"csrhub/internal/auth"
	"csrhub/internal/model"
	"csrhub/pkg/apperror"
)

type capturedMail struct {
	mu   sync.Mutex
	sent []string
	done chan struct{}
}

func (m *capturedMail) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to+"|"+subject)
	m.mu.Unlock()
	if m.done != nil {
		m.done <- struct{}{}
	}
	return nil
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	repo := new(MockNotificationRepository)
	pusher := &fakePusher{}
	svc := NewNotificationService(repo, nil, pusher, nil, nil, zap.NewNop())
	userID := uuid.New()

	repo.On("Create", mock.Anything, mock.MatchedBy(func(n *model.Notification) bool {
		return n.UserID == userID && n.Type == model.NotifyTrancheApproved && string(n.Metadata) == `{"amount":40000}`
	})).Return(nil).Once()

	err := svc.Notify(context.Background(), NotificationInput{
		UserID:   userID,
		UserRole: model.RoleNGO,
		Type:     model.NotifyTrancheApproved,
		Title:    "Tranche approved",
		Message:  "Tranche 1 was approved",
		Metadata: map[string]interface{}{"amount": 40000},
	})
	require.NoError(t, err)

	repo.AssertExpectations(t)
	assert.Equal(t, []string{userID.String() + ":" + model.NotifyTrancheApproved}, pusher.frames)
}

func TestNotifySkipsAnonymousRecipient(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewNotificationService(repo, nil, nil, nil, nil, zap.NewNop())

	require.NoError(t, svc.Notify(context.Background(), NotificationInput{Type: model.NotifyNewMessage}))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestNotifyEmailsThroughPool(t *testing.T) {
	repo := new(MockNotificationRepository)
	users := new(MockUserRepository)
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	mail := &capturedMail{done: make(chan struct{}, 1)}
	svc := NewNotificationService(repo, users, nil, mail, pool, zap.NewNop())
	user := &model.User{ID: uuid.New(), Email: "ngo@example.org"}
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	require.NoError(t, svc.Notify(context.Background(), NotificationInput{UserID: user.ID, Type: model.NotifyDocumentRequested, Title: "Document requested"}))

	select {
	case <-mail.done:
	case <-time.After(2 * time.Second):
		t.Fatal("email was not delivered")
	}
	mail.mu.Lock()
	defer mail.mu.Unlock()
	assert.Equal(t, []string{"ngo@example.org|Document requested"}, mail.sent)
}

func TestListNotifications(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewNotificationService(repo, nil, nil, nil, nil, zap.NewNop())
	actor := auth.Actor{UserID: uuid.New(), Role: model.RoleCorporate}
	repo.On("List", mock.Anything, actor.UserID, true, 1, 20).Return([]model.Notification(nil), int64(0), nil)
	repo.On("CountUnread", mock.Anything, actor.UserID).Return(int64(3), nil)

	res, err := svc.List(context.Background(), actor, true, 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, res.Items)
	assert.Equal(t, int64(3), res.Unread)
}

func TestMarkReadOwnership(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewNotificationService(repo, nil, nil, nil, nil, zap.NewNop())
	owner := auth.Actor{UserID: uuid.New(), Role: model.RoleNGO}
	stranger := auth.Actor{UserID: uuid.New(), Role: model.RoleNGO}

	unread := &model.Notification{ID: uuid.New(), UserID: owner.UserID}
	read := &model.Notification{ID: uuid.New(), UserID: owner.UserID, IsRead: true}
	repo.On("GetByID", mock.Anything, unread.ID).Return(unread, nil)
	repo.On("GetByID", mock.Anything, read.ID).Return(read, nil)
	repo.On("MarkRead", mock.Anything, unread.ID, owner.UserID, mock.AnythingOfType("time.Time")).Return(int64(1), nil).Once()

	require.NoError(t, svc.MarkRead(context.Background(), owner, unread.ID.String()))
	require.NoError(t, svc.MarkRead(context.Background(), owner, read.ID.String()))

	err := svc.MarkRead(context.Background(), stranger, unread.ID.String())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	repo.AssertExpectations(t)
}

func TestMarkAllRead(t *testing.T) {
	repo := new(MockNotificationRepository)
	svc := NewNotificationService(repo, nil, nil, nil, nil, zap.NewNop())
	actor := auth.Actor{UserID: uuid.New(), Role: model.RoleNGO}
	repo.On("MarkAllRead", mock.Anything, actor.UserID, mock.AnythingOfType("time.Time")).Return(int64(4), nil)

	n, err := svc.MarkAllRead(context.Background(), actor)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
