package service

import (
	"context"
	"encoding/json"
	"time"

	"csrhub/internal/auth"
	"csrhub/internal/mailer"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// NotificationInput describes one event for one recipient
type NotificationInput struct {
	UserID   uuid.UUID
	UserRole string
	Type     string
	Title    string
	Message  string
	Link     string
	Metadata map[string]interface{}
}

// Notifier persists an event inside the caller's transaction and delivers it
// live after commit.
type Notifier interface {
	Notify(ctx context.Context, in NotificationInput) error
}

// LivePusher pushes a frame to a connected user
type LivePusher interface {
	SendToUser(userID uuid.UUID, msgType string, payload interface{}) error
}

type NotificationListResponse struct {
	Items  []model.Notification `json:"items"`
	Total  int64                `json:"total"`
	Unread int64                `json:"unread"`
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, actor auth.Actor, unreadOnly bool, page, limit int) (*NotificationListResponse, error)
	UnreadCount(ctx context.Context, actor auth.Actor) (int64, error)
	MarkRead(ctx context.Context, actor auth.Actor, id string) error
	MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	users  repository.UserRepository
	pusher LivePusher
	mail   mailer.Mailer
	pool   *ants.Pool
	log    *zap.Logger
}

// NewNotificationService wires persistence with live delivery. pusher, mail and
// pool may be nil; without a pool delivery happens inline.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, pusher LivePusher, mail mailer.Mailer, pool *ants.Pool, log *zap.Logger) NotificationService {
	return &notificationService{repo: repo, users: users, pusher: pusher, mail: mail, pool: pool, log: log}
}

func (s *notificationService) Notify(ctx context.Context, in NotificationInput) error {
	if in.UserID == uuid.Nil {
		return nil
	}

	var meta datatypes.JSON
	if len(in.Metadata) > 0 {
		b, err := json.Marshal(in.Metadata)
		if err != nil {
			return apperror.Internal(err, "failed to encode notification metadata")
		}
		meta = datatypes.JSON(b)
	}

	n := &model.Notification{
		UserID:   in.UserID,
		UserRole: in.UserRole,
		Type:     in.Type,
		Title:    in.Title,
		Message:  in.Message,
		Link:     in.Link,
		Metadata: meta,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return apperror.Internal(err, "failed to create notification")
	}

	repository.AfterCommit(ctx, func() { s.dispatch(*n) })
	return nil
}

func (s *notificationService) dispatch(n model.Notification) {
	deliver := func() {
		if s.pusher != nil {
			if err := s.pusher.SendToUser(n.UserID, n.Type, n); err != nil {
				s.log.Warn("live push failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
			}
		}
		if s.mail == nil || s.users == nil {
			return
		}
		if _, noop := s.mail.(mailer.Noop); noop {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		user, err := s.users.GetByID(ctx, n.UserID)
		if err != nil {
			s.log.Warn("notification recipient lookup failed", zap.String("user_id", n.UserID.String()), zap.Error(err))
			return
		}
		if err := s.mail.Send(ctx, user.Email, n.Title, n.Message); err != nil {
			s.log.Warn("notification email failed", zap.String("notification_id", n.ID.String()), zap.Error(err))
		}
	}

	if s.pool == nil {
		deliver()
		return
	}
	if err := s.pool.Submit(deliver); err != nil {
		s.log.Error("failed to queue notification delivery", zap.Error(err))
	}
}

func (s *notificationService) List(ctx context.Context, actor auth.Actor, unreadOnly bool, page, limit int) (*NotificationListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	items, total, err := s.repo.List(ctx, actor.UserID, unreadOnly, page, limit)
	if err != nil {
		return nil, apperror.Internal(err, "failed to fetch notifications")
	}
	unread, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to count notifications")
	}
	if items == nil {
		items = []model.Notification{}
	}
	return &NotificationListResponse{Items: items, Total: total, Unread: unread}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, actor auth.Actor) (int64, error) {
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, apperror.Internal(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead is idempotent for notifications the actor owns
func (s *notificationService) MarkRead(ctx context.Context, actor auth.Actor, id string) error {
	notifID, err := parseID(id, "notification")
	if err != nil {
		return err
	}
	n, err := s.repo.GetByID(ctx, notifID)
	if err != nil {
		return loadErr(err, "notification")
	}
	if n.UserID != actor.UserID {
		// do not reveal other users' notifications
		return apperror.NotFound("notification not found")
	}
	if n.IsRead {
		return nil
	}
	if _, err := s.repo.MarkRead(ctx, notifID, actor.UserID, time.Now()); err != nil {
		return apperror.Internal(err, "failed to mark notification as read")
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.UserID, time.Now())
	if err != nil {
		return 0, apperror.Internal(err, "failed to mark notifications as read")
	}
	return n, nil
}
