package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"csrhub/internal/auth"
	"csrhub/internal/model"
	"csrhub/internal/repository"
	"csrhub/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMessageLength = 4000
	// ChatFrameType is the websocket frame type carrying a chat line
	ChatFrameType = "CHAT_MESSAGE"
)

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

type MessageResponse struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	SenderID    string  `json:"sender_id"`
	RecipientID string  `json:"recipient_id"`
	Body        string  `json:"body"`
	ReadAt      *string `json:"read_at"`
	CreatedAt   string  `json:"created_at"`
}

type MessageListResponse struct {
	Items []MessageResponse `json:"items"`
	Total int64             `json:"total"`
}

func toMessageResponse(m *model.Message) MessageResponse {
	return MessageResponse{
		ID:          m.ID.String(),
		ProjectID:   m.ProjectID.String(),
		SenderID:    m.SenderID.String(),
		RecipientID: m.RecipientID.String(),
		Body:        m.Body,
		ReadAt:      formatTimePtr(m.ReadAt),
		CreatedAt:   m.CreatedAt.Format(timeLayout),
	}
}

type MessageService interface {
	ListMessages(ctx context.Context, actor auth.Actor, projectID string, page, limit int) (*MessageListResponse, error)
	SendMessage(ctx context.Context, actor auth.Actor, projectID string, req SendMessageRequest) (*MessageResponse, error)
}

type messageService struct {
	tm       repository.TransactionManager
	messages repository.MessageRepository
	projects repository.ProjectRepository
	parties  *Parties
	notifier Notifier
	pusher   LivePusher
	log      *zap.Logger
}

func NewMessageService(
	tm repository.TransactionManager,
	messages repository.MessageRepository,
	projects repository.ProjectRepository,
	parties *Parties,
	notifier Notifier,
	pusher LivePusher,
	log *zap.Logger,
) MessageService {
	return &messageService{
		tm:       tm,
		messages: messages,
		projects: projects,
		parties:  parties,
		notifier: notifier,
		pusher:   pusher,
		log:      log,
	}
}

func (s *messageService) project(ctx context.Context, actor auth.Actor, projectID string) (*model.Project, error) {
	pid, err := parseID(projectID, "project")
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetByID(ctx, pid)
	if err != nil {
		return nil, loadErr(err, "project")
	}
	if err := s.parties.RequireProjectMember(ctx, actor, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *messageService) ListMessages(ctx context.Context, actor auth.Actor, projectID string, page, limit int) (*MessageListResponse, error) {
	project, err := s.project(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 50
	}
	msgs, total, err := s.messages.ListByProject(ctx, project.ID, page, limit)
	if err != nil {
		return nil, apperror.Internal(err, "failed to fetch messages")
	}
	items := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, toMessageResponse(&msgs[i]))
	}
	return &MessageListResponse{Items: items, Total: total}, nil
}

// SendMessage delivers a chat line between the project's NGO and its funding corporate
func (s *messageService) SendMessage(ctx context.Context, actor auth.Actor, projectID string, req SendMessageRequest) (*MessageResponse, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apperror.Validation("message body is required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return nil, apperror.Validation("message is longer than %d characters", maxMessageLength)
	}

	project, err := s.project(ctx, actor, projectID)
	if err != nil {
		return nil, err
	}

	var recipient uuid.UUID
	var recipientRole, senderName string
	switch {
	case actor.IsNGO():
		if project.Corporate == nil {
			return nil, apperror.Conflict("project has no funding corporate yet")
		}
		recipient, recipientRole, senderName = project.Corporate.UserID, model.RoleCorporate, ngoName(project)
	case actor.IsCorporate():
		if project.NGO == nil {
			return nil, apperror.NotFound("NGO not found")
		}
		recipient, recipientRole, senderName = project.NGO.UserID, model.RoleNGO, project.Corporate.CompanyName
	default:
		return nil, apperror.Forbidden("only the project's NGO and funding corporate can chat")
	}

	msg := &model.Message{
		ProjectID:   project.ID,
		SenderID:    actor.UserID,
		RecipientID: recipient,
		Body:        body,
	}
	err = s.tm.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.messages.Create(txCtx, msg); err != nil {
			return apperror.Internal(err, "failed to save message")
		}
		if err := s.notifier.Notify(txCtx, NotificationInput{
			UserID:   recipient,
			UserRole: recipientRole,
			Type:     model.NotifyNewMessage,
			Title:    fmt.Sprintf("New message about %s", project.Title),
			Message:  fmt.Sprintf("%s: %s", senderName, preview(body)),
			Link:     fmt.Sprintf("/projects/%s/messages", project.ID),
			Metadata: map[string]interface{}{
				"project_id": project.ID.String(),
				"message_id": msg.ID.String(),
			},
		}); err != nil {
			return err
		}
		repository.AfterCommit(txCtx, func() {
			if s.pusher == nil {
				return
			}
			if err := s.pusher.SendToUser(recipient, ChatFrameType, toMessageResponse(msg)); err != nil {
				s.log.Debug("chat push skipped", zap.String("recipient", recipient.String()), zap.Error(err))
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := toMessageResponse(msg)
	return &res, nil
}

func preview(body string) string {
	const n = 80
	if utf8.RuneCountInString(body) <= n {
		return body
	}
	return string([]rune(body)[:n]) + "..."
}
