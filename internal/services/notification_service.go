package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Goodness5/Vortexis-Backend/internal/models"
	apperrors "github.com/Goodness5/Vortexis-Backend/pkg/errors"
	"github.com/Goodness5/Vortexis-Backend/pkg/logger"
	"github.com/Goodness5/Vortexis-Backend/pkg/mail"
	"github.com/Goodness5/Vortexis-Backend/pkg/metrics"
)

// Notification categories.
const (
	CategoryTeam         = "team"
	CategoryAccount      = "account"
	CategoryOrganization = "organization"
	CategoryHackathon    = "hackathon"
)

// Notification priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// NotificationRequest describes a message to a single user. Email and InApp
// select the delivery channels.
type NotificationRequest struct {
	UserID     string
	Title      string
	Body       string
	Category   string
	Priority   string
	ActionURL  string
	ActionText string
	Data       map[string]any
	Email      bool
	InApp      bool
}

// NotificationSender delivers notifications without reporting failures to the caller.
type NotificationSender interface {
	Send(ctx context.Context, req NotificationRequest)
}

// DirectMailer sends plain email to addresses that may not have an account.
type DirectMailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID         string         `json:"id"`
	Category   string         `json:"category"`
	Priority   string         `json:"priority"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	ActionURL  string         `json:"action_url,omitempty"`
	ActionText string         `json:"action_text,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	IsRead     bool           `json:"is_read"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

const defaultEmailTimeout = 30 * time.Second

// NotificationService stores in-app notifications and mirrors them by email.
// Emails are sent in the background; Wait drains them.
type NotificationService struct {
	db           *gorm.DB
	mailer       mail.Mailer
	now          func() time.Time
	log          *zap.Logger
	emailTimeout time.Duration
	outbox       sync.WaitGroup
}

// NewNotificationService constructs a NotificationService. mailer may be nil,
// in which case email delivery is skipped.
func NewNotificationService(db *gorm.DB, mailer mail.Mailer) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	return &NotificationService{
		db:     db,
		mailer:       mailer,
		now:          utcClock,
		log:          logger.WithModule("notifications"),
		emailTimeout: defaultEmailTimeout,
	}, nil
}

// Send implements NotificationSender. Every failure is logged and discarded.
func (s *NotificationService) Send(ctx context.Context, req NotificationRequest) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return
	}

	if req.InApp {
		if err := s.create(ctx, userID, req); err != nil {
			metrics.DeliveryFailures.WithLabelValues("in_app").Inc()
			s.log.Warn("in-app notification failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	if req.Email && s.mailer != nil {
		msg, err := s.emailMessage(ctx, userID, req)
		if err != nil {
			s.emailFailed(userID, err)
			return
		}
		s.outbox.Add(1)
		go func() {
			defer s.outbox.Done()
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.emailTimeout)
			defer cancel()
			if err := s.mailer.Send(sendCtx, msg); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
				s.emailFailed(userID, err)
			}
		}()
	}
}

// Wait blocks until every queued notification email has been attempted.
func (s *NotificationService) Wait() {
	s.outbox.Wait()
}

func (s *NotificationService) emailFailed(userID string, err error) {
	metrics.DeliveryFailures.WithLabelValues("email").Inc()
	s.log.Warn("notification email failed", zap.String("user_id", userID), zap.Error(err))
}

func (s *NotificationService) create(ctx context.Context, userID string, req NotificationRequest) error {
	notification := models.Notification{
		UserID:     userID,
		Category:   defaultIfEmpty(req.Category, CategoryAccount),
		Priority:   defaultIfEmpty(req.Priority, PriorityNormal),
		Title:      strings.TrimSpace(req.Title),
		Message:    strings.TrimSpace(req.Body),
		ActionURL:  strings.TrimSpace(req.ActionURL),
		ActionText: strings.TrimSpace(req.ActionText),
	}
	if req.Data != nil {
		data, err := json.Marshal(req.Data)
		if err != nil {
			return fmt.Errorf("marshal data: %w", err)
		}
		notification.Data = datatypes.JSON(data)
	}
	return s.db.WithContext(ctx).Create(&notification).Error
}

func (s *NotificationService) emailMessage(ctx context.Context, userID string, req NotificationRequest) (mail.Message, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, "id = ?", userID).Error; err != nil {
		return mail.Message{}, fmt.Errorf("load recipient: %w", err)
	}

	body := strings.TrimSpace(req.Body)
	if req.ActionURL != "" {
		label := defaultIfEmpty(req.ActionText, "Open")
		body = fmt.Sprintf("%s\n\n%s: %s\n", body, label, req.ActionURL)
	}
	return mail.Message{
		To:      []string{user.Email},
		Subject: req.Title,
		Body:    body,
	}, nil
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewValidation("user id is required")
	}

	if limit <= 0 || limit > 100 {
		limit = 25
	}

	query := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("notification not found")
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	if !notification.IsRead {
		now := s.now()
		if err := s.db.WithContext(ctx).Model(&notification).
			Updates(map[string]any{
				"is_read": true,
				"read_at": now,
			}).Error; err != nil {
			return nil, fmt.Errorf("notification service: mark read: %w", err)
		}
		notification.IsRead = true
		notification.ReadAt = &now
	}

	dto := mapNotification(notification)
	return &dto, nil
}

// PurgeRead deletes read notifications older than retentionDays.
func (s *NotificationService) PurgeRead(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)
	if retentionDays <= 0 {
		return 0, errors.New("notification service: retentionDays must be positive")
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	result := s.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&models.Notification{})
	if result.Error != nil {
		return 0, fmt.Errorf("notification service: purge read: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         row.ID,
		Category:   row.Category,
		Priority:   defaultIfEmpty(row.Priority, PriorityNormal),
		Title:      row.Title,
		Message:    row.Message,
		ActionURL:  row.ActionURL,
		ActionText: row.ActionText,
		Data:       decodeJSON(row.Data),
		IsRead:     row.IsRead,
		ReadAt:     row.ReadAt,
		CreatedAt:  row.CreatedAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// MailDirectMailer adapts a mail.Mailer to DirectMailer.
type MailDirectMailer struct {
	mailer mail.Mailer
}

// NewDirectMailer wraps mailer. A nil mailer drops every message.
func NewDirectMailer(mailer mail.Mailer) *MailDirectMailer {
	return &MailDirectMailer{mailer: mailer}
}

// Send delivers a plain-text message to a single address.
func (m *MailDirectMailer) Send(ctx context.Context, to, subject, body string) error {
	if m == nil || m.mailer == nil {
		return mail.ErrSMTPDisabled
	}
	return m.mailer.Send(ensureContext(ctx), mail.Message{
		To:      []string{to},
		Subject: subject,
		Body:    body,
	})
}

// sendDirect delivers through mailer and swallows failures after logging them.
func sendDirect(ctx context.Context, mailer DirectMailer, log *zap.Logger, to, subject, body string) {
	if mailer == nil {
		return
	}
	if err := mailer.Send(ctx, to, subject, body); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		metrics.DeliveryFailures.WithLabelValues("email").Inc()
		log.Warn("direct email failed", zap.String("to", to), zap.Error(err))
	}
}

// notify forwards to sender when configured.
func notify(ctx context.Context, sender NotificationSender, req NotificationRequest) {
	if sender == nil {
		return
	}
	sender.Send(ctx, req)
}
