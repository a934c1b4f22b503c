package notification

import (
	"context"
	"fmt"
	"log"

	"github.com/finlead/membership-backend/internal/email"
	"github.com/finlead/membership-backend/internal/repository"
	"github.com/finlead/membership-backend/internal/socket"
)

// Notification types
const (
	TypeSuspensionConfirmed   = "SUSPENSION_CONFIRMED"
	TypeSuspensionEnded       = "SUSPENSION_ENDED"
	TypeCancellationScheduled = "CANCELLATION_SCHEDULED"
	TypePaymentFailed         = "PAYMENT_FAILED"
	TypePaymentRecovered      = "PAYMENT_RECOVERED"
	TypePromotionSubmitted    = "PROMOTION_SUBMITTED"
	TypePromotionApproved     = "PROMOTION_APPROVED"
	TypePromotionRejected     = "PROMOTION_REJECTED"
	TypeRoleChanged           = "ROLE_CHANGED"
	TypeDemotion              = "DEMOTION"
)

// Service persists notifications and fans them out over websocket and email.
// Delivery is fire-and-forget for callers: a failed push or email never
// fails the triggering operation.
type Service struct {
	notificationRepo repository.NotificationRepository
	memberRepo       repository.MemberRepository
	emailSvc         *email.Service
	broadcaster      *socket.Broadcaster
	portalURL        string
}

// NewService creates a new notification service
func NewService(notificationRepo repository.NotificationRepository, memberRepo repository.MemberRepository) *Service {
	return &Service{
		notificationRepo: notificationRepo,
		memberRepo:       memberRepo,
	}
}

func (s *Service) SetBroadcaster(b *socket.Broadcaster) {
	s.broadcaster = b
}

func (s *Service) SetEmailService(e *email.Service, portalURL string) {
	s.emailSvc = e
	s.portalURL = portalURL
}

// Notify stores a notification and pushes it to the member. Email is sent
// only for kinds that warrant it (anything billing- or role-affecting).
func (s *Service) Notify(ctx context.Context, memberID, kind, title, message string, data map[string]interface{}) error {
	n := &repository.Notification{
		MemberID: memberID,
		Type:     kind,
		Title:    title,
		Message:  message,
		Data:     data,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.broadcaster != nil {
		s.broadcaster.SendNotification(memberID, map[string]interface{}{
			"id":        n.ID,
			"type":      n.Type,
			"title":     n.Title,
			"message":   n.Message,
			"data":      n.Data,
			"read":      n.Read,
			"createdAt": n.CreatedAt,
		})
	}

	if s.emailSvc != nil && emailWorthy(kind) {
		if member, err := s.memberRepo.FindByID(ctx, memberID); err == nil && member != nil {
			effectiveDate, _ := data["effectiveDate"].(string)
			if err := s.emailSvc.SendLifecycle(member.Email, title, email.LifecycleEmailData{
				MemberName:    member.Name,
				Detail:        message,
				EffectiveDate: effectiveDate,
				PortalURL:     s.portalURL,
			}); err != nil {
				log.Printf("[Notification] Failed to email member %s: %v", memberID, err)
			}
		}
	}

	return nil
}

func emailWorthy(kind string) bool {
	switch kind {
	case TypeSuspensionConfirmed, TypeCancellationScheduled, TypePaymentFailed,
		TypePromotionApproved, TypePromotionRejected, TypeDemotion:
		return true
	}
	return false
}
