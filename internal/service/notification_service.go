package service

import (
	"fmt"

	"github.com/tazhate/fintrack/internal/domain"
	"github.com/tazhate/fintrack/internal/storage"
)

// NotificationService is the read side of in-app notifications. The
// scheduler only ever creates notification rows; everything after that
// (listing, read flags, deletion) goes through here.
type NotificationService struct {
	storage *storage.Storage
}

func NewNotificationService(s *storage.Storage) *NotificationService {
	return &NotificationService{storage: s}
}

func (s *NotificationService) List(userID string, unreadOnly bool) ([]*domain.Notification, error) {
	return s.storage.ListNotificationsByUser(userID, unreadOnly)
}

func (s *NotificationService) MarkRead(userID, notificationID string) error {
	if err := s.ensureOwned(userID, notificationID); err != nil {
		return err
	}
	return s.storage.MarkNotificationRead(notificationID)
}

func (s *NotificationService) Delete(userID, notificationID string) error {
	if err := s.ensureOwned(userID, notificationID); err != nil {
		return err
	}
	return s.storage.DeleteNotification(notificationID)
}

func (s *NotificationService) ensureOwned(userID, notificationID string) error {
	n, err := s.storage.GetNotification(notificationID)
	if err != nil {
		return fmt.Errorf("get notification: %w", err)
	}
	if n == nil || n.UserID != userID {
		return fmt.Errorf("notification not found")
	}
	return nil
}
