package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"randomcall/backend/internal/models"

	"gorm.io/gorm"
)

// InsertActiveCall зберігає нову сесію дзвінка зі статусом active.
func (s *Service) InsertActiveCall(ctx context.Context, session *models.ActiveCallSession) error {
	if err := session.Validate(); err != nil {
		return err
	}
	session.Status = models.CallStatusActive
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}

	if err := s.DB.WithContext(ctx).Create(session).Error; err != nil {
		log.Printf("ERROR: Failed to insert call session %s: %v", session.CallID, err)
		return unavailable("insert call session", err)
	}
	return nil
}

// UpdateActiveCall застосовує часткове оновлення до сесії.
func (s *Service) UpdateActiveCall(ctx context.Context, callID string, patch models.CallPatch) error {
	updates := map[string]interface{}{}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if patch.EndedAt != nil {
		updates["ended_at"] = patch.EndedAt.UTC()
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.DB.WithContext(ctx).
		Model(&models.ActiveCallSession{}).
		Where("call_id = ?", callID).
		Updates(updates)
	if res.Error != nil {
		return unavailable("update call session", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCallNotFound
	}
	return nil
}

// DeleteActiveCall видаляє сесію. Відсутня сесія не є помилкою.
func (s *Service) DeleteActiveCall(ctx context.Context, callID string) error {
	err := s.DB.WithContext(ctx).
		Where("call_id = ?", callID).
		Delete(&models.ActiveCallSession{}).Error
	if err != nil {
		return unavailable("delete call session", err)
	}
	return nil
}

// FindActiveCall повертає сесію за call_id або nil, якщо її немає.
func (s *Service) FindActiveCall(ctx context.Context, callID string) (*models.ActiveCallSession, error) {
	var session models.ActiveCallSession
	err := s.DB.WithContext(ctx).Where("call_id = ?", callID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("find call session", err)
	}
	return &session, nil
}

// FindActiveCallForUser знаходить активну сесію, в якій бере участь користувач.
func (s *Service) FindActiveCallForUser(ctx context.Context, userID string) (*models.ActiveCallSession, error) {
	var session models.ActiveCallSession
	err := s.DB.WithContext(ctx).
		Where("status = ?", models.CallStatusActive).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to find active call for user %s: %v", userID, err)
		return nil, unavailable("find call for user", err)
	}
	return &session, nil
}

// ListActiveCalls повертає всі активні сесії, найстаріші першими.
func (s *Service) ListActiveCalls(ctx context.Context) ([]models.ActiveCallSession, error) {
	var sessions []models.ActiveCallSession
	err := s.DB.WithContext(ctx).
		Where("status = ?", models.CallStatusActive).
		Order("created_at asc").
		Find(&sessions).Error
	if err != nil {
		return nil, unavailable("list call sessions", err)
	}
	return sessions, nil
}
