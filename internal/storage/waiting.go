package storage

import (
	"context"
	"log"
	"time"

	"randomcall/backend/internal/models"

	"gorm.io/gorm/clause"
)

// InsertWaiting додає користувача до пулу очікування.
// Якщо для користувача вже є запис (наприклад, після аварійного завершення
// застосунку), він перезаписується новим.
func (s *Service) InsertWaiting(ctx context.Context, entry *models.WaitingEntry) error {
	entry.Status = models.WaitingStatusWaiting
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "gender", "call_id", "status", "created_at"}),
		}).
		Create(entry).Error
	if err != nil {
		log.Printf("ERROR: Failed to insert waiting entry for user %s: %v", entry.UserID, err)
		return unavailable("insert waiting entry", err)
	}
	return nil
}

// DeleteWaiting видаляє запис користувача з пулу. Відсутній запис не є помилкою.
func (s *Service) DeleteWaiting(ctx context.Context, userID string) error {
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.WaitingEntry{}).Error
	if err != nil {
		return unavailable("delete waiting entry", err)
	}
	return nil
}

// ClaimWaiting атомарно забирає запис кандидата: умовне видалення спрацьовує
// лише для того клієнта, який першим його виконав.
func (s *Service) ClaimWaiting(ctx context.Context, entry *models.WaitingEntry) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("user_id = ? AND call_id = ? AND status = ?", entry.UserID, entry.CallID, models.WaitingStatusWaiting).
		Delete(&models.WaitingEntry{})
	if res.Error != nil {
		return false, unavailable("claim waiting entry", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// FindWaitingCandidates повертає найстаріші записи, що відповідають фільтру.
func (s *Service) FindWaitingCandidates(ctx context.Context, filter models.CandidateFilter, limit int) ([]models.WaitingEntry, error) {
	q := s.DB.WithContext(ctx).Where("status = ?", models.WaitingStatusWaiting)
	if filter.ExcludeUserID != "" {
		q = q.Where("user_id <> ?", filter.ExcludeUserID)
	}
	if filter.Gender.IsSet() {
		q = q.Where("gender = ?", filter.Gender)
	}
	if !filter.NewerThan.IsZero() {
		q = q.Where("created_at >= ?", filter.NewerThan.UTC())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.WaitingEntry
	if err := q.Order("created_at asc").Find(&entries).Error; err != nil {
		log.Printf("ERROR: Failed to query waiting candidates: %v", err)
		return nil, unavailable("find waiting candidates", err)
	}
	return entries, nil
}

// SweepStaleWaiting видаляє записи, старші за maxAge, і повертає їх кількість.
func (s *Service) SweepStaleWaiting(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	res := s.DB.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.WaitingEntry{})
	if res.Error != nil {
		return 0, unavailable("sweep waiting entries", res.Error)
	}
	return res.RowsAffected, nil
}
