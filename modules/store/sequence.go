package store

import (
	"context"
	"fmt"

	domain "github.com/example/room-chat-demo/domain/chat"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Next bumps the room's counter row and returns the new value. The upsert and
// the read run in one transaction so concurrent callers never see the same
// value.
func (s *Store) Next(ctx context.Context, roomName string) (int64, error) {
	var rec sequenceRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_name"}},
			DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("value + 1")}),
		}).Create(&sequenceRecord{RoomName: roomName, Value: 1}).Error; err != nil {
			return err
		}
		return tx.First(&rec, "room_name = ?", roomName).Error
	})
	if err != nil {
		return domain.UnassignedSequence, fmt.Errorf("failed to allocate sequence for room %s: %w", roomName, err)
	}
	return rec.Value, nil
}

// Seed raises the room's counter to at least floor.
func (s *Store) Seed(ctx context.Context, roomName string, floor int64) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "room_name"}},
		DoUpdates: clause.Assignments(map[string]any{"value": gorm.Expr("MAX(value, excluded.value)")}),
	}).Create(&sequenceRecord{RoomName: roomName, Value: floor}).Error
	if err != nil {
		return fmt.Errorf("failed to seed sequence for room %s: %w", roomName, err)
	}
	return nil
}

// Current returns the last value handed out for the room, or zero.
func (s *Store) Current(ctx context.Context, roomName string) (int64, error) {
	var rec sequenceRecord
	err := s.db.WithContext(ctx).Limit(1).Find(&rec, "room_name = ?", roomName).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence for room %s: %w", roomName, err)
	}
	return rec.Value, nil
}
