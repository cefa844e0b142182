package store

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/example/room-chat-demo/domain/chat"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned when an update targets a record that does not exist.
var ErrNotFound = errors.New("record not found")

// Store persists rooms, message logs, user directories, the room index and
// the SQL sequence counters in one SQLite database.
type Store struct {
	db *gorm.DB
}

// Open connects to the SQLite database at path. SQLite allows one writer at a
// time, so the pool is limited to a single connection.
func Open(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// NewStore creates a new store on db.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(
		&roomRecord{},
		&roomListEntry{},
		&messageRecord{},
		&userRecord{},
		&sequenceRecord{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// LoadRoomMetadata returns nil, nil when the room was never saved.
func (s *Store) LoadRoomMetadata(ctx context.Context, roomName string) (*domain.RoomMetadata, error) {
	var rec roomRecord
	if err := s.db.WithContext(ctx).First(&rec, "name = ?", roomName).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load room %s: %w", roomName, err)
	}
	return rec.toDomain(), nil
}

// SaveRoomMetadata inserts or replaces the room's metadata.
func (s *Store) SaveRoomMetadata(ctx context.Context, meta domain.RoomMetadata) error {
	rec := toRoomRecord(meta)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save room %s: %w", meta.Name, err)
	}
	return nil
}

// AppendMessage inserts msg as a new record of roomName's log.
func (s *Store) AppendMessage(ctx context.Context, roomName string, msg *domain.Message) (domain.RecordID, error) {
	rec := toMessageRecord(roomName, msg)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return 0, fmt.Errorf("failed to append message %d to room %s: %w",
			msg.Properties.SequenceNum, roomName, err)
	}
	return domain.RecordID(rec.ID), nil
}

// UpdateMessage writes the delivery state of an existing record.
func (s *Store) UpdateMessage(ctx context.Context, roomName string, id domain.RecordID, msg *domain.Message) error {
	result := s.db.WithContext(ctx).Model(&messageRecord{}).
		Where("id = ? AND room_name = ?", uint64(id), roomName).
		Updates(map[string]any{
			"mess_type": int(msg.Properties.Type),
			"rec_time":  msg.Properties.RecTime,
		})
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to update message %d: %w", id, err)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// StreamMessages calls fn for every message of roomName in ascending
// sequence order without loading the whole log at once.
func (s *Store) StreamMessages(ctx context.Context, roomName string, fn func(*domain.Message) error) error {
	rows, err := s.db.WithContext(ctx).Model(&messageRecord{}).
		Where("room_name = ?", roomName).
		Order("sequence_num ASC").
		Rows()
	if err != nil {
		return fmt.Errorf("failed to query messages of room %s: %w", roomName, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec messageRecord
		if err := s.db.ScanRows(rows, &rec); err != nil {
			return fmt.Errorf("failed to scan message: %w", err)
		}
		if err := fn(rec.toDomain()); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read messages of room %s: %w", roomName, err)
	}
	return nil
}

// LoadUserDirectory returns every user of scope, removed ones included, in
// registration order.
func (s *Store) LoadUserDirectory(ctx context.Context, scope string) ([]*domain.ChatUser, error) {
	var recs []userRecord
	err := s.db.WithContext(ctx).
		Where("scope = ?", scope).
		Order("create_time ASC, id ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load users of %s: %w", scope, err)
	}

	users := make([]*domain.ChatUser, 0, len(recs))
	for i := range recs {
		users = append(users, recs[i].toDomain())
	}
	return users, nil
}

// UpsertUser saves user under (scope, alias). A user without an id gets a
// new UUID.
func (s *Store) UpsertUser(ctx context.Context, scope string, user *domain.ChatUser) error {
	if user.UserID == "" {
		user.UserID = uuid.New().String()
	}
	rec := toUserRecord(scope, user)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "alias"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "blocked_users", "removed", "create_time", "modify_time",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save user %s in %s: %w", user.Alias, scope, err)
	}
	return nil
}

// ListRooms returns the names declared in listName in declaration order.
func (s *Store) ListRooms(ctx context.Context, listName string) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&roomListEntry{}).
		Where("list_name = ?", listName).
		Order("created_at ASC").
		Pluck("room_name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms of %s: %w", listName, err)
	}
	return names, nil
}

// DeclareRoom adds roomName to listName. Declaring twice is a no-op.
func (s *Store) DeclareRoom(ctx context.Context, listName, roomName string) error {
	entry := roomListEntry{ListName: listName, RoomName: roomName}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to declare room %s: %w", roomName, err)
	}
	return nil
}

// UndeclareRoom removes roomName from listName. The room's data is kept.
func (s *Store) UndeclareRoom(ctx context.Context, listName, roomName string) error {
	err := s.db.WithContext(ctx).
		Where("list_name = ? AND room_name = ?", listName, roomName).
		Delete(&roomListEntry{}).Error
	if err != nil {
		return fmt.Errorf("failed to undeclare room %s: %w", roomName, err)
	}
	return nil
}
