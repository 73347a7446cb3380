/*
Package litedb is the SQLite implementation of store.Store, built on gorm.
It is the default driver: a single database file, schema created with
AutoMigrate on open.
*/
package litedb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"roomchat/internal/app/store"
	"roomchat/internal/app/user"
)

// Store implements store.Store on a gorm SQLite handle.
type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, debug bool) (*Store, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Warn
	}

	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// SQLite has one writer; a single connection avoids "database is locked".
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userModel{}, &roomModel{}, &memberModel{}, &messageModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return store.ErrConflict
	default:
		return err
	}
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (*user.User, error) {
	m := userModel{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &user.User{ID: m.ID, Username: m.Username, CreatedAt: m.CreatedAt}, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user.User{ID: m.ID, Username: m.Username, CreatedAt: m.CreatedAt}, nil
}

func (s *Store) GetCredentials(ctx context.Context, username string) (*store.Credentials, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, "username = ?", username).Error; err != nil {
		return nil, translate(err)
	}
	return &store.Credentials{
		User:         user.User{ID: m.ID, Username: m.Username, CreatedAt: m.CreatedAt},
		PasswordHash: m.PasswordHash,
	}, nil
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]user.User, int, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&userModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []userModel
	if err := db.Order("created_at, username").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	users := make([]user.User, 0, len(models))
	for _, m := range models {
		users = append(users, user.User{ID: m.ID, Username: m.Username, CreatedAt: m.CreatedAt})
	}
	return users, int(total), nil
}

func (s *Store) CreateRoom(ctx context.Context, room *store.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}

	m := roomModel{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		CreatorID:   room.CreatorID,
		CreatedAt:   room.CreatedAt,
	}
	return translate(s.db.WithContext(ctx).Create(&m).Error)
}

func (s *Store) roomQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("rooms AS r").
		Select("r.id, r.name, r.description, r.creator_id, r.created_at, " +
			"(SELECT count(*) FROM room_members m WHERE m.room_id = r.id) AS member_count")
}

func (r roomRow) toRoom() store.Room {
	return store.Room{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CreatorID:   r.CreatorID,
		CreatedAt:   r.CreatedAt,
		MemberCount: r.MemberCount,
	}
}

func (s *Store) GetRoom(ctx context.Context, id string) (*store.Room, error) {
	var rows []roomRow
	if err := s.roomQuery(ctx).Where("r.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	room := rows[0].toRoom()
	return &room, nil
}

func (s *Store) ListRooms(ctx context.Context, limit, offset int) ([]store.Room, int, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&roomModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []roomRow
	err := s.roomQuery(ctx).
		Order("r.created_at DESC, r.id").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	rooms := make([]store.Room, 0, len(rows))
	for _, r := range rows {
		rooms = append(rooms, r.toRoom())
	}
	return rooms, int(total), nil
}

func (s *Store) UpdateRoom(ctx context.Context, id string, patch store.RoomPatch) (*store.Room, error) {
	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}

	if len(updates) > 0 {
		result := s.db.WithContext(ctx).Model(&roomModel{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return nil, translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, store.ErrNotFound
		}
	}
	return s.GetRoom(ctx, id)
}

// DeleteRoom removes the room and its memberships; messages stay.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&roomModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return tx.Delete(&memberModel{}, "room_id = ?", id).Error
	})
}

func (s *Store) AddMember(ctx context.Context, roomID, userID string) (time.Time, error) {
	var joinedAt time.Time

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&roomModel{}).Where("id = ?", roomID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return store.ErrNotFound
		}

		m := memberModel{RoomID: roomID, UserID: userID, JoinedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&m).Error; err != nil {
			return err
		}

		var stored memberModel
		if err := tx.First(&stored, "room_id = ? AND user_id = ?", roomID, userID).Error; err != nil {
			return err
		}
		joinedAt = stored.JoinedAt
		return nil
	})
	if err != nil {
		return time.Time{}, translate(err)
	}
	return joinedAt, nil
}

func (s *Store) RemoveMember(ctx context.Context, roomID, userID string) error {
	result := s.db.WithContext(ctx).Delete(&memberModel{}, "room_id = ? AND user_id = ?", roomID, userID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&memberModel{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) AppendMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	m := messageModel{
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return translate(err)
	}
	msg.ID = m.ID
	return nil
}

func (s *Store) ListMessages(ctx context.Context, roomID string, before int64, limit int) ([]store.Message, error) {
	q := s.db.WithContext(ctx).
		Table("messages AS m").
		Select("m.id, m.room_id, m.user_id, COALESCE(u.username, '') AS username, m.content, m.created_at").
		Joins("LEFT JOIN users u ON u.id = m.user_id").
		Where("m.room_id = ?", roomID)
	if before > 0 {
		q = q.Where("m.id < ?", before)
	}

	var rows []messageRow
	if err := q.Order("m.created_at DESC, m.id DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	messages := make([]store.Message, len(rows))
	for i, r := range rows {
		messages[len(rows)-1-i] = store.Message{
			ID:        r.ID,
			RoomID:    r.RoomID,
			UserID:    r.UserID,
			Username:  r.Username,
			Content:   r.Content,
			CreatedAt: r.CreatedAt,
		}
	}
	return messages, nil
}
