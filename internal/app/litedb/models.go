package litedb

import "time"

type userModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Username     string    `gorm:"uniqueIndex;size:32;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

type roomModel struct {
	ID          string    `gorm:"primaryKey;size:36"`
	Name        string    `gorm:"size:64;not null"`
	Description string    `gorm:"not null;default:''"`
	CreatorID   string    `gorm:"size:36;not null;index"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

func (roomModel) TableName() string { return "rooms" }

type memberModel struct {
	RoomID   string    `gorm:"primaryKey;size:36"`
	UserID   string    `gorm:"primaryKey;size:36"`
	JoinedAt time.Time `gorm:"not null"`
}

func (memberModel) TableName() string { return "room_members" }

// messageModel has no relation to rooms so history survives room deletion.
type messageModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement;index:idx_messages_room_order,priority:3"`
	RoomID    string    `gorm:"size:36;not null;index:idx_messages_room_order,priority:1"`
	UserID    string    `gorm:"size:36;not null"`
	Content   string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_room_order,priority:2"`
}

func (messageModel) TableName() string { return "messages" }

// roomRow and messageRow receive joined query results.
type roomRow struct {
	ID          string
	Name        string
	Description string
	CreatorID   string
	CreatedAt   time.Time
	MemberCount int
}

type messageRow struct {
	ID        int64
	RoomID    string
	UserID    string
	Username  string
	Content   string
	CreatedAt time.Time
}
