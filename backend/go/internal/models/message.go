package models

import (
	"strings"
	"time"
)

const (
	// BroadcastRecipient 表示消息投递给所有其他在线连接。
	BroadcastRecipient = "broadcast"
	// RoomRecipientPrefix 是房间消息的收件人前缀，其后为房间名的 glob 模式。
	RoomRecipientPrefix = "room:"
	// DefaultMessageKind 是未指定类型时使用的消息类型。
	DefaultMessageKind = "text"
	// CoordinatorID 是协调服务自身作为发送方时使用的ID。
	CoordinatorID = "coordinator"
)

// Message 是一条不可变的消息记录，只追加写入。
type Message struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey;size:64"`
	From      string    `json:"from" bson:"from" gorm:"column:from_agent;size:128;index"`
	To        string    `json:"to" bson:"to" gorm:"column:to_agent;size:255;index"`
	Kind      string    `json:"kind" bson:"kind" gorm:"size:64"`
	Content   string    `json:"content" bson:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" gorm:"index"`
}

// TableName 指定 GORM 与 MongoDB 使用的表/集合名。
func (Message) TableName() string { return "convergence_messages" }

// IsBroadcast 判断消息是否为广播。
func (m Message) IsBroadcast() bool { return m.To == BroadcastRecipient }

// RoomPattern 返回房间消息的 glob 模式；非房间消息返回 false。
func (m Message) RoomPattern() (string, bool) {
	if !strings.HasPrefix(m.To, RoomRecipientPrefix) {
		return "", false
	}
	return strings.TrimPrefix(m.To, RoomRecipientPrefix), true
}
