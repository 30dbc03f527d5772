package models

import (
	"time"

	"gorm.io/datatypes"
)

// AgentStatus 定义了 Agent 的生命周期状态。
type AgentStatus string

const (
	AgentStatusActive  AgentStatus = "active"  // 在线并参与协作
	AgentStatusStandby AgentStatus = "standby" // 在线但暂不接收工作
	AgentStatusOffline AgentStatus = "offline" // 连接已断开或心跳超时
)

// Valid 判断状态值是否合法。
func (s AgentStatus) Valid() bool {
	switch s {
	case AgentStatusActive, AgentStatusStandby, AgentStatusOffline:
		return true
	}
	return false
}

// Agent 代表一个注册到协调服务的参与者。
// Agent 永远不会被物理删除，断开后仅标记为 offline，以保留评估历史。
type Agent struct {
	ID            string                      `json:"id" bson:"_id" gorm:"primaryKey;size:128"`
	Name          string                      `json:"name" bson:"name" gorm:"size:255"`
	Capabilities  datatypes.JSONSlice[string] `json:"capabilities" bson:"capabilities"`
	Status        AgentStatus                 `json:"status" bson:"status" gorm:"size:16;index"`
	LastSeen      time.Time                   `json:"last_seen" bson:"last_seen"`
	CurrentTask   string                      `json:"current_task,omitempty" bson:"current_task"`
	Understanding *float64                    `json:"understanding,omitempty" bson:"understanding,omitempty"`
	Alignment     *float64                    `json:"alignment,omitempty" bson:"alignment,omitempty"`
	RegisteredAt  time.Time                   `json:"registered_at" bson:"registered_at"`
	ConnectionID  string                      `json:"-" bson:"-" gorm:"-"`
}

// TableName 指定 GORM 与 MongoDB 使用的表/集合名。
func (Agent) TableName() string { return "convergence_agents" }

// Clone 返回一个不与原对象共享可变字段的副本。
func (a Agent) Clone() Agent {
	c := a
	if a.Capabilities != nil {
		c.Capabilities = append(datatypes.JSONSlice[string]{}, a.Capabilities...)
	}
	c.Understanding = cloneFloat(a.Understanding)
	c.Alignment = cloneFloat(a.Alignment)
	return c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

// Float 返回指向 v 的指针，便于构造可选评分。
func Float(v float64) *float64 {
	return &v
}
