package models

import (
	"time"
)

// TaskPriority 定义了任务优先级。
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// Valid 判断优先级是否合法。
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// TaskStatus 定义了任务的几种可能状态
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// Valid 判断状态是否合法。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
		return true
	}
	return false
}

// Terminal 判断任务是否已结束。
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusDone || s == TaskStatusCancelled
}

// CanTransitionTo 判断状态迁移是否允许：
// pending -> in_progress|cancelled, in_progress -> done|cancelled。
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusInProgress || next == TaskStatusCancelled
	case TaskStatusInProgress:
		return next == TaskStatusDone || next == TaskStatusCancelled
	}
	return false
}

// Task 代表一个分配给 Agent 的工作单元，永不删除。
type Task struct {
	ID          string       `json:"id" bson:"_id" gorm:"primaryKey;size:64"`
	Kind        string       `json:"kind" bson:"kind" gorm:"size:64"`
	Description string       `json:"description" bson:"description" gorm:"type:text"`
	AssignedTo  string       `json:"assigned_to,omitempty" bson:"assigned_to" gorm:"size:128;index"`
	CreatedBy   string       `json:"created_by,omitempty" bson:"created_by" gorm:"size:128"`
	Priority    TaskPriority `json:"priority" bson:"priority" gorm:"size:16"`
	Status      TaskStatus   `json:"status" bson:"status" gorm:"size:16;index"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at" gorm:"index"`
	UpdatedAt   time.Time    `json:"updated_at" bson:"updated_at"`
	Deadline    *time.Time   `json:"deadline,omitempty" bson:"deadline,omitempty"`
}

// TableName 指定 GORM 与 MongoDB 使用的表/集合名。
func (Task) TableName() string { return "convergence_tasks" }
