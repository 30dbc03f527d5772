package models

import (
	"time"
)

// Assessment 是一次收敛评估的审计记录，每个评估周期每个活跃 Agent 一行。
type Assessment struct {
	ID            string    `json:"id" bson:"_id" gorm:"primaryKey;size:64"`
	AgentID       string    `json:"agent_id" bson:"agent_id" gorm:"size:128;index"`
	Understanding *float64  `json:"understanding,omitempty" bson:"understanding,omitempty"`
	Alignment     *float64  `json:"alignment,omitempty" bson:"alignment,omitempty"`
	Divergence    float64   `json:"divergence" bson:"divergence"`
	AssessedAt    time.Time `json:"assessed_at" bson:"assessed_at" gorm:"index"`
}

// TableName 指定 GORM 与 MongoDB 使用的表/集合名。
func (Assessment) TableName() string { return "convergence_assessments" }

// Severity 定义干预的严重级别。
type Severity string

const (
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// InterventionStatus 定义干预的生命周期状态，只能单向前进。
type InterventionStatus string

const (
	InterventionPending      InterventionStatus = "pending"
	InterventionSent         InterventionStatus = "sent"
	InterventionAcknowledged InterventionStatus = "acknowledged"
	InterventionResolved     InterventionStatus = "resolved"
)

// OpenInterventionStatuses 是视为“未关闭”的状态集合。
var OpenInterventionStatuses = []InterventionStatus{InterventionPending, InterventionSent}

func (s InterventionStatus) rank() int {
	switch s {
	case InterventionPending:
		return 1
	case InterventionSent:
		return 2
	case InterventionAcknowledged:
		return 3
	case InterventionResolved:
		return 4
	}
	return 0
}

// Valid 判断状态是否合法。
func (s InterventionStatus) Valid() bool { return s.rank() > 0 }

// Open 判断干预是否仍处于待处理状态 (pending 或 sent)。
func (s InterventionStatus) Open() bool {
	return s == InterventionPending || s == InterventionSent
}

// CanTransitionTo 只允许向前迁移，不允许重新打开。
func (s InterventionStatus) CanTransitionTo(next InterventionStatus) bool {
	return next.Valid() && next.rank() > s.rank()
}

// Intervention 是一次因偏离过高而开启的干预记录。
type Intervention struct {
	ID            string             `json:"id" bson:"_id" gorm:"primaryKey;size:64"`
	AgentID       string             `json:"agent_id" bson:"agent_id" gorm:"size:128;index"`
	Severity      Severity           `json:"severity" bson:"severity" gorm:"size:16"`
	ProtocolRef   string             `json:"protocol_ref" bson:"protocol_ref" gorm:"size:255"`
	Divergence    float64            `json:"divergence" bson:"divergence"`
	Status        InterventionStatus `json:"status" bson:"status" gorm:"size:16;index"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at" gorm:"index"`
	SentAt        *time.Time         `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	RespondedAt   *time.Time         `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
	Effectiveness *float64           `json:"effectiveness,omitempty" bson:"effectiveness,omitempty"`
	Note          string             `json:"note,omitempty" bson:"note,omitempty" gorm:"type:text"`
}

// TableName 指定 GORM 与 MongoDB 使用的表/集合名。
func (Intervention) TableName() string { return "convergence_interventions" }

// 指标名称。
const (
	MetricAvgDivergence     = "avg_divergence"
	MetricActiveAgents      = "active_agents"
	MetricOpenInterventions = "open_interventions"
)

// Metric 是只追加的标量时间序列。
type Metric struct {
	ID         string    `json:"id" bson:"_id" gorm:"primaryKey;size:64"`
	Name       string    `json:"name" bson:"name" gorm:"size:64;index"`
	Value      float64   `json:"value" bson:"value"`
	AgentID    string    `json:"agent_id,omitempty" bson:"agent_id,omitempty" gorm:"size:128"`
	RecordedAt time.Time `json:"recorded_at" bson:"recorded_at" gorm:"index"`
}

// TableName 指定 GORM 与 MongoDB 使用的表/集合名。
func (Metric) TableName() string { return "convergence_metrics" }
