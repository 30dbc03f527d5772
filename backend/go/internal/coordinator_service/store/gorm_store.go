package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is a Store backed by a relational database through GORM.
// It is used with both the MySQL and the SQLite dialects.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db and migrates the coordinator tables.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	err := db.WithContext(ctx).AutoMigrate(
		&models.Agent{},
		&models.Message{},
		&models.Task{},
		&models.Assessment{},
		&models.Intervention{},
		&models.Metric{},
	)
	if err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) SaveAgent(ctx context.Context, agent *models.Agent) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(agent).Error
	if err != nil {
		return unavailable("save agent", err)
	}
	return nil
}

func (s *GormStore) ListAgents(ctx context.Context) ([]models.Agent, error) {
	var agents []models.Agent
	if err := s.db.WithContext(ctx).Order("id").Find(&agents).Error; err != nil {
		return nil, unavailable("list agents", err)
	}
	return agents, nil
}

func (s *GormStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		return unavailable("append message", err)
	}
	return nil
}

func (s *GormStore) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	q := s.db.WithContext(ctx).Model(&models.Message{})
	if f.AgentID != "" {
		q = q.Where("from_agent = ? OR to_agent = ?", f.AgentID, f.AgentID)
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Message
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, unavailable("list messages", err)
	}
	return out, nil
}

func (s *GormStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).Count(&n).Error; err != nil {
		return 0, unavailable("count messages", err)
	}
	return n, nil
}

func (s *GormStore) CreateTask(ctx context.Context, task *models.Task) error {
	if err := s.db.WithContext(ctx).Create(task).Error; err != nil {
		return unavailable("create task", err)
	}
	return nil
}

func (s *GormStore) UpdateTask(ctx context.Context, task *models.Task) error {
	res := s.db.WithContext(ctx).Model(&models.Task{}).
		Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"status":      task.Status,
			"assigned_to": task.AssignedTo,
			"updated_at":  task.UpdatedAt,
		})
	if res.Error != nil {
		return unavailable("update task", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownTask, task.ID)
	}
	return nil
}

func (s *GormStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTask, id)
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return &t, nil
}

func (s *GormStore) taskQuery(ctx context.Context, f TaskFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Task{})
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	return q
}

func (s *GormStore) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	q := s.taskQuery(ctx, f)
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Task
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, unavailable("list tasks", err)
	}
	return out, nil
}

func (s *GormStore) CountTasks(ctx context.Context, f TaskFilter) (int64, error) {
	var n int64
	if err := s.taskQuery(ctx, f).Count(&n).Error; err != nil {
		return 0, unavailable("count tasks", err)
	}
	return n, nil
}

func (s *GormStore) AppendAssessment(ctx context.Context, a *models.Assessment) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return unavailable("append assessment", err)
	}
	return nil
}

func (s *GormStore) ListAssessments(ctx context.Context, f AssessmentFilter) ([]models.Assessment, error) {
	q := s.db.WithContext(ctx).Model(&models.Assessment{})
	if f.AgentID != "" {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	if !f.Since.IsZero() {
		q = q.Where("assessed_at >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Assessment
	if err := q.Order("assessed_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, unavailable("list assessments", err)
	}
	return out, nil
}

func (s *GormStore) CreateIntervention(ctx context.Context, iv *models.Intervention) error {
	if err := s.db.WithContext(ctx).Create(iv).Error; err != nil {
		return unavailable("create intervention", err)
	}
	return nil
}

func (s *GormStore) UpdateIntervention(ctx context.Context, iv *models.Intervention) error {
	res := s.db.WithContext(ctx).Model(&models.Intervention{}).
		Where("id = ?", iv.ID).
		Updates(map[string]interface{}{
			"status":        iv.Status,
			"sent_at":       iv.SentAt,
			"responded_at":  iv.RespondedAt,
			"effectiveness": iv.Effectiveness,
			"note":          iv.Note,
		})
	if res.Error != nil {
		return unavailable("update intervention", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownIntervention, iv.ID)
	}
	return nil
}

func (s *GormStore) GetIntervention(ctx context.Context, id string) (*models.Intervention, error) {
	var iv models.Intervention
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&iv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownIntervention, id)
	}
	if err != nil {
		return nil, unavailable("get intervention", err)
	}
	return &iv, nil
}

func (s *GormStore) ListInterventions(ctx context.Context, f InterventionFilter) ([]models.Intervention, error) {
	q := s.db.WithContext(ctx).Model(&models.Intervention{})
	if f.AgentID != "" {
		q = q.Where("agent_id = ?", f.AgentID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Intervention
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, unavailable("list interventions", err)
	}
	return out, nil
}

func (s *GormStore) AppendMetric(ctx context.Context, m *models.Metric) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return unavailable("append metric", err)
	}
	return nil
}

func (s *GormStore) ListMetrics(ctx context.Context, f MetricFilter) ([]models.Metric, error) {
	q := s.db.WithContext(ctx).Model(&models.Metric{})
	if f.Name != "" {
		q = q.Where("name = ?", f.Name)
	}
	if !f.Since.IsZero() {
		q = q.Where("recorded_at >= ?", f.Since)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Metric
	if err := q.Order("recorded_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, unavailable("list metrics", err)
	}
	return out, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return unavailable("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
