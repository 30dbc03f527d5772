package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/wisdomoflovingfaith/WOLFIE-AGI-UI/backend/go/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is an implementation of Store using MongoDB.
type MongoStore struct {
	client        *mongo.Client
	agents        *mongo.Collection
	messages      *mongo.Collection
	tasks         *mongo.Collection
	assessments   *mongo.Collection
	interventions *mongo.Collection
	metrics       *mongo.Collection
}

// NewMongoStore creates a MongoStore over db and makes sure the query indexes exist.
func NewMongoStore(ctx context.Context, client *mongo.Client, db *mongo.Database) (*MongoStore, error) {
	s := &MongoStore{
		client:        client,
		agents:        db.Collection(models.Agent{}.TableName()),
		messages:      db.Collection(models.Message{}.TableName()),
		tasks:         db.Collection(models.Task{}.TableName()),
		assessments:   db.Collection(models.Assessment{}.TableName()),
		interventions: db.Collection(models.Intervention{}.TableName()),
		metrics:       db.Collection(models.Metric{}.TableName()),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.messages: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "from", Value: 1}}},
			{Keys: bson.D{{Key: "to", Value: 1}}},
		},
		s.tasks: {
			{Keys: bson.D{{Key: "assigned_to", Value: 1}, {Key: "status", Value: 1}}},
		},
		s.assessments: {
			{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "assessed_at", Value: -1}}},
		},
		s.interventions: {
			{Keys: bson.D{{Key: "agent_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		s.metrics: {
			{Keys: bson.D{{Key: "name", Value: 1}, {Key: "recorded_at", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, idx); err != nil {
			return unavailable("create indexes on "+coll.Name(), err)
		}
	}
	return nil
}

// findOptions sorts newest first. _id breaks ties between equal timestamps,
// which Mongo's millisecond precision makes likely.
func findOptions(sortField string, limit int) *options.FindOptions {
	opts := options.Find().SetSort(bson.D{{Key: sortField, Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	var out []T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoStore) SaveAgent(ctx context.Context, agent *models.Agent) error {
	_, err := s.agents.ReplaceOne(ctx, bson.M{"_id": agent.ID}, agent, options.Replace().SetUpsert(true))
	if err != nil {
		return unavailable("save agent", err)
	}
	return nil
}

func (s *MongoStore) ListAgents(ctx context.Context) ([]models.Agent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	out, err := findAll[models.Agent](ctx, s.agents, bson.M{}, opts)
	if err != nil {
		return nil, unavailable("list agents", err)
	}
	return out, nil
}

func (s *MongoStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	if _, err := s.messages.InsertOne(ctx, msg); err != nil {
		return unavailable("append message", err)
	}
	return nil
}

func (s *MongoStore) ListMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	filter := bson.M{}
	if f.AgentID != "" {
		filter["$or"] = bson.A{bson.M{"from": f.AgentID}, bson.M{"to": f.AgentID}}
	}
	if !f.Since.IsZero() {
		filter["created_at"] = bson.M{"$gte": f.Since}
	}
	out, err := findAll[models.Message](ctx, s.messages, filter, findOptions("created_at", f.Limit))
	if err != nil {
		return nil, unavailable("list messages", err)
	}
	return out, nil
}

func (s *MongoStore) CountMessages(ctx context.Context) (int64, error) {
	n, err := s.messages.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, unavailable("count messages", err)
	}
	return n, nil
}

func (s *MongoStore) CreateTask(ctx context.Context, task *models.Task) error {
	if _, err := s.tasks.InsertOne(ctx, task); err != nil {
		return unavailable("create task", err)
	}
	return nil
}

func (s *MongoStore) UpdateTask(ctx context.Context, task *models.Task) error {
	update := bson.M{
		"$set": bson.M{
			"status":      task.Status,
			"assigned_to": task.AssignedTo,
			"updated_at":  task.UpdatedAt,
		},
	}
	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": task.ID}, update)
	if err != nil {
		return unavailable("update task", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownTask, task.ID)
	}
	return nil
}

func (s *MongoStore) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var t models.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownTask, id)
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return &t, nil
}

func taskFilter(f TaskFilter) bson.M {
	filter := bson.M{}
	if f.AssignedTo != "" {
		filter["assigned_to"] = f.AssignedTo
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	return filter
}

func (s *MongoStore) ListTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	out, err := findAll[models.Task](ctx, s.tasks, taskFilter(f), findOptions("created_at", f.Limit))
	if err != nil {
		return nil, unavailable("list tasks", err)
	}
	return out, nil
}

func (s *MongoStore) CountTasks(ctx context.Context, f TaskFilter) (int64, error) {
	n, err := s.tasks.CountDocuments(ctx, taskFilter(f))
	if err != nil {
		return 0, unavailable("count tasks", err)
	}
	return n, nil
}

func (s *MongoStore) AppendAssessment(ctx context.Context, a *models.Assessment) error {
	if _, err := s.assessments.InsertOne(ctx, a); err != nil {
		return unavailable("append assessment", err)
	}
	return nil
}

func (s *MongoStore) ListAssessments(ctx context.Context, f AssessmentFilter) ([]models.Assessment, error) {
	filter := bson.M{}
	if f.AgentID != "" {
		filter["agent_id"] = f.AgentID
	}
	if !f.Since.IsZero() {
		filter["assessed_at"] = bson.M{"$gte": f.Since}
	}
	out, err := findAll[models.Assessment](ctx, s.assessments, filter, findOptions("assessed_at", f.Limit))
	if err != nil {
		return nil, unavailable("list assessments", err)
	}
	return out, nil
}

func (s *MongoStore) CreateIntervention(ctx context.Context, iv *models.Intervention) error {
	if _, err := s.interventions.InsertOne(ctx, iv); err != nil {
		return unavailable("create intervention", err)
	}
	return nil
}

func (s *MongoStore) UpdateIntervention(ctx context.Context, iv *models.Intervention) error {
	update := bson.M{
		"$set": bson.M{
			"status":        iv.Status,
			"sent_at":       iv.SentAt,
			"responded_at":  iv.RespondedAt,
			"effectiveness": iv.Effectiveness,
			"note":          iv.Note,
		},
	}
	res, err := s.interventions.UpdateOne(ctx, bson.M{"_id": iv.ID}, update)
	if err != nil {
		return unavailable("update intervention", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", models.ErrUnknownIntervention, iv.ID)
	}
	return nil
}

func (s *MongoStore) GetIntervention(ctx context.Context, id string) (*models.Intervention, error) {
	var iv models.Intervention
	err := s.interventions.FindOne(ctx, bson.M{"_id": id}).Decode(&iv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownIntervention, id)
	}
	if err != nil {
		return nil, unavailable("get intervention", err)
	}
	return &iv, nil
}

func (s *MongoStore) ListInterventions(ctx context.Context, f InterventionFilter) ([]models.Intervention, error) {
	filter := bson.M{}
	if f.AgentID != "" {
		filter["agent_id"] = f.AgentID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	out, err := findAll[models.Intervention](ctx, s.interventions, filter, findOptions("created_at", f.Limit))
	if err != nil {
		return nil, unavailable("list interventions", err)
	}
	return out, nil
}

func (s *MongoStore) AppendMetric(ctx context.Context, m *models.Metric) error {
	if _, err := s.metrics.InsertOne(ctx, m); err != nil {
		return unavailable("append metric", err)
	}
	return nil
}

func (s *MongoStore) ListMetrics(ctx context.Context, f MetricFilter) ([]models.Metric, error) {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = f.Name
	}
	if !f.Since.IsZero() {
		filter["recorded_at"] = bson.M{"$gte": f.Since}
	}
	out, err := findAll[models.Metric](ctx, s.metrics, filter, findOptions("recorded_at", f.Limit))
	if err != nil {
		return nil, unavailable("list metrics", err)
	}
	return out, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
