package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/taskhive/taskhive-api/internal/core/domain"
	"github.com/taskhive/taskhive-api/internal/core/ports"
)

const taskCollection = "tasks"

// TaskRepository implements ports.TaskRepository backed by MongoDB.
type TaskRepository struct {
	coll *mongo.Collection
}

func NewTaskRepository(db *mongo.Database) *TaskRepository {
	return &TaskRepository{coll: db.Collection(taskCollection)}
}

type mongoTask struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description,omitempty"`
	DueDate     time.Time          `bson:"due_date"`
	Priority    string             `bson:"priority"`
	Status      string             `bson:"status"`
	OwnerID     string             `bson:"owner_id"`
	AssignedTo  *string            `bson:"assigned_to,omitempty"`
	AssignedBy  *string            `bson:"assigned_by,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (mt *mongoTask) toDomain() *domain.Task {
	return &domain.Task{
		ID:          mt.ID.Hex(),
		Title:       mt.Title,
		Description: mt.Description,
		DueDate:     mt.DueDate,
		Priority:    domain.TaskPriority(mt.Priority),
		Status:      domain.TaskStatus(mt.Status),
		OwnerID:     mt.OwnerID,
		AssignedTo:  mt.AssignedTo,
		AssignedBy:  mt.AssignedBy,
		CreatedAt:   mt.CreatedAt,
		UpdatedAt:   mt.UpdatedAt,
	}
}

// scopeFilter translates the visibility scope into a query predicate:
// empty scope matches everything, otherwise owner or assignee must match.
func scopeFilter(scope string) bson.M {
	if scope == "" {
		return bson.M{}
	}
	return bson.M{"$or": bson.A{
		bson.M{"owner_id": scope},
		bson.M{"assigned_to": scope},
	}}
}

// sortFields whitelists the sortable fields and maps them to document keys.
var sortFields = map[string]string{
	"dueDate":   "due_date",
	"priority":  "priority",
	"title":     "title",
	"createdAt": "created_at",
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) (*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoTask{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		OwnerID:     t.OwnerID,
		AssignedTo:  t.AssignedTo,
		AssignedBy:  t.AssignedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	created := *t
	created.ID = res.InsertedID.(primitive.ObjectID).Hex()
	return &created, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, id, scope string) (*domain.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(scope)
	filter["_id"] = oid

	var mt mongoTask
	if err := r.coll.FindOne(ctx, filter).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}
	return mt.toDomain(), nil
}

func (r *TaskRepository) List(ctx context.Context, f ports.TaskFilter) ([]*domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := scopeFilter(f.Scope)
	if f.Completed != nil {
		if *f.Completed {
			filter["status"] = string(domain.StatusCompleted)
		} else {
			filter["status"] = bson.M{"$ne": string(domain.StatusCompleted)}
		}
	}
	if f.Priority != "" {
		filter["priority"] = string(f.Priority)
	}

	sortKey, ok := sortFields[f.SortBy]
	if !ok {
		sortKey = "due_date"
	}
	order := 1
	if f.Desc {
		order = -1
	}

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: sortKey, Value: order}}))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer cur.Close(ctx)

	var tasks []*domain.Task
	for cur.Next(ctx) {
		var mt mongoTask
		if err := cur.Decode(&mt); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, mt.toDomain())
	}
	return tasks, cur.Err()
}

func (r *TaskRepository) Update(ctx context.Context, id string, patch ports.TaskPatch) (*domain.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.DueDate != nil {
		set["due_date"] = *patch.DueDate
	}
	if patch.Priority != nil {
		set["priority"] = string(*patch.Priority)
	}
	if patch.Status != nil {
		set["status"] = string(*patch.Status)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mt mongoTask
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}
	return mt.toDomain(), nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrTaskNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// SetAssignment writes or clears assignee and assigner in one UpdateOne, so
// the both-set-or-both-unset invariant holds even across a crash.
func (r *TaskRepository) SetAssignment(ctx context.Context, id string, assignedTo, assignedBy *string) (*domain.Task, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrTaskNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var update bson.M
	if assignedTo == nil {
		update = bson.M{
			"$unset": bson.M{"assigned_to": "", "assigned_by": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		}
	} else {
		update = bson.M{"$set": bson.M{
			"assigned_to": *assignedTo,
			"assigned_by": *assignedBy,
			"updated_at":  time.Now().UTC(),
		}}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var mt mongoTask
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&mt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, fmt.Errorf("set assignment: %w", err)
	}
	return mt.toDomain(), nil
}

// Stats counts over the full task collection as of the given instant.
func (r *TaskRepository) Stats(ctx context.Context, asOf time.Time) (domain.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var stats domain.Stats
	completed := string(domain.StatusCompleted)

	dayStart := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, asOf.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	counts := []struct {
		dst    *int64
		filter bson.M
	}{
		{&stats.TotalTasks, bson.M{}},
		{&stats.CompletedTasks, bson.M{"status": completed}},
		{&stats.PendingTasks, bson.M{"status": bson.M{"$ne": completed}}},
		{&stats.HighPriorityTasks, bson.M{"priority": string(domain.PriorityHigh)}},
		{&stats.MediumPriorityTasks, bson.M{"priority": string(domain.PriorityMedium)}},
		{&stats.LowPriorityTasks, bson.M{"priority": string(domain.PriorityLow)}},
		{&stats.OverdueTasks, bson.M{"due_date": bson.M{"$lt": asOf}, "status": bson.M{"$ne": completed}}},
		{&stats.TasksCreatedToday, bson.M{"created_at": bson.M{"$gte": dayStart, "$lt": dayEnd}}},
	}
	for _, c := range counts {
		n, err := r.coll.CountDocuments(ctx, c.filter)
		if err != nil {
			return domain.Stats{}, fmt.Errorf("task stats: %w", err)
		}
		*c.dst = n
	}

	owners, err := r.coll.Distinct(ctx, "owner_id", bson.M{})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("task stats: distinct owners: %w", err)
	}
	stats.ActiveUsers = int64(len(owners))

	return stats, nil
}

// EnsureIndexes creates the indexes used by the visibility filter and the
// default sort.
func (r *TaskRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_to", Value: 1}}},
		{Keys: bson.D{{Key: "due_date", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
