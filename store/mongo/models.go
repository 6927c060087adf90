package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

type taskModel struct {
	ID        string     `bson:"_id"`
	Name      string     `bson:"name"`
	Service   string     `bson:"service"`
	Params    []byte     `bson:"params"`
	State     string     `bson:"state"`
	RunAt     time.Time  `bson:"run_at"`
	StartedAt *time.Time `bson:"started_at,omitempty"`
	EndedAt   *time.Time `bson:"ended_at,omitempty"`
	Timeout   int64      `bson:"timeout"`
	Result    string     `bson:"result"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

func toTaskModel(t *task.Task) *taskModel {
	return &taskModel{
		ID:        t.ID.String(),
		Name:      t.Name,
		Service:   t.Service,
		Params:    t.Params,
		State:     string(t.State),
		RunAt:     t.RunAt,
		StartedAt: t.StartedAt,
		EndedAt:   t.EndedAt,
		Timeout:   t.Timeout.Nanoseconds(),
		Result:    t.Result,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromTaskModel(m *taskModel) (*task.Task, error) {
	parsedID, err := id.ParseTaskID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("delayq/mongo: parse task id %q: %w", m.ID, err)
	}

	return &task.Task{
		Entity: delayq.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        parsedID,
		Name:      m.Name,
		Service:   m.Service,
		Params:    m.Params,
		State:     task.State(m.State),
		RunAt:     m.RunAt,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
		Timeout:   time.Duration(m.Timeout),
		Result:    m.Result,
	}, nil
}
