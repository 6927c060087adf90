package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/delayq"
	"github.com/xraph/delayq/id"
	"github.com/xraph/delayq/task"
)

type taskModel struct {
	bun.BaseModel `bun:"table:delayq_tasks"`

	ID        string     `bun:"id,pk"`
	Name      string     `bun:"name,notnull,default:''"`
	Service   string     `bun:"service,notnull"`
	Params    []byte     `bun:"params,type:bytea"`
	State     string     `bun:"state,notnull,default:'ready'"`
	RunAt     time.Time  `bun:"run_at,notnull"`
	Timeout   int64      `bun:"timeout,notnull,default:0"`
	Result    string     `bun:"result,notnull,default:''"`
	StartedAt *time.Time `bun:"started_at"`
	EndedAt   *time.Time `bun:"ended_at"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
}

func toTaskModel(t *task.Task) *taskModel {
	return &taskModel{
		ID:        t.ID.String(),
		Name:      t.Name,
		Service:   t.Service,
		Params:    t.Params,
		State:     string(t.State),
		RunAt:     t.RunAt,
		Timeout:   t.Timeout.Nanoseconds(),
		Result:    t.Result,
		StartedAt: t.StartedAt,
		EndedAt:   t.EndedAt,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromTaskModel(m *taskModel) (*task.Task, error) {
	parsedID, err := id.ParseTaskID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("delayq/bun: parse task id %q: %w", m.ID, err)
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
		Timeout:   time.Duration(m.Timeout),
		Result:    m.Result,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}, nil
}
