package cluster

import (
	"context"

	"github.com/google/uuid"
)

type Worker interface {
	ID() string
	Ping(ctx context.Context) error
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// LocalWorker runs commands in the current process.
type LocalWorker struct {
	id       string
	executor *Executor
}

func NewLocalWorker(executor *Executor) *LocalWorker {
	return &LocalWorker{id: "local-" + uuid.NewString(), executor: executor}
}

func (w *LocalWorker) ID() string {
	return w.id
}

func (w *LocalWorker) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (w *LocalWorker) Execute(ctx context.Context, cmd Command) (Result, error) {
	return w.executor.Execute(ctx, cmd)
}
