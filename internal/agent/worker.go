// internal/agent/worker.go
package agent

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Worker runs one task on a background goroutine and streams updates
// over a buffered channel. The channel is closed when the task finishes,
// after a final UpdateResponse carrying the terminal status.
type Worker struct {
	orch    *Orchestrator
	updates chan Update
	result  chan *TaskResult
	log     *zap.Logger
}

// NewWorker wires a worker to an orchestrator. queueSize bounds the
// update buffer; a slow consumer drops the oldest pending update rather
// than stalling the task.
func NewWorker(orch *Orchestrator, queueSize int, logger *zap.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	w := &Worker{
		orch:    orch,
		updates: make(chan Update, queueSize),
		result:  make(chan *TaskResult, 1),
		log:     logger.Named("worker"),
	}
	orch.notify = w.enqueue
	return w
}

// Updates is the stream of progress messages. It is closed when Run's
// task completes.
func (w *Worker) Updates() <-chan Update { return w.updates }

// Result yields the task's final result exactly once.
func (w *Worker) Result() <-chan *TaskResult { return w.result }

// Start launches the task in the background. Callers consume Updates
// and then receive from Result.
func (w *Worker) Start(ctx context.Context, request string) {
	go func() {
		defer close(w.updates)
		res := w.orch.RunTask(ctx, request)
		w.enqueue(Update{
			Kind: UpdateResponse,
			Line: "Task " + string(res.Status),
			Time: time.Now(),
		})
		w.result <- res
	}()
}

// enqueue never blocks the task goroutine. When the buffer is full the
// oldest pending update is discarded to make room.
func (w *Worker) enqueue(u Update) {
	for {
		select {
		case w.updates <- u:
			return
		default:
		}
		select {
		case old := <-w.updates:
			w.log.Debug("Update queue full, dropping oldest", zap.String("kind", string(old.Kind)))
		default:
		}
	}
}
