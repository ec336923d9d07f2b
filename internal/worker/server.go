// Package worker runs the background jobs enqueued by the chat service.
package worker

import (
	"context"
	"errors"

	"github.com/Divine-P-77777/studylocal/internal/config"
	"github.com/Divine-P-77777/studylocal/internal/tasks"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// WorkerServer wraps the asynq server start and shutdown.
type WorkerServer struct {
	server  *asynq.Server
	log     *logrus.Entry
	offline *OfflineMessageHandler
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, offline *OfflineMessageHandler, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: config.WorkerConcurrency,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
			Logger: logEntry,
		},
	)

	return &WorkerServer{server: server, log: logEntry, offline: offline}
}

// NewMux routes every task type to its handler.
func NewMux(offline *OfflineMessageHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeOfflineMessage, offline.ProcessTask)
	return mux
}

// Start runs the server until Shutdown. Call it in its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(NewMux(ws.offline)); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		ws.log.WithError(err).Error("Could not run worker server")
		return
	}
	ws.log.Info("Worker server stopped.")
}

func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
}
