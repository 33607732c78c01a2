package service

import (
	"fmt"

	"taskhive/todo-api/internal/store"

	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// RedisOpt builds the queue connection options from config
func RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr: viper.GetString("redis.addr"),
	}
}

// NewWorker builds the asynq server that delivers confirmation mails
// and runs the account reaper. Call Start on the returned server
func NewWorker(accounts store.AccountStore) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(RedisOpt(), asynq.Config{
		Concurrency: 5,
		Logger:      zap.L().Sugar(),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCodeMail, HandleCodeMailTask)
	mux.HandleFunc(TypeAccountReap, NewReaper(accounts).HandleAccountReapTask)

	return srv, mux
}

// NewScheduler builds the fixed-interval trigger for the reaper. The
// reap itself is idempotent, so an occasional duplicate trigger from
// the at-least-once queue is harmless
func NewScheduler() (*asynq.Scheduler, error) {
	sched := asynq.NewScheduler(RedisOpt(), &asynq.SchedulerOpts{
		Logger: zap.L().Sugar(),
	})

	if _, err := sched.Register("@every 1h", NewAccountReapTask()); err != nil {
		return nil, fmt.Errorf("failed to register account reap schedule, %w", err)
	}

	return sched, nil
}
