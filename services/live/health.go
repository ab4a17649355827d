package live

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/broker"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/market"
)

// Job is a periodic background task
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs jobs on cron schedules such as "@every 1m"
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{cron: cron.New(), log: logger.With(zap.String("component", "scheduler"))}
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			s.log.Error("job failed", zap.String("job", job.Name()), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	s.log.Info("job registered", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

// HealthJob logs market state, broker reachability and runner progress
type HealthJob struct {
	runner  *Runner
	broker  broker.Broker
	session *market.Session
	stale   time.Duration
	log     *zap.Logger
	now     func() time.Time
}

func NewHealthJob(r *Runner, b broker.Broker, session *market.Session, stale time.Duration, logger *zap.Logger) *HealthJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stale <= 0 {
		stale = 5 * time.Minute
	}
	return &HealthJob{runner: r, broker: b, session: session, stale: stale, log: logger.With(zap.String("job", "health")), now: time.Now}
}

func (j *HealthJob) Name() string { return "health" }

func (j *HealthJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := j.now()
	stats := j.runner.Stats()
	open := j.session == nil || j.session.IsOpen(now)
	j.log.Info("status",
		zap.Bool("market_open", open),
		zap.Int("bars", stats.Bars),
		zap.Int("open_positions", stats.OpenCount),
		zap.Int("trades", stats.Exits),
		zap.Float64("pnl", stats.PnL))

	if err := j.broker.Ping(ctx); err != nil {
		return fmt.Errorf("broker unreachable: %w", err)
	}
	if open && !stats.LastBar.IsZero() && now.Sub(stats.LastBar) > j.stale {
		return fmt.Errorf("feed stale: last bar %s ago", now.Sub(stats.LastBar).Round(time.Second))
	}
	return nil
}
