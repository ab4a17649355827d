// Package api exposes backtests over HTTP (gin) and gRPC
package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	pb "github.com/Cristiano-Saldanha-Uk/Scalping-Bot/proto"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/config"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
)

type Options struct {
	Provider   feed.History
	Simulator  *engine.Simulator
	Strategies []engine.RuleSet
	Snapshot   *config.ConfigSnapshot
	Version    string
	JobTimeout time.Duration
	MaxJobs    int
	Logger     *zap.Logger
}

// Service runs backtest requests against a bar provider
type Service struct {
	pb.UnimplementedBacktestServiceServer

	provider   feed.History
	sim        *engine.Simulator
	catalog    []engine.RuleSet
	byName     map[string]engine.RuleSet
	snapshot   *config.ConfigSnapshot
	version    string
	jobTimeout time.Duration
	jobs       *JobStore
	logger     *zap.Logger
	wg         sync.WaitGroup
}

func NewService(o Options) (*Service, error) {
	if o.Provider == nil {
		return nil, errors.New("api: bar provider required")
	}
	if len(o.Strategies) == 0 {
		return nil, errors.New("api: at least one strategy required")
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Simulator == nil {
		sim, err := engine.NewSimulator(engine.DefaultSimConfig(), o.Logger)
		if err != nil {
			return nil, err
		}
		o.Simulator = sim
	}
	if o.JobTimeout <= 0 {
		o.JobTimeout = 10 * time.Minute
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	byName := make(map[string]engine.RuleSet, len(o.Strategies))
	for _, r := range o.Strategies {
		byName[r.Name] = r
	}
	return &Service{
		provider:   o.Provider,
		sim:        o.Simulator,
		catalog:    o.Strategies,
		byName:     byName,
		snapshot:   o.Snapshot,
		version:    o.Version,
		jobTimeout: o.JobTimeout,
		jobs:       NewJobStore(o.MaxJobs),
		logger:     o.Logger,
	}, nil
}

func (s *Service) Strategies() []engine.RuleSet { return s.catalog }

func (s *Service) Jobs() *JobStore { return s.jobs }

// prepare validates the request and resolves its rule sets
func (s *Service) prepare(req *pb.BacktestRequest) ([]engine.RuleSet, *APIError) {
	if len(req.Symbols) == 0 {
		return nil, ErrInvalidParams.WithDetails("symbols required")
	}
	if req.EndTime != 0 && req.EndTime <= req.StartTime {
		return nil, ErrInvalidParams.WithDetails("end_time must be after start_time")
	}
	if req.StartingCapital < 0 {
		return nil, ErrInvalidParams.WithDetails("starting_capital must be positive")
	}
	if len(req.Strategies) == 0 {
		return s.catalog, nil
	}
	rules := make([]engine.RuleSet, 0, len(req.Strategies))
	for _, name := range req.Strategies {
		r, ok := s.byName[name]
		if !ok {
			return nil, ErrInvalidStrategy.WithDetails(name)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Execute runs the request synchronously
func (s *Service) Execute(ctx context.Context, jobID string, req *pb.BacktestRequest) (*pb.BacktestResponse, error) {
	start := time.Now()
	rules, apiErr := s.prepare(req)
	if apiErr != nil {
		return nil, apiErr
	}
	from := time.UnixMilli(req.StartTime).UTC()
	to := time.Now().UTC()
	if req.EndTime != 0 {
		to = time.UnixMilli(req.EndTime).UTC()
	}

	s.logger.Info("Starting backtest execution",
		zap.String("job_id", jobID),
		zap.Strings("symbols", req.Symbols),
		zap.Int("strategies", len(rules)),
		zap.Time("from", from),
		zap.Time("to", to))

	series, err := s.provider.LoadSeries(ctx, req.Symbols, from, to)
	if err != nil {
		return nil, ErrDataNotFound.WithDetails(err.Error())
	}

	sim := s.sim
	if req.StartingCapital > 0 {
		cfg := sim.Config()
		cfg.StartingCapital = req.StartingCapital
		if sim, err = engine.NewSimulator(cfg, s.logger); err != nil {
			return nil, ErrInvalidParams.WithDetails(err.Error())
		}
	}
	results, err := sim.RunAll(ctx, series, rules)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrTimeout.WithDetails(err.Error())
		}
		return nil, ErrExecutionFailed.WithDetails(err.Error())
	}

	resp := &pb.BacktestResponse{
		JobId:         jobID,
		ExecutionTime: time.Since(start).Milliseconds(),
		Results:       make([]*pb.StrategyResult, len(results)),
		Manifest:      s.manifest(jobID, results),
	}
	for i, r := range results {
		resp.Results[i] = convertResult(r)
	}
	s.logger.Info("Backtest completed",
		zap.String("job_id", jobID),
		zap.Int64("execution_ms", resp.ExecutionTime))
	return resp, nil
}

// RunBacktest implements the gRPC service
func (s *Service) RunBacktest(ctx context.Context, req *pb.BacktestRequest) (*pb.BacktestResponse, error) {
	return s.Execute(ctx, uuid.NewString(), req)
}

// Submit queues the request and runs it in the background
func (s *Service) Submit(req *pb.BacktestRequest) (Job, *APIError) {
	if _, apiErr := s.prepare(req); apiErr != nil {
		return Job{}, apiErr
	}
	job := s.jobs.Create(req)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job.ID, req)
	}()
	return job, nil
}

func (s *Service) run(jobID string, req *pb.BacktestRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	s.jobs.update(jobID, func(j *Job) { j.Status = JobRunning })
	resp, err := s.Execute(ctx, jobID, req)
	if err != nil {
		apiErr := asAPIError(err)
		s.logger.Error("Backtest execution failed", zap.String("job_id", jobID), zap.Error(err))
		s.jobs.update(jobID, func(j *Job) {
			j.Status = JobFailed
			j.Error = apiErr
		})
		return
	}
	s.jobs.update(jobID, func(j *Job) {
		j.Status = JobCompleted
		j.Response = resp
	})
}

// Wait blocks until every background job has finished
func (s *Service) Wait() { s.wg.Wait() }

func asAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrExecutionFailed.WithDetails(err.Error())
}

func (s *Service) manifest(jobID string, results []engine.RunResult) *pb.RunManifest {
	m := &pb.RunManifest{JobId: jobID, EngineVersion: s.version, CreatedAt: time.Now().UnixMilli()}
	if len(results) > 0 {
		m.DataChecksum = results[0].DataChecksum
	}
	if s.snapshot != nil {
		m.ConfigHash = s.snapshot.ConfigHash
	}
	return m
}

func num(v float64) string { return decimal.NewFromFloat(v).String() }

func money(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

func convertResult(r engine.RunResult) *pb.StrategyResult {
	out := &pb.StrategyResult{
		Name:             r.Name,
		RunId:            r.RunID,
		RulesFingerprint: r.RulesFingerprint,
		Steps:            int32(r.Steps),
		Trades:           int32(r.Trades),
		Wins:             int32(r.Wins),
		Losses:           int32(r.Losses),
		WinRate:          decimal.NewFromFloat(r.WinRate()).StringFixed(4),
		Pnl:              money(r.PnL),
		StartingCapital:  money(r.StartingCapital),
		EndingCapital:    money(r.EndingCapital),
		MaxDrawdown:      decimal.NewFromFloat(r.MaxDrawdown).StringFixed(6),
		Summary:          engine.SummaryLine(r),
		ClosedTrades:     make([]*pb.ExecutedTrade, len(r.ClosedTrades)),
	}
	for i, t := range r.ClosedTrades {
		out.ClosedTrades[i] = &pb.ExecutedTrade{
			Id:         t.ID,
			Symbol:     t.Symbol,
			Side:       t.Side.String(),
			EntryTime:  t.EntryTime.UnixMilli(),
			ExitTime:   t.ExitTime.UnixMilli(),
			EntryPrice: num(t.EntryPrice),
			ExitPrice:  num(t.ExitPrice),
			Quantity:   num(t.Quantity),
			Pnl:        money(t.PnL),
			ReasonCode: string(t.Reason),
		}
	}
	for _, p := range r.OpenAtEnd {
		out.OpenAtEnd = append(out.OpenAtEnd, &pb.Position{
			Symbol:     p.Symbol,
			Side:       p.Side.String(),
			EntryTime:  p.EntryTime.UnixMilli(),
			EntryPrice: num(p.EntryPrice),
			Quantity:   num(p.Quantity),
		})
	}
	return out
}
