package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pb "github.com/Cristiano-Saldanha-Uk/Scalping-Bot/proto"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/feed"
	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/strategies"
)

var t0 = time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

type staticProvider struct {
	series []engine.Series
	err    error
}

func (p staticProvider) LoadSeries(context.Context, []string, time.Time, time.Time) ([]engine.Series, error) {
	return p.series, p.err
}

// oneWinningTrade opens a long on the 50th rising bar and takes profit on the next
func oneWinningTrade(symbol string) engine.Series {
	s := engine.Series{Symbol: symbol}
	for i := 0; i < 50; i++ {
		c := 100 + float64(i)*0.1
		s.Bars = append(s.Bars, engine.Bar{Timestamp: t0.Add(time.Duration(i) * time.Minute), Open: c, High: c, Low: c, Close: c})
	}
	c := s.Bars[49].Close * 1.003
	s.Bars = append(s.Bars, engine.Bar{Timestamp: t0.Add(50 * time.Minute), Open: c, High: c, Low: c, Close: c})
	return s
}

func newTestService(t *testing.T, p feed.History) *Service {
	t.Helper()
	s, err := NewService(Options{Provider: p, Strategies: strategies.Backtest(), Version: "test"})
	require.NoError(t, err)
	return s
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func init() { gin.SetMode(gin.TestMode) }

func balancedRequest() *pb.BacktestRequest {
	return &pb.BacktestRequest{Symbols: []string{"AAPL"}, Strategies: []string{strategies.Balanced.Name}}
}

func TestBacktestWait(t *testing.T) {
	s := newTestService(t, staticProvider{series: []engine.Series{oneWinningTrade("AAPL")}})
	w := do(t, NewRouter(s), http.MethodPost, "/api/v1/backtest?wait=true", balancedRequest())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, JobCompleted, job.Status)
	require.NotNil(t, job.Response)
	require.Len(t, job.Response.Results, 1)
	res := job.Response.Results[0]
	assert.Equal(t, "Strategy_3_Balanced", res.Name)
	assert.Equal(t, int32(1), res.Trades)
	assert.Equal(t, int32(1), res.Wins)
	assert.Equal(t, "1.0000", res.WinRate)
	require.Len(t, res.ClosedTrades, 1)
	assert.Equal(t, "take_profit", res.ClosedTrades[0].ReasonCode)
	assert.Equal(t, job.ID, job.Response.Manifest.JobId)
	assert.Equal(t, "test", job.Response.Manifest.EngineVersion)
	assert.NotEmpty(t, job.Response.Manifest.DataChecksum)
}

func TestBacktestAsync(t *testing.T) {
	s := newTestService(t, staticProvider{series: []engine.Series{oneWinningTrade("AAPL")}})
	r := NewRouter(s)

	w := do(t, r, http.MethodPost, "/api/v1/backtest", &pb.BacktestRequest{Symbols: []string{"AAPL"}})
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted struct {
		JobID string `json:"job_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted.JobID)

	s.Wait()
	w = do(t, r, http.MethodGet, "/api/v1/backtest/"+accepted.JobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var job Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &job))
	assert.Equal(t, JobCompleted, job.Status)
	assert.Len(t, job.Response.Results, len(strategies.Backtest()))
}

func TestBacktestErrors(t *testing.T) {
	s := newTestService(t, staticProvider{err: errors.New("no bars for AAPL")})
	r := NewRouter(s)

	cases := []struct {
		name   string
		path   string
		req    *pb.BacktestRequest
		status int
		code   string
	}{
		{"no symbols", "/api/v1/backtest", &pb.BacktestRequest{}, http.StatusBadRequest, "INVALID_PARAMS"},
		{"bad range", "/api/v1/backtest", &pb.BacktestRequest{Symbols: []string{"AAPL"}, StartTime: 10, EndTime: 5}, http.StatusBadRequest, "INVALID_PARAMS"},
		{"unknown strategy", "/api/v1/backtest", &pb.BacktestRequest{Symbols: []string{"AAPL"}, Strategies: []string{"nope"}}, http.StatusBadRequest, "INVALID_STRATEGY"},
		{"no data", "/api/v1/backtest?wait=true", balancedRequest(), http.StatusNotFound, "DATA_NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, tc.path, tc.req)
			assert.Equal(t, tc.status, w.Code)
			var body struct {
				Error APIError `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error.Code)
		})
	}

	w := do(t, r, http.MethodGet, "/api/v1/backtest/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStrategiesAndHealth(t *testing.T) {
	r := NewRouter(newTestService(t, staticProvider{}))

	w := do(t, r, http.MethodGet, "/api/v1/strategies", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Strategies []engine.RuleSet `json:"strategies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Strategies, 4)
	assert.Equal(t, "Strategy_1_High_RR", body.Strategies[0].Name)

	w = do(t, r, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)
}

func TestJobStoreEvictsFinishedJobs(t *testing.T) {
	s := NewJobStore(2)
	a := s.Create(&pb.BacktestRequest{})
	s.update(a.ID, func(j *Job) { j.Status = JobCompleted })
	b := s.Create(&pb.BacktestRequest{})
	c := s.Create(&pb.BacktestRequest{})

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get(a.ID)
	assert.False(t, ok)
	_, ok = s.Get(b.ID)
	assert.True(t, ok)
	_, ok = s.Get(c.ID)
	assert.True(t, ok)
}
