// Package proto holds the wire messages and gRPC service of the backtest API.
// Messages travel with the JSON codec registered in codec.go.
package proto

type BacktestRequest struct {
	Symbols         []string `json:"symbols"`
	Strategies      []string `json:"strategies,omitempty"`
	StartTime       int64    `json:"start_time"`
	EndTime         int64    `json:"end_time"`
	StartingCapital float64  `json:"starting_capital,omitempty"`
}

type ExecutedTrade struct {
	Id         string `json:"id"`
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	EntryTime  int64  `json:"entry_time"`
	ExitTime   int64  `json:"exit_time"`
	EntryPrice string `json:"entry_price"`
	ExitPrice  string `json:"exit_price"`
	Quantity   string `json:"quantity"`
	Pnl        string `json:"pnl"`
	ReasonCode string `json:"reason_code"`
}

type Position struct {
	Symbol     string `json:"symbol"`
	Side       string `json:"side"`
	EntryTime  int64  `json:"entry_time"`
	EntryPrice string `json:"entry_price"`
	Quantity   string `json:"quantity"`
}

type StrategyResult struct {
	Name             string           `json:"name"`
	RunId            string           `json:"run_id"`
	RulesFingerprint string           `json:"rules_fingerprint"`
	Steps            int32            `json:"steps"`
	Trades           int32            `json:"trades"`
	Wins             int32            `json:"wins"`
	Losses           int32            `json:"losses"`
	WinRate          string           `json:"win_rate"`
	Pnl              string           `json:"pnl"`
	StartingCapital  string           `json:"starting_capital"`
	EndingCapital    string           `json:"ending_capital"`
	MaxDrawdown      string           `json:"max_drawdown"`
	Summary          string           `json:"summary"`
	ClosedTrades     []*ExecutedTrade `json:"closed_trades,omitempty"`
	OpenAtEnd        []*Position      `json:"open_at_end,omitempty"`
}

type RunManifest struct {
	JobId         string `json:"job_id"`
	DataChecksum  string `json:"data_checksum"`
	ConfigHash    string `json:"config_hash"`
	EngineVersion string `json:"engine_version"`
	CreatedAt     int64  `json:"created_at"`
}

type BacktestResponse struct {
	JobId         string            `json:"job_id"`
	ExecutionTime int64             `json:"execution_time_ms"`
	Results       []*StrategyResult `json:"results"`
	Manifest      *RunManifest      `json:"manifest,omitempty"`
}
