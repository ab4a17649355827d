package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Cristiano-Saldanha-Uk/Scalping-Bot/services/engine"
)

const DefaultStreamURL = "wss://stream.data.alpaca.markets/v2/iex"

type StreamConfig struct {
	URL          string
	APIKey       string
	SecretKey    string
	Symbols      []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
	Retry        RetryPolicy
}

// StreamSource subscribes to minute bars over a websocket and reconnects
// with the retry policy when the connection drops
type StreamSource struct {
	cfg    StreamConfig
	log    *zap.Logger
	dialer *websocket.Dialer

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn

	events    chan Event
	errs      chan error
	done      chan struct{}
	closeOnce sync.Once
}

type streamMsg struct {
	T    string  `json:"T"`
	Msg  string  `json:"msg"`
	Code int     `json:"code"`
	S    string  `json:"S"`
	O    float64 `json:"o"`
	H    float64 `json:"h"`
	L    float64 `json:"l"`
	C    float64 `json:"c"`
	V    float64 `json:"v"`
	Time string  `json:"t"`
}

func NewStreamSource(cfg StreamConfig, logger *zap.Logger) *StreamSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.URL == "" {
		cfg.URL = DefaultStreamURL
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 90 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &StreamSource{
		cfg:    cfg,
		log:    logger,
		dialer: websocket.DefaultDialer,
		events: make(chan Event, 256),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
}

// Connect dials, authenticates and subscribes
func (s *StreamSource) Connect(ctx context.Context) error {
	return s.cfg.Retry.Do(ctx, s.connectOnce)
}

func (s *StreamSource) connectOnce(ctx context.Context) error {
	conn, resp, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		if resp != nil && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return fmt.Errorf("dial %s: HTTP %d: %w", s.cfg.URL, resp.StatusCode, err)
		}
		return Transient(fmt.Errorf("dial %s: %w", s.cfg.URL, err))
	}
	conn.SetReadLimit(1 << 20)
	if err := s.handshake(conn); err != nil {
		conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	stop := make(chan struct{})
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})
	go s.readPump(conn, stop)
	go s.pingLoop(conn, stop)
	s.log.Info("stream connected", zap.String("url", s.cfg.URL), zap.Strings("symbols", s.cfg.Symbols))
	return nil
}

func (s *StreamSource) handshake(conn *websocket.Conn) error {
	if err := s.await(conn, "connected"); err != nil {
		return err
	}
	if err := s.write(conn, map[string]any{"action": "auth", "key": s.cfg.APIKey, "secret": s.cfg.SecretKey}); err != nil {
		return Transient(err)
	}
	if err := s.await(conn, "authenticated"); err != nil {
		return err
	}
	if err := s.write(conn, map[string]any{"action": "subscribe", "bars": s.cfg.Symbols}); err != nil {
		return Transient(err)
	}
	return nil
}

// await reads control messages until a success carrying want arrives
func (s *StreamSource) await(conn *websocket.Conn, want string) error {
	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return Transient(fmt.Errorf("waiting for %s: %w", want, err))
		}
		var msgs []streamMsg
		if err := json.Unmarshal(data, &msgs); err != nil {
			return fmt.Errorf("waiting for %s: %w", want, err)
		}
		for _, m := range msgs {
			switch {
			case m.T == "error":
				return streamError(m)
			case m.T == "success" && m.Msg == want:
				return nil
			}
		}
	}
}

// Alpaca codes 406 (connection limit), 407 (slow client) and 5xx are retryable
func streamError(m streamMsg) error {
	err := fmt.Errorf("stream error %d: %s", m.Code, m.Msg)
	if m.Code == 406 || m.Code == 407 || m.Code >= 500 {
		return Transient(err)
	}
	return err
}

func (s *StreamSource) write(conn *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	return conn.WriteJSON(v)
}

func (s *StreamSource) readPump(conn *websocket.Conn, stop chan struct{}) {
	defer close(stop)
	for {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.fail(Transient(fmt.Errorf("stream read: %w", err)))
			return
		}
		var msgs []streamMsg
		if err := json.Unmarshal(data, &msgs); err != nil {
			s.log.Warn("dropping malformed stream message", zap.Error(err))
			continue
		}
		for _, m := range msgs {
			switch m.T {
			case "b":
				ev, err := m.event()
				if err != nil {
					s.log.Warn("dropping malformed bar", zap.String("symbol", m.S), zap.Error(err))
					continue
				}
				select {
				case s.events <- ev:
				case <-s.done:
					return
				}
			case "error":
				s.fail(streamError(m))
				return
			}
		}
	}
}

func (s *StreamSource) pingLoop(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteTimeout))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *StreamSource) fail(err error) {
	select {
	case s.errs <- err:
	case <-s.done:
	}
}

func (m streamMsg) event() (Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, m.Time)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Symbol: m.S,
		Bar:    engine.Bar{Timestamp: ts.UTC(), Open: m.O, High: m.H, Low: m.L, Close: m.C},
	}, nil
}

// Next blocks for the next bar. A dropped connection is re-established
// before returning; only fatal errors or exhausted retries surface.
func (s *StreamSource) Next(ctx context.Context) (Event, error) {
	s.mu.Lock()
	connected := s.conn != nil
	s.mu.Unlock()
	if !connected {
		if err := s.Connect(ctx); err != nil {
			return Event{}, err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return Event{}, ctx.Err()
		case <-s.done:
			return Event{}, fmt.Errorf("stream closed")
		case ev := <-s.events:
			return ev, nil
		case err := <-s.errs:
			s.dropConn()
			if !IsTransient(err) {
				return Event{}, err
			}
			s.log.Warn("stream dropped, reconnecting", zap.Error(err))
			if err := s.Connect(ctx); err != nil {
				return Event{}, err
			}
		}
	}
}

func (s *StreamSource) dropConn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *StreamSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.dropConn()
	})
	return nil
}
