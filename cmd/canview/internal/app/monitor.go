package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/canview/cmd/canview/internal/decode"
	"github.com/example/canview/cmd/canview/internal/ebyte"
	"github.com/example/canview/cmd/canview/internal/slcan"
)

// extendedFlag marks extended identifiers in DBC message ids.
const extendedFlag = 1 << 31

// Observed is the latest frame seen for an identifier.
type Observed struct {
	Frame    ebyte.Frame
	Received time.Time
}

// Monitor decodes frames from one source against the current schema
// snapshot and hands the records to its sinks.
type Monitor struct {
	cfg Config

	snapshot atomic.Pointer[Snapshot]

	mu     sync.RWMutex
	frames map[uint32]Observed

	filter map[uint32]struct{}
	sinks  []Sink

	logger Logger
}

// New loads the schema named in cfg and prepares the output sinks. The MQTT
// sink is connected by Run.
func New(cfg Config) (*Monitor, error) {
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	var out Sink
	switch strings.ToLower(cfg.Output) {
	case "", "log":
		out = NewLogSink(logger)
	case "json":
		out = NewJSONSink(os.Stdout)
	default:
		return nil, fmt.Errorf("unknown output %q", cfg.Output)
	}

	m := newMonitor(cfg, logger, out)
	if err := m.Reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func newMonitor(cfg Config, logger Logger, sinks ...Sink) *Monitor {
	m := &Monitor{
		cfg:    cfg,
		frames: make(map[uint32]Observed),
		filter: make(map[uint32]struct{}, len(cfg.Filter)),
		sinks:  sinks,
		logger: logger,
	}
	for _, id := range cfg.Filter {
		m.filter[id] = struct{}{}
	}
	return m
}

// Reload rebuilds the model from the configured schema and publishes it.
// On failure the previous model stays in use.
func (m *Monitor) Reload() error {
	snap, err := loadSnapshot(m.cfg.SchemaPath)
	if err != nil {
		m.logger.Errorf("schema load failed: %v", err)
		return err
	}
	m.snapshot.Store(snap)
	m.logger.Infof("loaded schema %s: %d ECUs, %d signals (generation %s)",
		snap.Source, len(snap.Model.Ecus), snap.Model.SignalCount(), snap.Generation)
	if snap.Version != "" || len(snap.Nodes) > 0 {
		m.logger.Debugf("schema version %q, nodes %s", snap.Version, strings.Join(snap.Nodes, " "))
	}
	return nil
}

// Snapshot returns the model currently used for decoding.
func (m *Monitor) Snapshot() *Snapshot {
	return m.snapshot.Load()
}

// Latest returns the most recent frame received for a schema id. Extended
// frames are stored with bit 31 set, standard frames under their plain id.
func (m *Monitor) Latest(id uint32) (Observed, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.frames[id]
	return o, ok
}

// Run reads frames from the replay file or the adapter until ctx is
// cancelled or the replay ends.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.MQTTBroker != "" {
		sink, err := DialMQTT(ctx, m.cfg, m.logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				m.logger.Warnf("mqtt disconnect: %v", err)
			}
		}()
		m.sinks = append(m.sinks, sink)
	}

	frames := make(chan ebyte.Frame, 256)
	errCh := make(chan error, 1)

	go func() {
		var err error
		if m.cfg.ReplayPath != "" {
			err = m.replay(ctx, frames)
		} else {
			err = m.runAdapterLoop(ctx, frames)
		}
		close(frames)
		errCh <- err
	}()

	for {
		select {
		case <-ctx.Done():
			m.logger.Infof("context cancelled")
			return nil
		case frame, ok := <-frames:
			if !ok {
				err := <-errCh
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			m.handleFrame(ctx, frame)
		}
	}
}

func (m *Monitor) handleFrame(ctx context.Context, frame ebyte.Frame) {
	now := time.Now()
	id := schemaID(frame)
	m.mu.Lock()
	m.frames[id] = Observed{Frame: frame, Received: now}
	m.mu.Unlock()

	if frame.Remote {
		return
	}
	if len(m.filter) > 0 {
		if _, ok := m.filter[id]; !ok {
			return
		}
	}

	snap := m.snapshot.Load()
	if snap == nil {
		return
	}
	payload := frame.Payload()
	for _, msg := range snap.Model.Messages(id) {
		rec := Record{
			Generation: snap.Generation,
			Time:       now,
			ID:         id,
			Ecu:        snap.Model.EcuOf(msg),
			Message:    msg.Name,
			Raw:        strings.TrimSuffix(slcan.EncodeFrame(frame), "\r"),
		}
		for _, res := range decode.Message(msg, payload) {
			sr := SignalRecord{Name: res.Signal.Name}
			if res.Err != nil {
				m.logger.Debugf("%s.%s: %v", msg.Name, res.Signal.Name, res.Err)
				sr.Error = res.Err.Error()
			} else {
				sr.Value = res.Value.String()
			}
			rec.Signals = append(rec.Signals, sr)
		}

		for _, s := range m.sinks {
			if err := s.Publish(ctx, rec); err != nil {
				m.logger.Warnf("failed to publish %s: %v", msg.Name, err)
			}
		}
	}
}

// schemaID maps a bus identifier onto the schema's message id, which sets
// the top bit for extended frames.
func schemaID(frame ebyte.Frame) uint32 {
	if frame.Extended {
		return frame.ID | extendedFlag
	}
	return frame.ID
}

func (m *Monitor) replay(ctx context.Context, out chan<- ebyte.Frame) error {
	f, err := os.Open(m.cfg.ReplayPath)
	if err != nil {
		return fmt.Errorf("open replay: %w", err)
	}
	defer f.Close()
	m.logger.Infof("replaying %s", m.cfg.ReplayPath)

	s := slcan.NewScanner(f)
	for {
		frame, err := s.Next()
		if errors.Is(err, io.EOF) {
			m.logger.Infof("replay finished")
			return nil
		}
		var le *slcan.LineError
		if errors.As(err, &le) {
			m.logger.Warnf("skipping replay %v", le)
			continue
		}
		if err != nil {
			return fmt.Errorf("replay read: %w", err)
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
		if m.cfg.ReplayInterval > 0 {
			if err := sleep(ctx, m.cfg.ReplayInterval); err != nil {
				return err
			}
		}
	}
}

func (m *Monitor) runAdapterLoop(ctx context.Context, out chan<- ebyte.Frame) error {
	for {
		if err := m.connectAndServe(ctx, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Warnf("adapter loop error: %v", err)
			if err := sleep(ctx, m.cfg.ReconnectDelay); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

func (m *Monitor) connectAndServe(ctx context.Context, out chan<- ebyte.Frame) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", m.cfg.EByteAddress)
	if err != nil {
		return fmt.Errorf("dial adapter: %w", err)
	}
	m.logger.Infof("connected to adapter at %s", conn.RemoteAddr())
	defer func() {
		_ = conn.Close()
		m.logger.Infof("disconnected from adapter")
	}()

	r := ebyte.NewReader(conn)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
		frame, err := r.Next()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if errors.Is(err, ebyte.ErrInvalidFrame) {
				m.logger.Warnf("discarding invalid frame: %v", err)
				continue
			}
			return fmt.Errorf("adapter read: %w", err)
		}

		select {
		case out <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
