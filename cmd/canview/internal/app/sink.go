package app

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one decoded message, as handed to sinks.
type Record struct {
	Generation string         `json:"generation"`
	Time       time.Time      `json:"t"`
	ID         uint32         `json:"id"`
	Ecu        string         `json:"ecu"`
	Message    string         `json:"message"`
	Raw        string         `json:"raw"`
	Signals    []SignalRecord `json:"signals"`
}

// SignalRecord is one decoded signal. Value is the display rendering; Error
// is set instead when the signal could not be decoded.
type SignalRecord struct {
	Name  string `json:"name"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Sink receives decoded records.
type Sink interface {
	Publish(ctx context.Context, rec Record) error
}

// LogSink writes one log line per record.
type LogSink struct {
	logger Logger
}

func NewLogSink(logger Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, rec Record) error {
	var b strings.Builder
	for i, sig := range rec.Signals {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sig.Name)
		b.WriteByte('=')
		if sig.Error != "" {
			b.WriteString("<" + sig.Error + ">")
		} else {
			b.WriteString(sig.Value)
		}
	}
	s.logger.Infof("%s %s (0x%X) %s", rec.Ecu, rec.Message, rec.ID, b.String())
	return nil
}

// JSONSink writes each record as one JSON line.
type JSONSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Publish(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(data)
	return err
}
