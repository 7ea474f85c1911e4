package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/canview/cmd/canview/internal/dbc"
	"github.com/example/canview/cmd/canview/internal/model"
	"github.com/example/canview/cmd/canview/internal/sheet"
)

// Snapshot is one published model. A reload publishes a new Snapshot and
// never modifies an existing one.
type Snapshot struct {
	Generation string
	Model      *model.Model
	Source     string
	LoadedAt   time.Time

	// Version and Nodes are set for DBC schemas.
	Version string
	Nodes   []string
}

// described is implemented by documents carrying a VERSION and node list.
type described interface {
	Version() string
	Nodes() []string
}

// loadSchema builds a model from a .dbc or .xlsx file and returns the
// document it was built from.
func loadSchema(path string) (*model.Model, model.Document, error) {
	var (
		doc model.Document
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		doc, err = sheet.Open(path)
	default:
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("read schema: %w", err)
		}
		doc, err = dbc.Parse(data)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	m, err := model.Build(doc)
	if err != nil {
		return nil, nil, err
	}
	return m, doc, nil
}

func loadSnapshot(path string) (*Snapshot, error) {
	m, doc, err := loadSchema(path)
	if err != nil {
		return nil, err
	}
	snap := newSnapshot(m, path)
	if d, ok := doc.(described); ok {
		snap.Version = d.Version()
		snap.Nodes = d.Nodes()
	}
	return snap, nil
}

func newSnapshot(m *model.Model, source string) *Snapshot {
	return &Snapshot{
		Generation: uuid.NewString(),
		Model:      m,
		Source:     source,
		LoadedAt:   time.Now(),
	}
}
