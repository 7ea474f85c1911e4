package dbc

import "github.com/example/canview/cmd/canview/internal/model"

var _ model.Document = (*File)(nil)

// Version returns the VERSION string, if any.
func (f *File) Version() string { return f.version }

// Nodes returns the node names declared by BU_.
func (f *File) Nodes() []string { return f.nodes }

func (f *File) Messages() []model.RawMessage { return f.messages }

func (f *File) SignalComment(id uint32, signal string) (string, bool) {
	c, ok := f.sigComments[sigKey{id, signal}]
	return c, ok
}

func (f *File) MessageComment(id uint32) (string, bool) {
	c, ok := f.msgComments[id]
	return c, ok
}

func (f *File) ValueTable(id uint32, signal string) []model.ValueDescription {
	return f.tables[sigKey{id, signal}]
}
