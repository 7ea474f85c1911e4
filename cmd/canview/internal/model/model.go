// Package model holds the immutable ECU → message → signal tree built from
// a parsed CAN schema.
package model

// ByteOrder describes how a signal's bits are laid out in the payload.
type ByteOrder int

const (
	// LittleEndian is the Intel layout (DBC "@1").
	LittleEndian ByteOrder = iota
	// BigEndian is the Motorola layout (DBC "@0").
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big-endian"
	}
	return "little-endian"
}

// TypeKind tags the representation chosen for a signal.
type TypeKind int

const (
	Linear TypeKind = iota
	Bool
	Enum
)

func (k TypeKind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Enum:
		return "enum"
	default:
		return "linear"
	}
}

// ValueDescription pairs a raw integer with its label in a value table.
type ValueDescription struct {
	Value int64
	Label string
}

// SignalType is the resolved representation of a signal. Multiplier and
// Offset are meaningful for Linear, Table for Enum.
type SignalType struct {
	Kind       TypeKind
	Multiplier float64
	Offset     float64
	Table      []ValueDescription
}

// Signal is one bit field inside a message payload.
type Signal struct {
	Name     string
	Comment  *string
	Type     SignalType
	Order    ByteOrder
	StartBit uint64
	Length   uint64
	Unit     string
	Min      float64
	Max      float64
	Signed   bool
}

// Message is a frame layout. ID is passed through from the schema,
// including any extended-frame flag bits.
type Message struct {
	ID      uint32
	Name    string
	Comment *string
	Size    uint64
	Signals []Signal
}

// Ecu owns the messages it transmits, in discovery order.
type Ecu struct {
	Name     string
	Messages []Message
}

// Model is the built tree. It is never mutated after Build returns.
type Model struct {
	Ecus []Ecu

	byID map[uint32][]msgRef
}

type msgRef struct {
	ecu int
	msg int
}

// Messages returns every message declared with id, in ECU discovery order.
func (m *Model) Messages(id uint32) []*Message {
	refs := m.byID[id]
	if len(refs) == 0 {
		return nil
	}
	out := make([]*Message, 0, len(refs))
	for _, r := range refs {
		out = append(out, &m.Ecus[r.ecu].Messages[r.msg])
	}
	return out
}

// Ecu looks up an ECU by name.
func (m *Model) Ecu(name string) (*Ecu, bool) {
	for i := range m.Ecus {
		if m.Ecus[i].Name == name {
			return &m.Ecus[i], true
		}
	}
	return nil, false
}

// EcuOf returns the name of the ECU owning msg. msg must point into this
// model, as returned by Messages.
func (m *Model) EcuOf(msg *Message) string {
	for _, r := range m.byID[msg.ID] {
		if &m.Ecus[r.ecu].Messages[r.msg] == msg {
			return m.Ecus[r.ecu].Name
		}
	}
	return ""
}

// SignalCount returns the number of signals across all messages.
func (m *Model) SignalCount() int {
	n := 0
	for _, e := range m.Ecus {
		for _, msg := range e.Messages {
			n += len(msg.Signals)
		}
	}
	return n
}
