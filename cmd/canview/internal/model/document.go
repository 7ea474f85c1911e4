package model

// Transmitter names the node sending a message.
type Transmitter string

// NoTransmitter is the sentinel a Document uses for a message without a
// declared sender.
const NoTransmitter Transmitter = ""

// NullSender is the ECU name messages without a transmitter are grouped
// under.
const NullSender = "NULL SENDER"

// RawSignal is a signal as declared by the schema, before type resolution.
type RawSignal struct {
	Name     string
	StartBit uint64
	Length   uint64
	Order    ByteOrder
	Signed   bool
	Factor   float64
	Offset   float64
	Min      float64
	Max      float64
	Unit     string
}

// RawMessage is a message as declared by the schema.
type RawMessage struct {
	ID          uint32
	Name        string
	Size        uint64
	Transmitter Transmitter
	Signals     []RawSignal
}

// Document is the parsed schema handed to Build. Implementations must not
// be modified while Build runs.
type Document interface {
	// Messages lists the declared messages in schema order.
	Messages() []RawMessage
	// SignalComment returns the free-text comment of a signal.
	SignalComment(id uint32, signal string) (string, bool)
	// MessageComment returns the free-text comment of a message.
	MessageComment(id uint32) (string, bool)
	// ValueTable returns the enumerated values of a signal, or nil.
	ValueTable(id uint32, signal string) []ValueDescription
}
