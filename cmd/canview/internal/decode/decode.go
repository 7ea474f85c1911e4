// Package decode turns raw frame payloads into physical signal values using
// a built model. All functions are pure and safe for concurrent use.
package decode

import (
	"errors"
	"strconv"

	"github.com/example/canview/cmd/canview/internal/model"
)

// ErrRangeTooBig reports a payload too short for the signal's bit span.
var ErrRangeTooBig = errors.New("decode: signal range exceeds payload")

// InvalidLabel is attached to enum values missing from the value table.
const InvalidLabel = "INVALID VALUE"

// ValueKind tags a decoded Value.
type ValueKind int

const (
	KindNumber ValueKind = iota
	KindBool
	KindEnum
)

// Value is a decoded signal. Bool is set for KindBool, Number and Unit for
// KindNumber, Raw and Label for KindEnum.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
	Unit   string
	Raw    int64
	Label  string
}

// String renders the value for display. It is not a round-trip format.
func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindEnum:
		return strconv.FormatInt(v.Raw, 10) + " (" + v.Label + ")"
	default:
		s := strconv.FormatFloat(v.Number, 'g', -1, 64)
		if v.Unit != "" {
			s += " " + v.Unit
		}
		return s
	}
}

// Signal decodes sig from payload.
func Signal(sig *model.Signal, payload []byte) (Value, error) {
	raw, err := extract(sig, payload)
	if err != nil {
		return Value{}, err
	}

	switch sig.Type.Kind {
	case model.Bool:
		return Value{Kind: KindBool, Bool: raw != 0}, nil
	case model.Enum:
		for _, e := range sig.Type.Table {
			if e.Value == raw {
				return Value{Kind: KindEnum, Raw: raw, Label: e.Label}, nil
			}
		}
		return Value{Kind: KindEnum, Raw: raw, Label: InvalidLabel}, nil
	default:
		return Value{
			Kind:   KindNumber,
			Number: float64(raw)*sig.Type.Multiplier + sig.Type.Offset,
			Unit:   sig.Unit,
		}, nil
	}
}

// Result is the outcome of decoding one signal of a message.
type Result struct {
	Signal *model.Signal
	Value  Value
	Err    error
}

// Message decodes every signal of msg from payload in declaration order.
// A failing signal is reported in its Result and does not stop the rest.
func Message(msg *model.Message, payload []byte) []Result {
	out := make([]Result, len(msg.Signals))
	for i := range msg.Signals {
		sig := &msg.Signals[i]
		v, err := Signal(sig, payload)
		out[i] = Result{Signal: sig, Value: v, Err: err}
	}
	return out
}
