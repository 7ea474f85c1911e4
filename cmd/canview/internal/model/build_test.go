package model

import (
	"errors"
	"sort"
	"testing"
)

type sigKey struct {
	id   uint32
	name string
}

type fakeDoc struct {
	messages    []RawMessage
	sigComments map[sigKey]string
	msgComments map[uint32]string
	tables      map[sigKey][]ValueDescription
}

func (d *fakeDoc) Messages() []RawMessage { return d.messages }

func (d *fakeDoc) SignalComment(id uint32, signal string) (string, bool) {
	c, ok := d.sigComments[sigKey{id, signal}]
	return c, ok
}

func (d *fakeDoc) MessageComment(id uint32) (string, bool) {
	c, ok := d.msgComments[id]
	return c, ok
}

func (d *fakeDoc) ValueTable(id uint32, signal string) []ValueDescription {
	return d.tables[sigKey{id, signal}]
}

func TestBuildNilDocument(t *testing.T) {
	m, err := Build(nil)
	if m != nil {
		t.Fatalf("expected no model, got %+v", m)
	}
	if !errors.Is(err, &SchemaError{Kind: ErrIncomplete}) {
		t.Fatalf("expected incomplete document error, got %v", err)
	}
}

func TestBuildMergesMessagesByTransmitter(t *testing.T) {
	doc := &fakeDoc{messages: []RawMessage{
		{ID: 0x100, Name: "A1", Transmitter: "ECU_A"},
		{ID: 0x200, Name: "B1", Transmitter: "ECU_B"},
		{ID: 0x101, Name: "A2", Transmitter: "ECU_A"},
	}}

	m, err := Build(doc)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if len(m.Ecus) != 2 {
		t.Fatalf("expected 2 ECUs, got %d", len(m.Ecus))
	}
	if m.Ecus[0].Name != "ECU_A" || m.Ecus[1].Name != "ECU_B" {
		t.Fatalf("unexpected ECU order: %q, %q", m.Ecus[0].Name, m.Ecus[1].Name)
	}
	a := m.Ecus[0]
	if len(a.Messages) != 2 || a.Messages[0].ID != 0x100 || a.Messages[1].ID != 0x101 {
		t.Fatalf("ECU_A messages not merged in order: %+v", a.Messages)
	}
}

func TestBuildGroupingIgnoresDeclarationOrder(t *testing.T) {
	msgs := []RawMessage{
		{ID: 1, Transmitter: "X"},
		{ID: 2, Transmitter: "Y"},
		{ID: 3, Transmitter: "X"},
		{ID: 4, Transmitter: NoTransmitter},
	}
	reversed := make([]RawMessage, len(msgs))
	for i := range msgs {
		reversed[len(msgs)-1-i] = msgs[i]
	}

	a, err := Build(&fakeDoc{messages: msgs})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	b, err := Build(&fakeDoc{messages: reversed})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	if got, want := grouping(b), grouping(a); !equalGrouping(got, want) {
		t.Fatalf("grouping differs: %v vs %v", got, want)
	}
}

func grouping(m *Model) map[string][]uint32 {
	out := make(map[string][]uint32)
	for _, e := range m.Ecus {
		for _, msg := range e.Messages {
			out[e.Name] = append(out[e.Name], msg.ID)
		}
		sort.Slice(out[e.Name], func(i, j int) bool { return out[e.Name][i] < out[e.Name][j] })
	}
	return out
}

func equalGrouping(a, b map[string][]uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for k, ids := range a {
		other, ok := b[k]
		if !ok || len(other) != len(ids) {
			return false
		}
		for i := range ids {
			if ids[i] != other[i] {
				return false
			}
		}
	}
	return true
}

func TestBuildNoTransmitterUsesPlaceholder(t *testing.T) {
	m, err := Build(&fakeDoc{messages: []RawMessage{{ID: 7, Name: "Orphan"}}})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	ecu, ok := m.Ecu(NullSender)
	if !ok {
		t.Fatalf("expected ECU %q", NullSender)
	}
	if len(ecu.Messages) != 1 || ecu.Messages[0].Name != "Orphan" {
		t.Fatalf("unexpected messages: %+v", ecu.Messages)
	}
}

func TestBuildDuplicateIDsAcrossEcus(t *testing.T) {
	m, err := Build(&fakeDoc{messages: []RawMessage{
		{ID: 0x10, Name: "First", Transmitter: "A"},
		{ID: 0x10, Name: "Second", Transmitter: "B"},
	}})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	msgs := m.Messages(0x10)
	if len(msgs) != 2 {
		t.Fatalf("expected both messages to be kept, got %d", len(msgs))
	}
	if m.EcuOf(msgs[0]) != "A" || m.EcuOf(msgs[1]) != "B" {
		t.Fatalf("unexpected owners %q, %q", m.EcuOf(msgs[0]), m.EcuOf(msgs[1]))
	}
}

func TestBuildPassesExtendedIDThrough(t *testing.T) {
	const id = 0x80000123
	m, err := Build(&fakeDoc{messages: []RawMessage{{ID: id, Transmitter: "A"}}})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if m.Ecus[0].Messages[0].ID != id {
		t.Fatalf("unexpected id 0x%08x", m.Ecus[0].Messages[0].ID)
	}
	if len(m.Messages(id)) != 1 {
		t.Fatalf("lookup by extended id failed")
	}
}

func TestResolveSignalTypes(t *testing.T) {
	doc := &fakeDoc{
		messages: []RawMessage{{
			ID:          0x100,
			Transmitter: "ECU",
			Signals: []RawSignal{
				{Name: "Flag", Length: 1},
				{Name: "Gear", Length: 3},
				{Name: "Temp", Length: 12, Factor: 0.1, Offset: -40},
			},
		}},
		tables: map[sigKey][]ValueDescription{
			{0x100, "Flag"}: {{0, "Off"}, {1, "On"}},
			{0x100, "Gear"}: {{3, "C"}, {1, "A"}, {2, "B"}},
		},
	}

	m, err := Build(doc)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	sigs := m.Ecus[0].Messages[0].Signals

	if sigs[0].Type.Kind != Bool {
		t.Fatalf("one-bit signal with value table resolved to %v", sigs[0].Type.Kind)
	}

	gear := sigs[1].Type
	if gear.Kind != Enum {
		t.Fatalf("expected enum, got %v", gear.Kind)
	}
	want := []ValueDescription{{1, "A"}, {2, "B"}, {3, "C"}}
	if len(gear.Table) != len(want) {
		t.Fatalf("unexpected table %+v", gear.Table)
	}
	for i := range want {
		if gear.Table[i] != want[i] {
			t.Fatalf("table[%d] = %+v, want %+v", i, gear.Table[i], want[i])
		}
	}
	if doc.tables[sigKey{0x100, "Gear"}][0].Value != 3 {
		t.Fatalf("document value table was reordered in place")
	}

	temp := sigs[2].Type
	if temp.Kind != Linear || temp.Multiplier != 0.1 || temp.Offset != -40 {
		t.Fatalf("unexpected linear type %+v", temp)
	}
}

func TestBuildAttachesComments(t *testing.T) {
	doc := &fakeDoc{
		messages: []RawMessage{{
			ID:          0x42,
			Transmitter: "ECU",
			Signals:     []RawSignal{{Name: "Speed", Length: 16}, {Name: "Other", Length: 8}},
		}},
		sigComments: map[sigKey]string{{0x42, "Speed"}: "vehicle speed"},
		msgComments: map[uint32]string{0x42: "chassis status"},
	}

	m, err := Build(doc)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	msg := m.Ecus[0].Messages[0]
	if msg.Comment == nil || *msg.Comment != "chassis status" {
		t.Fatalf("unexpected message comment %v", msg.Comment)
	}
	if msg.Signals[0].Comment == nil || *msg.Signals[0].Comment != "vehicle speed" {
		t.Fatalf("unexpected signal comment %v", msg.Signals[0].Comment)
	}
	if msg.Signals[1].Comment != nil {
		t.Fatalf("expected no comment, got %q", *msg.Signals[1].Comment)
	}
	if m.SignalCount() != 2 {
		t.Fatalf("expected 2 signals, got %d", m.SignalCount())
	}
}

func TestSchemaErrorMessage(t *testing.T) {
	err := &SchemaError{Kind: ErrGrammar, Detail: "bad SG_", Line: 12}
	if got, want := err.Error(), "line 12: grammar error: bad SG_"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if errors.Is(err, &SchemaError{Kind: ErrIncomplete}) {
		t.Fatalf("kinds must not match across categories")
	}
}
