package model

import "sort"

// Build turns a parsed schema document into a Model. Messages are grouped
// under the ECU named by their transmitter; the first message seen for a
// transmitter creates the ECU. Problems with individual signals are left
// for decode time.
func Build(doc Document) (*Model, error) {
	if doc == nil {
		return nil, &SchemaError{Kind: ErrIncomplete, Detail: "no document"}
	}

	m := &Model{byID: make(map[uint32][]msgRef)}
	ecuIndex := make(map[string]int)

	for _, raw := range doc.Messages() {
		msg := Message{
			ID:      raw.ID,
			Name:    raw.Name,
			Comment: optional(doc.MessageComment(raw.ID)),
			Size:    raw.Size,
			Signals: make([]Signal, 0, len(raw.Signals)),
		}
		for _, rs := range raw.Signals {
			msg.Signals = append(msg.Signals, Signal{
				Name:     rs.Name,
				Comment:  optional(doc.SignalComment(raw.ID, rs.Name)),
				Type:     resolveType(doc, raw.ID, rs),
				Order:    rs.Order,
				StartBit: rs.StartBit,
				Length:   rs.Length,
				Unit:     rs.Unit,
				Min:      rs.Min,
				Max:      rs.Max,
				Signed:   rs.Signed,
			})
		}

		name := ecuName(raw.Transmitter)
		idx, ok := ecuIndex[name]
		if !ok {
			idx = len(m.Ecus)
			ecuIndex[name] = idx
			m.Ecus = append(m.Ecus, Ecu{Name: name})
		}
		ecu := &m.Ecus[idx]
		m.byID[msg.ID] = append(m.byID[msg.ID], msgRef{ecu: idx, msg: len(ecu.Messages)})
		ecu.Messages = append(ecu.Messages, msg)
	}
	return m, nil
}

func ecuName(t Transmitter) string {
	if t == NoTransmitter {
		return NullSender
	}
	return string(t)
}

// resolveType picks the signal representation. A one-bit signal is always
// Bool, even when the schema attaches a value table to it.
func resolveType(doc Document, id uint32, rs RawSignal) SignalType {
	if rs.Length == 1 {
		return SignalType{Kind: Bool}
	}
	if vt := doc.ValueTable(id, rs.Name); len(vt) > 0 {
		table := make([]ValueDescription, len(vt))
		copy(table, vt)
		sort.SliceStable(table, func(i, j int) bool { return table[i].Value < table[j].Value })
		return SignalType{Kind: Enum, Table: table}
	}
	return SignalType{Kind: Linear, Multiplier: rs.Factor, Offset: rs.Offset}
}

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
