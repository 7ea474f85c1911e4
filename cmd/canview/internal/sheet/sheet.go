// Package sheet reads a CAN schema kept as rows of an xlsx workbook.
//
// Each row of the "DBC" sheet describes one signal; rows sharing a message
// id form one message. The first row is a header and is skipped.
package sheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/example/canview/cmd/canview/internal/model"
)

// SheetName is the worksheet holding the schema rows.
const SheetName = "DBC"

// Column layout of the schema sheet. Columns from ByteOrder on are optional.
const (
	CanID = iota
	CanName
	PeriodOfTx
	MsgLen
	StartByte
	StartBit
	BitWidth
	SignalName
	SignalComment
	TransmitterECU
	ByteOrder
	Signedness
	Factor
	Offset
	Min
	Max
	Unit

	requiredColumns = TransmitterECU + 1
)

type sigKey struct {
	id   uint32
	name string
}

// Workbook is a schema read from a spreadsheet. It has no message comments
// and no value tables.
type Workbook struct {
	messages    []model.RawMessage
	sigComments map[sigKey]string
}

var _ model.Document = (*Workbook)(nil)

// Open reads the schema sheet of the workbook at path.
func Open(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &model.SchemaError{Kind: model.ErrIncomplete, Detail: err.Error()}
	}
	defer f.Close()
	return load(f)
}

// Read reads the schema sheet of a workbook from r.
func Read(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &model.SchemaError{Kind: model.ErrIncomplete, Detail: err.Error()}
	}
	defer f.Close()
	return load(f)
}

func load(f *excelize.File) (*Workbook, error) {
	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, &model.SchemaError{Kind: model.ErrIncomplete, Detail: fmt.Sprintf("sheet %s: %v", SheetName, err)}
	}

	wb := &Workbook{sigComments: make(map[sigKey]string)}
	byID := make(map[uint32]int)
	for idx, row := range rows {
		if idx == 0 || blank(row) {
			continue
		}
		if err := wb.addRow(byID, row, idx+1); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (wb *Workbook) addRow(byID map[uint32]int, row []string, line int) error {
	if len(row) < requiredColumns {
		return &model.SchemaError{
			Kind:   model.ErrGrammar,
			Detail: fmt.Sprintf("want at least %d columns, have %d", requiredColumns, len(row)),
			Line:   line,
		}
	}
	bad := func(col string, err error) error {
		return &model.SchemaError{Kind: model.ErrGrammar, Detail: fmt.Sprintf("%s: %v", col, err), Line: line}
	}

	id, err := strconv.ParseUint(cell(row, CanID), 0, 32)
	if err != nil {
		return bad("message id", err)
	}
	size, err := strconv.ParseUint(cell(row, MsgLen), 10, 64)
	if err != nil {
		return bad("message length", err)
	}
	startByte, err := strconv.ParseUint(cell(row, StartByte), 10, 64)
	if err != nil {
		return bad("start byte", err)
	}
	startBit, err := strconv.ParseUint(cell(row, StartBit), 10, 64)
	if err != nil {
		return bad("start bit", err)
	}
	length, err := strconv.ParseUint(cell(row, BitWidth), 10, 64)
	if err != nil {
		return bad("bit width", err)
	}

	sig := model.RawSignal{
		Name:     cell(row, SignalName),
		StartBit: startByte*8 + startBit,
		Length:   length,
		Factor:   1,
		Unit:     cell(row, Unit),
	}
	switch strings.ToLower(cell(row, ByteOrder)) {
	case "motorola", "big", "big-endian", "0":
		sig.Order = model.BigEndian
	}
	switch strings.ToLower(cell(row, Signedness)) {
	case "signed", "-":
		sig.Signed = true
	}
	floats := []struct {
		dst *float64
		col int
		txt string
	}{
		{&sig.Factor, Factor, "factor"},
		{&sig.Offset, Offset, "offset"},
		{&sig.Min, Min, "min"},
		{&sig.Max, Max, "max"},
	}
	for _, fl := range floats {
		v := cell(row, fl.col)
		if v == "" {
			continue
		}
		if *fl.dst, err = strconv.ParseFloat(v, 64); err != nil {
			return bad(fl.txt, err)
		}
	}

	msgIdx, ok := byID[uint32(id)]
	if !ok {
		tx := model.Transmitter(cell(row, TransmitterECU))
		if tx == "Vector__XXX" {
			tx = model.NoTransmitter
		}
		msgIdx = len(wb.messages)
		byID[uint32(id)] = msgIdx
		wb.messages = append(wb.messages, model.RawMessage{
			ID:          uint32(id),
			Name:        cell(row, CanName),
			Size:        size,
			Transmitter: tx,
		})
	}
	wb.messages[msgIdx].Signals = append(wb.messages[msgIdx].Signals, sig)
	if c := cell(row, SignalComment); c != "" {
		wb.sigComments[sigKey{uint32(id), sig.Name}] = c
	}
	return nil
}

func cell(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func (wb *Workbook) Messages() []model.RawMessage { return wb.messages }

func (wb *Workbook) SignalComment(id uint32, signal string) (string, bool) {
	c, ok := wb.sigComments[sigKey{id, signal}]
	return c, ok
}

func (wb *Workbook) MessageComment(uint32) (string, bool) { return "", false }

func (wb *Workbook) ValueTable(uint32, string) []model.ValueDescription { return nil }
