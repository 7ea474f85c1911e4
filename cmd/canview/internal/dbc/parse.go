// Package dbc parses Vector DBC schema text into a model.Document.
//
// The parser is line oriented. Messages (BO_) own the indented signal lines
// (SG_) that follow them; comments (CM_) and value descriptions (VAL_) may
// span several lines up to their terminating semicolon. Statements the
// model has no use for (attributes, value tables, bit timing) are skipped.
package dbc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/canview/cmd/canview/internal/model"
)

const (
	kVersion = "VERSION"
	kNS      = "NS_"
	kBU      = "BU_"
	kBO      = "BO_"
	kSG      = "SG_"
	kCM      = "CM_"
	kVAL     = "VAL_"

	noNode = "Vector__XXX"
)

var (
	boExpr  = regexp.MustCompile(`^BO_\s+(\d+)\s+(\w+)\s*:\s*(\d+)\s+(\S+)\s*$`)
	sgExpr  = regexp.MustCompile(`^SG_\s+(\w+)(?:\s+(M|m\d+M?))?\s*:\s*(\d+)\|(\d+)@([01])([+-])\s*\(\s*([^,\s]+)\s*,\s*([^)\s]+)\s*\)\s*\[\s*([^|\s]+)\s*\|\s*([^\]\s]+)\s*\]\s*"((?:[^"\\]|\\.)*)"\s*(.*)$`)
	cmExpr  = regexp.MustCompile(`(?s)^CM_\s+(?:(SG_)\s+(\d+)\s+(\w+)\s+|(BO_)\s+(\d+)\s+|(BU_|EV_)\s+(\w+)\s+)?"(.*)"\s*;\s*$`)
	valExpr = regexp.MustCompile(`(?s)^VAL_\s+(\d+)\s+(\w+)\s+(.*);\s*$`)
	pairExp = regexp.MustCompile(`(-?\d+)\s+"((?:[^"\\]|\\.)*)"`)
)

type sigKey struct {
	id   uint32
	name string
}

// File is a parsed DBC document.
type File struct {
	version     string
	nodes       []string
	messages    []model.RawMessage
	sigComments map[sigKey]string
	msgComments map[uint32]string
	tables      map[sigKey][]model.ValueDescription
}

type parser struct {
	lines []string
	idx   int
	file  *File

	// index into file.messages of the message owning following SG_ lines
	cur      int
	muxCount int
}

// Parse parses DBC text. Errors are *model.SchemaError values.
func Parse(data []byte) (*File, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	p := &parser{
		lines: strings.Split(text, "\n"),
		cur:   -1,
		file: &File{
			sigComments: make(map[sigKey]string),
			msgComments: make(map[uint32]string),
			tables:      make(map[sigKey][]model.ValueDescription),
		},
	}
	if strings.TrimSpace(text) == "" {
		return nil, &model.SchemaError{Kind: model.ErrIncomplete, Detail: "empty document"}
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.file, nil
}

func (p *parser) parse() error {
	for ; p.idx < len(p.lines); p.idx++ {
		line := strings.TrimSpace(p.lines[p.idx])
		if line == "" {
			continue
		}

		var err error
		switch keyword(line) {
		case kVersion:
			p.parseVersion(line)
		case kNS:
			p.skipBlock()
		case kBU:
			p.parseBU(line)
		case kBO:
			err = p.parseBO(line)
		case kSG:
			err = p.parseSG(line)
		case kCM:
			err = p.parseCM()
		case kVAL:
			err = p.parseVal()
		default:
			// attribute definitions and other sections do not feed the model
			p.cur = -1
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func keyword(line string) string {
	end := strings.IndexAny(line, " \t:")
	if end < 0 {
		return line
	}
	return line[:end]
}

func (p *parser) grammarf(format string, args ...any) error {
	return &model.SchemaError{
		Kind:   model.ErrGrammar,
		Detail: fmt.Sprintf(format, args...),
		Line:   p.idx + 1,
	}
}

func (p *parser) parseVersion(line string) {
	if subs := strings.Split(line, `"`); len(subs) > 1 {
		p.file.version = subs[1]
	}
}

// skipBlock consumes the indented keyword list following "NS_ :".
func (p *parser) skipBlock() {
	for p.idx+1 < len(p.lines) {
		next := p.lines[p.idx+1]
		if strings.TrimSpace(next) == "" || (next[0] != ' ' && next[0] != '\t') {
			return
		}
		p.idx++
	}
}

func (p *parser) parseBU(line string) {
	_, nodes, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	p.file.nodes = append(p.file.nodes, strings.Fields(nodes)...)
}

func (p *parser) parseBO(line string) error {
	m := boExpr.FindStringSubmatch(line)
	if m == nil {
		return p.grammarf("malformed message definition %q", line)
	}
	id, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return p.grammarf("message id %q: %v", m[1], err)
	}
	size, err := strconv.ParseUint(m[3], 10, 64)
	if err != nil {
		return p.grammarf("message size %q: %v", m[3], err)
	}

	tx := model.Transmitter(m[4])
	if m[4] == noNode {
		tx = model.NoTransmitter
	}
	p.file.messages = append(p.file.messages, model.RawMessage{
		ID:          uint32(id),
		Name:        m[2],
		Size:        size,
		Transmitter: tx,
	})
	p.cur = len(p.file.messages) - 1
	p.muxCount = 0
	return nil
}

func (p *parser) parseSG(line string) error {
	if p.cur < 0 {
		return p.grammarf("signal outside of a message definition")
	}
	m := sgExpr.FindStringSubmatch(line)
	if m == nil {
		return p.grammarf("malformed signal definition %q", line)
	}
	msg := &p.file.messages[p.cur]

	if m[2] == "M" {
		p.muxCount++
		if p.muxCount > 1 {
			return &model.SchemaError{
				Kind:   model.ErrDuplicateMultiplexor,
				Detail: fmt.Sprintf("message %s declares more than one multiplexor", msg.Name),
				Line:   p.idx + 1,
			}
		}
	}

	var (
		sig model.RawSignal
		err error
	)
	sig.Name = m[1]
	if sig.StartBit, err = strconv.ParseUint(m[3], 10, 64); err != nil {
		return p.grammarf("signal %s start bit: %v", sig.Name, err)
	}
	if sig.Length, err = strconv.ParseUint(m[4], 10, 64); err != nil {
		return p.grammarf("signal %s length: %v", sig.Name, err)
	}
	if m[5] == "0" {
		sig.Order = model.BigEndian
	}
	sig.Signed = m[6] == "-"

	floats := []struct {
		dst  *float64
		text string
		what string
	}{
		{&sig.Factor, m[7], "factor"},
		{&sig.Offset, m[8], "offset"},
		{&sig.Min, m[9], "minimum"},
		{&sig.Max, m[10], "maximum"},
	}
	for _, f := range floats {
		if *f.dst, err = strconv.ParseFloat(f.text, 64); err != nil {
			return p.grammarf("signal %s %s %q: %v", sig.Name, f.what, f.text, err)
		}
	}
	sig.Unit = unescape(m[11])

	msg.Signals = append(msg.Signals, sig)
	return nil
}

// statement joins lines from the current one until a semicolon outside a
// quoted string.
func (p *parser) statement() (string, int, error) {
	start := p.idx
	text := strings.TrimSpace(p.lines[p.idx])
	for !terminated(text) {
		if p.idx+1 >= len(p.lines) {
			return "", start, &model.SchemaError{
				Kind:   model.ErrIncomplete,
				Detail: "unterminated statement",
				Line:   start + 1,
			}
		}
		p.idx++
		text += "\n" + p.lines[p.idx]
	}
	return strings.TrimSpace(text), start, nil
}

func terminated(s string) bool {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			if inQuote {
				i++
			}
		case '"':
			inQuote = !inQuote
		case ';':
			if !inQuote {
				return true
			}
		}
	}
	return false
}

func (p *parser) parseCM() error {
	p.cur = -1
	text, start, err := p.statement()
	if err != nil {
		return err
	}
	m := cmExpr.FindStringSubmatch(text)
	if m == nil {
		return &model.SchemaError{Kind: model.ErrGrammar, Detail: "malformed comment", Line: start + 1}
	}
	comment := unescape(m[8])

	switch {
	case m[1] == kSG:
		id, err := strconv.ParseUint(m[2], 10, 32)
		if err != nil {
			return &model.SchemaError{Kind: model.ErrGrammar, Detail: "comment message id: " + err.Error(), Line: start + 1}
		}
		p.file.sigComments[sigKey{uint32(id), m[3]}] = comment
	case m[4] == kBO:
		id, err := strconv.ParseUint(m[5], 10, 32)
		if err != nil {
			return &model.SchemaError{Kind: model.ErrGrammar, Detail: "comment message id: " + err.Error(), Line: start + 1}
		}
		p.file.msgComments[uint32(id)] = comment
	}
	return nil
}

func (p *parser) parseVal() error {
	p.cur = -1
	text, start, err := p.statement()
	if err != nil {
		return err
	}
	fields := strings.Fields(text)
	if len(fields) > 1 {
		if _, err := strconv.ParseUint(fields[1], 10, 32); err != nil {
			// environment variable value descriptions
			return nil
		}
	}

	m := valExpr.FindStringSubmatch(text)
	if m == nil {
		return &model.SchemaError{Kind: model.ErrGrammar, Detail: "malformed value description", Line: start + 1}
	}
	id, err := strconv.ParseUint(m[1], 10, 32)
	if err != nil {
		return &model.SchemaError{Kind: model.ErrGrammar, Detail: "value description message id: " + err.Error(), Line: start + 1}
	}

	var table []model.ValueDescription
	for _, pair := range pairExp.FindAllStringSubmatch(m[3], -1) {
		v, err := strconv.ParseInt(pair[1], 10, 64)
		if err != nil {
			return &model.SchemaError{Kind: model.ErrGrammar, Detail: "value " + pair[1] + ": " + err.Error(), Line: start + 1}
		}
		table = append(table, model.ValueDescription{Value: v, Label: unescape(pair[2])})
	}
	p.file.tables[sigKey{uint32(id), m[2]}] = table
	return nil
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\"`, `"`)
}
