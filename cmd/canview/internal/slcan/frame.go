// Package slcan implements helpers for the serial CAN (SLCAN) textual
// protocol, used here to render frames and to replay captured logs.
package slcan

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/example/canview/cmd/canview/internal/ebyte"
)

var ErrMalformed = errors.New("slcan: malformed frame")

// EncodeFrame converts a CAN frame into its ASCII SLCAN string.
func EncodeFrame(frame ebyte.Frame) string {
	var builder strings.Builder
	switch {
	case frame.Remote && frame.Extended:
		builder.WriteByte('R')
	case frame.Remote && !frame.Extended:
		builder.WriteByte('r')
	case !frame.Remote && frame.Extended:
		builder.WriteByte('T')
	default:
		builder.WriteByte('t')
	}

	if frame.Extended {
		builder.WriteString(fmt.Sprintf("%08X", frame.ID&0x1FFFFFFF))
	} else {
		builder.WriteString(fmt.Sprintf("%03X", frame.ID&0x7FF))
	}

	builder.WriteByte('0' + byte(frame.DLC&0x0F))

	if !frame.Remote {
		for i := uint8(0); i < frame.DLC && i < 8; i++ {
			builder.WriteString(fmt.Sprintf("%02X", frame.Data[i]))
		}
	}

	builder.WriteByte('\r')
	return builder.String()
}

// ParseFrame parses a t/T/r/R line. A trailing carriage return and a
// four digit timestamp after the data bytes are accepted and ignored.
func ParseFrame(line string) (ebyte.Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return ebyte.Frame{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	var frame ebyte.Frame
	idLen := 3
	switch line[0] {
	case 't':
	case 'T':
		frame.Extended = true
		idLen = 8
	case 'r':
		frame.Remote = true
	case 'R':
		frame.Remote = true
		frame.Extended = true
		idLen = 8
	default:
		return ebyte.Frame{}, fmt.Errorf("%w: unknown type %q", ErrMalformed, line[0])
	}

	rest := line[1:]
	if len(rest) < idLen+1 {
		return ebyte.Frame{}, fmt.Errorf("%w: %q too short", ErrMalformed, line)
	}
	id, err := strconv.ParseUint(rest[:idLen], 16, 32)
	if err != nil {
		return ebyte.Frame{}, fmt.Errorf("%w: identifier %q", ErrMalformed, rest[:idLen])
	}
	frame.ID = uint32(id)

	dlc := rest[idLen]
	if dlc < '0' || dlc > '8' {
		return ebyte.Frame{}, fmt.Errorf("%w: DLC %q", ErrMalformed, dlc)
	}
	frame.DLC = dlc - '0'

	rest = rest[idLen+1:]
	if !frame.Remote {
		n := 2 * int(frame.DLC)
		if len(rest) < n {
			return ebyte.Frame{}, fmt.Errorf("%w: want %d data bytes in %q", ErrMalformed, frame.DLC, line)
		}
		if _, err := hex.Decode(frame.Data[:], []byte(rest[:n])); err != nil {
			return ebyte.Frame{}, fmt.Errorf("%w: data: %v", ErrMalformed, err)
		}
		rest = rest[n:]
	}

	switch len(rest) {
	case 0:
	case 4:
		if _, err := strconv.ParseUint(rest, 16, 16); err != nil {
			return ebyte.Frame{}, fmt.Errorf("%w: timestamp %q", ErrMalformed, rest)
		}
	default:
		return ebyte.Frame{}, fmt.Errorf("%w: trailing %q", ErrMalformed, rest)
	}
	return frame, nil
}

// LineError reports a frame line that could not be parsed.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Scanner reads frames from an SLCAN log, one command per line. Blank
// lines and channel commands are skipped.
type Scanner struct {
	s    *bufio.Scanner
	line int
}

func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Split(scanCommands)
	return &Scanner{s: s}
}

// Next returns the next frame, io.EOF at the end of the log, or a
// *LineError after which scanning may continue.
func (s *Scanner) Next() (ebyte.Frame, error) {
	for s.s.Scan() {
		s.line++
		text := strings.TrimSpace(s.s.Text())
		cmd := ParseCommand(text)
		if cmd.Type != CommandFrame {
			continue
		}
		frame, err := ParseFrame(cmd.Raw)
		if err != nil {
			return ebyte.Frame{}, &LineError{Line: s.line, Err: err}
		}
		return frame, nil
	}
	if err := s.s.Err(); err != nil {
		return ebyte.Frame{}, err
	}
	return ebyte.Frame{}, io.EOF
}

// scanCommands splits on '\n' or '\r', the SLCAN command terminator.
func scanCommands(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		switch b {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 == len(data) && !atEOF {
				return 0, nil, nil
			}
			if i+1 < len(data) && data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
