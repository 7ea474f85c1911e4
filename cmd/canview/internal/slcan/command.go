package slcan

type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandOpen
	CommandClose
	CommandFrame
)

type Command struct {
	Type CommandType
	Raw  string
}

// ParseCommand classifies one SLCAN line. Frame lines start with t, T, r
// or R; their content is parsed by ParseFrame.
func ParseCommand(raw string) Command {
	if raw == "" {
		return Command{Type: CommandUnknown, Raw: raw}
	}

	switch raw[0] {
	case 'O':
		return Command{Type: CommandOpen, Raw: raw}
	case 'C':
		return Command{Type: CommandClose, Raw: raw}
	case 't', 'T', 'r', 'R':
		return Command{Type: CommandFrame, Raw: raw}
	default:
		return Command{Type: CommandUnknown, Raw: raw}
	}
}
