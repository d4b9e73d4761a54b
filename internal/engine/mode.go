package engine

// Mode selects which of the three output strategies (spec.md §4.5) the
// engine runs. Only one is active per run.
type Mode int

const (
	ModeLineByLine Mode = iota
	ModeGroup
	ModeJoin
)

func (m Mode) String() string {
	switch m {
	case ModeLineByLine:
		return "line-by-line"
	case ModeGroup:
		return "group"
	case ModeJoin:
		return "join"
	default:
		return "unknown"
	}
}
