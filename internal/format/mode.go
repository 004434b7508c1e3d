package format

import "fmt"

// Mode selects the index layout of a repository.
type Mode int

const (
	// ModeLegacy groups signals into numbered output files named by an
	// explicit prefix list. Raw modes 0 and 1 both map here.
	ModeLegacy Mode = iota
	// ModePerSignal writes one index/data pair per signal.
	ModePerSignal
	// ModeIndexTable writes one data file and one pid-keyed index table per
	// signal, flushed at the end of the run.
	ModeIndexTable
)

// ModeOf maps the raw MODE value of a config file to its layout.
func ModeOf(raw int) (Mode, error) {
	switch {
	case raw < 0:
		return 0, fmt.Errorf("invalid mode %d", raw)
	case raw < 2:
		return ModeLegacy, nil
	case raw == 2:
		return ModePerSignal, nil
	default:
		return ModeIndexTable, nil
	}
}

func (m Mode) String() string {
	switch m {
	case ModeLegacy:
		return "legacy"
	case ModePerSignal:
		return "per-signal"
	case ModeIndexTable:
		return "index-table"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// UsesIndexTable reports whether index entries are kept in memory and
// flushed as IndexTables.
func (m Mode) UsesIndexTable() bool { return m == ModeIndexTable }

// PerSignal reports whether every signal gets its own output files.
func (m Mode) PerSignal() bool { return m != ModeLegacy }
