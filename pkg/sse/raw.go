package sse

// RawEventLine is one grammar-level line of an event, either a Comment or a
// Field. Go strings are immutable, so lines may safely share storage with
// the text they were lexed from.
type RawEventLine interface {
	rawEventLine()
}

// Comment is the payload of a ":"-prefixed line, the terminator excluded.
// Nothing after the colon is stripped.
type Comment string

func (Comment) rawEventLine() {}

// Field is a "name[:value]" line. HasValue distinguishes a line with no
// colon (HasValue false, no value at all) from a line whose colon is
// followed by nothing (HasValue true, Value empty).
type Field struct {
	Name     string
	Value    string
	HasValue bool
}

func (Field) rawEventLine() {}

// RawEvent is one blank-line-delimited event: its comment and field lines in
// arrival order. Repeated fields are preserved in order for the assembly
// layer to join. An event may be empty when the input opens directly with a
// terminator.
type RawEvent []RawEventLine
