package verify

// Kind classifies the verdict for one resource pair.
type Kind int

const (
	// Match means both sides carry equivalent content.
	Match Kind = iota
	// Mismatch means both sides are present but their content differs.
	Mismatch
	// Error means the comparison could not be completed; it proves nothing
	// about the content.
	Error
	// Missing means only one side has the resource.
	Missing
)

var kindNames = [...]string{"match", "mismatch", "error", "missing"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Outcome is the verdict for one pair. Immutable once produced; the Run owns
// it after recording.
type Outcome struct {
	Kind Kind

	// Reason says in one human-readable phrase why the kind is not Match.
	Reason string

	// Detail optionally carries the comparison payload, such as both digest
	// values or a triple diff summary.
	Detail string
}
