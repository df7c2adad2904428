package domain

// DecisionSource names the layer that produced a membership decision.
type DecisionSource uint8

const (
	SourceNone   DecisionSource = iota
	SourceFilter                // counting filter said definitely absent
	SourceCache                 // decision cache hit
	SourceStore                 // authoritative store lookup
)

func (s DecisionSource) String() string {
	switch s {
	case SourceFilter:
		return "filter"
	case SourceCache:
		return "cache"
	case SourceStore:
		return "store"
	default:
		return "none"
	}
}

// Decision is the outcome of a membership query. Pure value type.
type Decision struct {
	Present bool           // true if the item has a positive stored count
	Count   uint64         // stored multiplicity; 0 when answered by the filter
	Source  DecisionSource // layer that answered
}

// IsPresent is a convenience accessor.
func (d Decision) IsPresent() bool { return d.Present }

// AbsentDecision returns a not-present decision attributed to src.
func AbsentDecision(src DecisionSource) Decision {
	return Decision{Source: src}
}
