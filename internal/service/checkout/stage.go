package checkout

type Stage string

const (
	StageIdle              Stage = "idle"
	StageAddressEntry      Stage = "address_entry"
	StageShippingSelection Stage = "shipping_selection"
	StageConfirmed         Stage = "confirmed"
)

var transitions = map[Stage][]Stage{
	StageIdle:              {StageAddressEntry},
	StageAddressEntry:      {StageAddressEntry, StageShippingSelection, StageIdle},
	StageShippingSelection: {StageAddressEntry, StageConfirmed, StageIdle},
	StageConfirmed:         {StageIdle},
}

// CanTransitionTo reports whether the flow may move from s to next.
func (s Stage) CanTransitionTo(next Stage) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Stage) String() string {
	return string(s)
}
