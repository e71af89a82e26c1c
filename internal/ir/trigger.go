package ir

// TriggerTiming is when a trigger fires relative to the event.
type TriggerTiming string

const (
	TriggerBefore    TriggerTiming = "BEFORE"
	TriggerAfter     TriggerTiming = "AFTER"
	TriggerInsteadOf TriggerTiming = "INSTEAD OF"
)

// TriggerOrientation is whether a trigger fires once per row or once per
// statement.
type TriggerOrientation string

const (
	OrientationRow       TriggerOrientation = "ROW"
	OrientationStatement TriggerOrientation = "STATEMENT"
)

// Trigger is a table trigger. Events preserves authoring order with
// duplicates removed on insert (invariant #6).
type Trigger struct {
	Name        string
	Timing      TriggerTiming
	Orientation TriggerOrientation
	// Events holds each bare verb ("INSERT", "UPDATE", "DELETE", "TRUNCATE")
	// or an "UPDATE OF col1,col2" form.
	Events      []string
	Function    string // schema-qualified function name called by the trigger
	WhenClause  string
	Comment     string
}

func (t *Trigger) clone() *Trigger {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Events = append([]string(nil), t.Events...)
	return &cp
}

// AddEvent appends an event if it is not already present, preserving order.
func (t *Trigger) AddEvent(event string) {
	for _, e := range t.Events {
		if e == event {
			return
		}
	}
	t.Events = append(t.Events, event)
}

// DecodeTgType decodes the Postgres pg_trigger.tgtype bitmask into timing,
// orientation, and the base event set (without UPDATE OF column lists,
// which are recovered separately from pg_get_triggerdef).
func DecodeTgType(tgtype int16) (timing TriggerTiming, orientation TriggerOrientation, events []string) {
	const (
		bitRow       = 1 << 0
		bitBefore    = 1 << 1
		bitInsert    = 1 << 2
		bitDelete    = 1 << 3
		bitUpdate    = 1 << 4
		bitTruncate  = 1 << 5
		bitInsteadOf = 1 << 6
	)

	if tgtype&bitRow != 0 {
		orientation = OrientationRow
	} else {
		orientation = OrientationStatement
	}

	switch {
	case tgtype&bitInsteadOf != 0:
		timing = TriggerInsteadOf
	case tgtype&bitBefore != 0:
		timing = TriggerBefore
	default:
		timing = TriggerAfter
	}

	if tgtype&bitInsert != 0 {
		events = append(events, "INSERT")
	}
	if tgtype&bitDelete != 0 {
		events = append(events, "DELETE")
	}
	if tgtype&bitUpdate != 0 {
		events = append(events, "UPDATE")
	}
	if tgtype&bitTruncate != 0 {
		events = append(events, "TRUNCATE")
	}
	return timing, orientation, events
}
