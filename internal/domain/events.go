package domain

import "sort"

// UpstreamStatus is the upstream system's single order status vocabulary.
type UpstreamStatus string

const (
	UpstreamAccepted         UpstreamStatus = "accepted"
	UpstreamConfirmed        UpstreamStatus = "confirmed"
	UpstreamPickedUp         UpstreamStatus = "picked_up"
	UpstreamWorkInProgress   UpstreamStatus = "working_in_progress"
	UpstreamReached          UpstreamStatus = "reached"
	UpstreamDeliveredToStore UpstreamStatus = "delivered_to_store"
	UpstreamDelivered        UpstreamStatus = "delivered"
)

// EventMapping translates one courier-reported event into both local statuses
// and, optionally, the upstream status it mirrors to.
type EventMapping struct {
	OrderStatus      OrderStatus
	AssignmentStatus AssignmentStatus
	// Upstream is empty when the event must not be mirrored.
	Upstream     UpstreamStatus
	Notification string
}

func (m EventMapping) Mirrors() bool { return m.Upstream != "" }

func (m EventMapping) Notifies() bool { return m.Notification != "" }

// picked_up has no upstream counterpart here: upstream receipt is confirmed by
// an explicit admin action, see TransitionMirror.
var eventTable = map[string]EventMapping{
	"picked_up": {
		OrderStatus:      OrderPickedUp,
		AssignmentStatus: AssignmentPickedUp,
	},
	"in_transit": {
		OrderStatus:      OrderInTransit,
		AssignmentStatus: AssignmentInTransit,
		Upstream:         UpstreamWorkInProgress,
	},
	"delivered_to_store": {
		OrderStatus:      OrderDeliveredToStore,
		AssignmentStatus: AssignmentReached,
		Upstream:         UpstreamDeliveredToStore,
	},
	"reached": {
		OrderStatus:      OrderDeliveredToStore,
		AssignmentStatus: AssignmentReached,
		Upstream:         UpstreamReached,
	},
	"delivered": {
		OrderStatus:      OrderDelivered,
		AssignmentStatus: AssignmentDelivered,
		Upstream:         UpstreamDelivered,
		Notification:     "Order completed",
	},
	"delivered_to_customer": {
		OrderStatus:      OrderDelivered,
		AssignmentStatus: AssignmentDelivered,
		Upstream:         UpstreamDelivered,
		Notification:     "Order completed",
	},
}

// LookupEvent returns the mapping for a courier event. Unknown events report
// false and must be rejected by the caller.
func LookupEvent(event string) (EventMapping, bool) {
	m, ok := eventTable[event]
	return m, ok
}

// KnownEvents lists every accepted event, sorted.
func KnownEvents() []string {
	out := make([]string, 0, len(eventTable))
	for k := range eventTable {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var transitionTable = map[AssignmentStatus]UpstreamStatus{
	AssignmentPickedUp:  UpstreamPickedUp,
	AssignmentInTransit: UpstreamWorkInProgress,
	AssignmentReached:   UpstreamReached,
	AssignmentDelivered: UpstreamDelivered,
}

// TransitionMirror gives the upstream status an administratively confirmed
// move into s is mirrored to.
func TransitionMirror(s AssignmentStatus) (UpstreamStatus, bool) {
	u, ok := transitionTable[s]
	return u, ok
}
