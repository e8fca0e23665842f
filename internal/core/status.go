package core

// PRStatus is the workflow status of a purchase request.
type PRStatus string

const (
	PRStatusPending   PRStatus = "Pending"
	PRStatusApproved  PRStatus = "Approved"
	PRStatusRejected  PRStatus = "Rejected"
	PRStatusConverted PRStatus = "Converted to PO"
)

var prTransitions = map[PRStatus][]PRStatus{
	PRStatusPending:  {PRStatusApproved, PRStatusRejected},
	PRStatusApproved: {PRStatusConverted},
}

// Valid reports whether s is a known purchase request status.
func (s PRStatus) Valid() bool {
	switch s {
	case PRStatusPending, PRStatusApproved, PRStatusRejected, PRStatusConverted:
		return true
	}
	return false
}

// CanTransition reports whether a purchase request may move from s to next.
// Rejected and Converted to PO are terminal.
func (s PRStatus) CanTransition(next PRStatus) bool {
	for _, allowed := range prTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// POStatus is the workflow status of a purchase order.
type POStatus string

const (
	POStatusOpen   POStatus = "Open"
	POStatusClosed POStatus = "Closed"
)

func (s POStatus) Valid() bool {
	return s == POStatusOpen || s == POStatusClosed
}

// CanTransition reports whether a purchase order may move from s to next.
// Orders toggle between Open and Closed.
func (s POStatus) CanTransition(next POStatus) bool {
	return (s == POStatusOpen && next == POStatusClosed) ||
		(s == POStatusClosed && next == POStatusOpen)
}

// Deletable reports whether an order in status s may be deleted.
func (s POStatus) Deletable() bool {
	return s != POStatusClosed
}

// Priority of a purchase request.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)
