package domain

// Registry notification actions the ingester cares about. Events with
// any other action are skipped.
const (
	EventActionPush = "push"
	EventActionPull = "pull"
)

// EventTarget describes the object a notification event refers to.
// Repository, Digest and Size are required by the wire format and are
// pointers so an absent field can be told apart from a zero value; Tag
// is optional (events without a tag are skipped, not rejected).
type EventTarget struct {
	Repository *string `json:"repository"`
	Tag        string  `json:"tag"`
	Digest     *string `json:"digest"`
	Size       *int64  `json:"size"`
}

// Event is a single entry of a registry notification batch.
type Event struct {
	Action string       `json:"action"`
	Target *EventTarget `json:"target"`
}

// MissingField returns the name of the first required target field
// absent from the event, or "" when the event is complete. Only push
// and pull events carry required fields.
func (e *Event) MissingField() string {
	if e.Target == nil {
		return "target"
	}
	if e.Target.Repository == nil {
		return "repository"
	}
	if e.Target.Digest == nil {
		return "digest"
	}
	if e.Target.Size == nil {
		return "size"
	}
	return ""
}

// Notification is the envelope the registry daemon posts to the
// webhook endpoint.
type Notification struct {
	Events []Event `json:"events"`
}
