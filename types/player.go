package types

// Player is the payload carried by every turn job.
// ID is zero until the player has been persisted.
type Player struct {
	ID     int64   `json:"id,omitempty"`
	Name   string  `json:"name"`
	Action *string `json:"action,omitempty"`
}

// PlayerInput is the data accepted when a new player joins the queue.
type PlayerInput struct {
	Name string `json:"name"`
}

// WithAction returns a copy of the player carrying the given action.
func (p Player) WithAction(action string) Player {
	p.Action = &action
	return p
}

// ActionValue returns the attached action or an empty string.
func (p Player) ActionValue() string {
	if p.Action == nil {
		return ""
	}
	return *p.Action
}
