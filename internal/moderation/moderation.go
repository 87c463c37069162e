package moderation

// Action is what a moderation feature does to an offending message.
type Action string

const (
	ActionDelete Action = "delete"
	ActionWarn   Action = "warn"
	ActionKick   Action = "kick"
)

func ValidAction(a Action) bool {
	switch a {
	case ActionDelete, ActionWarn, ActionKick:
		return true
	}
	return false
}

// BaseConfig is the per-chat state every detector feature shares.
// Feature configs embed it and add their own fields.
type BaseConfig struct {
	Enabled bool   `json:"enabled"`
	Action  Action `json:"action,omitempty"`
}

// ActionOr returns the configured action, falling back to a feature's
// default when none is set.
func (c BaseConfig) ActionOr(def Action) Action {
	if ValidAction(c.Action) {
		return c.Action
	}
	return def
}

// Decision is a detector verdict for one message.
type Decision struct {
	Act    bool
	Action Action
	Reason string
}

func Ignore() Decision { return Decision{} }

func Act(action Action, reason string) Decision {
	return Decision{Act: true, Action: action, Reason: reason}
}
