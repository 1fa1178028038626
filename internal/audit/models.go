package audit

import "time"

// Action identifies what an audit entry records.
type Action string

const (
	ActionRegistryBuilt       Action = "registry_built"
	ActionNameConfirmed       Action = "name_confirmed"
	ActionNamesAutoConfirmed  Action = "names_auto_confirmed"
	ActionGroupsMerged        Action = "groups_merged"
	ActionGroupSplit          Action = "group_split"
	ActionSuggestionDismissed Action = "suggestion_dismissed"
	ActionDisplayNameSet      Action = "display_name_set"
	ActionURLSet              Action = "url_set"
)

// Entry is one append-only audit record. Keep it transport-agnostic so sinks
// can fan out.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor,omitempty"`
	Action    Action         `json:"action"`
	GroupID   string         `json:"group_id,omitempty"`
	TargetID  string         `json:"target_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Diff      map[string]any `json:"diff,omitempty"`
}
