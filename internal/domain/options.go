package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JobOptions carries caller-supplied metadata attached to a job at enqueue
// time and echoed back on produced files. It is persisted in its own column,
// never in the error field.
type JobOptions struct {
	DisplayTitle string `json:"display_title,omitempty"`
	GroupType    string `json:"group_type,omitempty"`
	GroupName    string `json:"group_name,omitempty"`
	Rank         int    `json:"rank,omitempty"`
	MaxItems     int    `json:"max_items,omitempty"`
	Temporary    bool   `json:"temporary,omitempty"`
}

// ValidateFor checks the options against the job type they are attached to.
// Validation happens at admission time so malformed options never reach the
// downloader.
func (o JobOptions) ValidateFor(t JobType) error {
	if o.Rank < 0 {
		return fmt.Errorf("rank must not be negative, got %d", o.Rank)
	}
	if o.Rank > 0 && o.GroupName == "" {
		return fmt.Errorf("rank requires a group name")
	}
	if o.MaxItems < 0 {
		return fmt.Errorf("max_items must not be negative, got %d", o.MaxItems)
	}
	if o.MaxItems > 0 && !t.Playlist() {
		return fmt.Errorf("max_items only applies to playlist jobs, got type %s", t)
	}
	return nil
}

func (o JobOptions) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *JobOptions) Scan(value interface{}) error {
	if value == nil {
		*o = JobOptions{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*o = JobOptions{}
		return nil
	}

	return json.Unmarshal(data, o)
}
