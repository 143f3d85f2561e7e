package domain

import (
	"encoding/json"
	"fmt"
)

// Draft is a partially filled task form kept in client-local storage.
// Every field is optional and a draft never carries a task id.
type Draft struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	BoardID     *int      `json:"boardId,omitempty"`
	AssigneeID  *int      `json:"assigneeId,omitempty"`
}

// IsEmpty reports whether the draft carries no field at all.
func (d Draft) IsEmpty() bool {
	return d.Title == nil && d.Description == nil && d.Priority == nil &&
		d.Status == nil && d.BoardID == nil && d.AssigneeID == nil
}

// EncodeDraft serializes a draft for storage.
func EncodeDraft(d Draft) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	return raw, nil
}

// DecodeDraft parses stored draft content. Stored content is never trusted:
// a payload that is not a JSON object fails with ErrMalformedDraft, and
// fields with the wrong type or an unknown enum value are dropped.
func DecodeDraft(raw []byte) (Draft, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Draft{}, ErrMalformedDraft
	}

	var d Draft
	if v, ok := fields["title"]; ok {
		var title string
		if json.Unmarshal(v, &title) == nil {
			d.Title = &title
		}
	}
	if v, ok := fields["description"]; ok {
		var desc string
		if json.Unmarshal(v, &desc) == nil {
			d.Description = &desc
		}
	}
	if v, ok := fields["priority"]; ok {
		var raw string
		if json.Unmarshal(v, &raw) == nil {
			if p, err := ParsePriority(raw); err == nil {
				d.Priority = &p
			}
		}
	}
	if v, ok := fields["status"]; ok {
		var raw string
		if json.Unmarshal(v, &raw) == nil {
			if s, err := ParseStatus(raw); err == nil {
				d.Status = &s
			}
		}
	}
	if v, ok := fields["boardId"]; ok {
		var id int
		if json.Unmarshal(v, &id) == nil && id > 0 {
			d.BoardID = &id
		}
	}
	if v, ok := fields["assigneeId"]; ok {
		var id int
		if json.Unmarshal(v, &id) == nil && id > 0 {
			d.AssigneeID = &id
		}
	}
	return d, nil
}
