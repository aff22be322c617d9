package domain

import "strings"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

type Task struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Priority    Priority `json:"priority"`
	Tags        []string `json:"tags"`
}

// Clone returns a copy that shares no slices with t.
func (t Task) Clone() Task {
	t.Tags = append([]string(nil), t.Tags...)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t
}

type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Tasks []Task `json:"tasks"`
}

// Board is an ordered snapshot of all columns.
type Board struct {
	ID      string   `json:"id"`
	Columns []Column `json:"columns"`
}

// NormalizeTags trims tags and drops empties and duplicates, keeping the
// first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// ColumnID derives a column id from its title: lower case, whitespace runs
// collapsed to a single dash.
func ColumnID(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

// BoardEventType enumerates board mutations.
type BoardEventType string

const (
	BoardEventTaskCreated      BoardEventType = "task_created"
	BoardEventTaskUpdated      BoardEventType = "task_updated"
	BoardEventTaskDeleted      BoardEventType = "task_deleted"
	BoardEventTaskMoved        BoardEventType = "task_moved"
	BoardEventColumnCreated    BoardEventType = "column_created"
	BoardEventColumnDeleted    BoardEventType = "column_deleted"
	BoardEventColumnsReordered BoardEventType = "columns_reordered"

	// BoardEventSnapshot carries the whole board to a newly connected client.
	BoardEventSnapshot BoardEventType = "snapshot"
)

// BoardEvent represents a real-time board update.
type BoardEvent struct {
	Type     BoardEventType `json:"type"`
	BoardID  string         `json:"boardId"`
	ColumnID string         `json:"columnId,omitempty"`
	TaskID   string         `json:"taskId,omitempty"`
	Data     any            `json:"data,omitempty"`
}
