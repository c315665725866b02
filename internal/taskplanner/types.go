// Package taskplanner wraps an external task-planning CLI as a service.
//
// The CLI is invoked with --json and its output is decoded into Task
// records. Nothing is cached: every call shells out.
package taskplanner

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TaskID is a task identifier. Planners print top-level ids as numbers and
// subtask ids as dotted strings; both decode to the string form.
type TaskID string

// UnmarshalJSON accepts a JSON string or number.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id must be a string or number: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

// Task is one planner task.
type Task struct {
	ID           TaskID   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	Status       string   `json:"status,omitempty"`
	Priority     string   `json:"priority,omitempty"`
	Dependencies []TaskID `json:"dependencies,omitempty"`
	Details      string   `json:"details,omitempty"`
	TestStrategy string   `json:"testStrategy,omitempty"`
	Subtasks     []Task   `json:"subtasks,omitempty"`
	Complexity   *float64 `json:"complexityScore,omitempty"`
}
