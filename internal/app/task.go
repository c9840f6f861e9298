package app

import (
	"fmt"

	"hangar-inspect/internal/annotation"
)

// TaskStatus is the workflow state of one inspection task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusPassed  TaskStatus = "passed"
	StatusFailed  TaskStatus = "failed"
)

// Task is one inspection task: a named check with validation boxes grouped
// by camera name. A task may only be passed once every one of its boxes has
// been validated; failing is never blocked.
type Task struct {
	ID     string                                `json:"id"`
	Name   string                                `json:"name"`
	Status TaskStatus                            `json:"status"`
	Boxes  map[string][]annotation.ValidationBox `json:"boxes,omitempty"`
}

// AllBoxes returns the task's boxes across all cameras.
func (t *Task) AllBoxes() []annotation.ValidationBox {
	var all []annotation.ValidationBox
	for _, boxes := range t.Boxes {
		all = append(all, boxes...)
	}
	return all
}

// BoxesFor returns the task's boxes for one camera name.
func (t *Task) BoxesFor(cameraName string) []annotation.ValidationBox {
	if t.Boxes == nil {
		return nil
	}
	return t.Boxes[cameraName]
}

// AddBox appends a box to the camera's list.
func (t *Task) AddBox(cameraName string, box annotation.ValidationBox) {
	if t.Boxes == nil {
		t.Boxes = make(map[string][]annotation.ValidationBox)
	}
	t.Boxes[cameraName] = append(t.Boxes[cameraName], box)
}

// Validator reports whether every box of a task has been validated. The
// annotation engine satisfies this.
type Validator interface {
	AllValidated(taskID string, boxes []annotation.ValidationBox) bool
}

// Pass marks the task passed, refusing while unvalidated boxes remain.
func (t *Task) Pass(v Validator) error {
	if v != nil && !v.AllValidated(t.ID, t.AllBoxes()) {
		return fmt.Errorf("task %s has unvalidated boxes", t.ID)
	}
	t.Status = StatusPassed
	return nil
}

// Fail marks the task failed. Failing is always permitted.
func (t *Task) Fail() {
	t.Status = StatusFailed
}
