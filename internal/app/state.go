// Package app provides inspection-session state, configuration, and events.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"hangar-inspect/internal/annotation"
	"hangar-inspect/internal/calibration"
	"hangar-inspect/internal/viewport"
)

// CameraSource describes where one camera slot's frames come from.
type CameraSource struct {
	Slot   int    `json:"slot"`
	Name   string `json:"name"`
	Source string `json:"source"` // file path, http(s) URL, or rtsp URL
}

// EventType identifies application events.
type EventType int

const (
	EventSessionLoaded EventType = iota
	EventSessionSaved
	EventFrameLoaded
	EventCalibrationChanged
	EventTaskChanged
	EventBoxStored
	EventStatusChanged
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// State holds the inspection session: the installation under inspection,
// the camera sources, the task list, and the calibration store.
type State struct {
	mu sync.RWMutex

	SessionPath string
	Modified    bool

	InstallationID string
	Cameras        [viewport.SlotCount]CameraSource
	Tasks          []*Task
	currentTask    int

	Calibration *calibration.Store

	listeners map[EventType][]EventListener
	log       *logrus.Entry
}

// NewState creates an empty session state.
func NewState(log *logrus.Logger) *State {
	if log == nil {
		log = logrus.New()
	}
	s := &State{
		Calibration: calibration.NewStore(),
		listeners:   make(map[EventType][]EventListener),
		log:         log.WithField("component", "session"),
	}
	for i := range s.Cameras {
		s.Cameras[i] = CameraSource{Slot: i, Name: fmt.Sprintf("camera-%d", i)}
	}
	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the session as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// CurrentTask returns the active task, or nil when the session has none.
func (s *State) CurrentTask() *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.currentTask < 0 || s.currentTask >= len(s.Tasks) {
		return nil
	}
	return s.Tasks[s.currentTask]
}

// SelectTask switches the active task by index.
func (s *State) SelectTask(index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.Tasks) {
		s.mu.Unlock()
		return
	}
	s.currentTask = index
	task := s.Tasks[index]
	s.mu.Unlock()
	s.Emit(EventTaskChanged, task)
}

// TaskByID finds a task by id.
func (s *State) TaskByID(id string) *Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// CameraName returns the display name for a slot.
func (s *State) CameraName(slot int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Cameras[slot].Name
}

// StoreBox implements annotation.Persister: a freshly committed box is
// appended to the task's per-camera list and the session marked modified.
func (s *State) StoreBox(taskID, cameraName string, box annotation.ValidationBox) error {
	if !box.Valid() {
		return fmt.Errorf("box %s has invalid normalized geometry", box.ID)
	}

	task := s.TaskByID(taskID)
	if task == nil {
		return fmt.Errorf("unknown task %s", taskID)
	}

	s.mu.Lock()
	task.AddBox(cameraName, box)
	s.Modified = true
	s.mu.Unlock()

	s.Emit(EventBoxStored, box)
	return nil
}

// PassCurrentTask marks the active task passed if every box is validated.
func (s *State) PassCurrentTask(v Validator) error {
	task := s.CurrentTask()
	if task == nil {
		return fmt.Errorf("no active task")
	}
	if err := task.Pass(v); err != nil {
		return err
	}
	s.SetModified(true)
	s.Emit(EventStatusChanged, task)
	return nil
}

// FailCurrentTask marks the active task failed. Never blocked.
func (s *State) FailCurrentTask() error {
	task := s.CurrentTask()
	if task == nil {
		return fmt.Errorf("no active task")
	}
	task.Fail()
	s.SetModified(true)
	s.Emit(EventStatusChanged, task)
	return nil
}

// SessionFile is the JSON structure of a saved inspection session.
type SessionFile struct {
	Version        int                 `json:"version"`
	InstallationID string              `json:"installation"`
	Cameras        []CameraSource      `json:"cameras"`
	Tasks          []*Task             `json:"tasks"`
	Validated      map[string][]string `json:"validated,omitempty"`
}

// LoadSession loads a session from the specified path. The engine receives
// the saved validated sets so earlier acknowledgements survive a restart.
func (s *State) LoadSession(path string, engine *annotation.Engine) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading session: %w", err)
	}

	var f SessionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parsing session: %w", err)
	}

	s.mu.Lock()
	s.SessionPath = path
	s.Modified = false
	s.InstallationID = f.InstallationID
	for _, c := range f.Cameras {
		if c.Slot >= 0 && c.Slot < viewport.SlotCount {
			s.Cameras[c.Slot] = c
		}
	}
	s.Tasks = f.Tasks
	s.currentTask = 0
	s.mu.Unlock()

	if engine != nil {
		for taskID, ids := range f.Validated {
			engine.RestoreValidated(taskID, ids)
		}
	}

	s.log.WithFields(logrus.Fields{
		"path": path, "installation": f.InstallationID, "tasks": len(f.Tasks),
	}).Info("session loaded")
	s.Emit(EventSessionLoaded, path)
	return nil
}

// SaveSession saves the session to the specified path, capturing the
// engine's validated sets.
func (s *State) SaveSession(path string, engine *annotation.Engine) error {
	s.mu.RLock()
	f := SessionFile{
		Version:        1,
		InstallationID: s.InstallationID,
		Cameras:        s.Cameras[:],
		Tasks:          s.Tasks,
	}
	s.mu.RUnlock()

	if engine != nil {
		f.Validated = make(map[string][]string)
		for _, t := range f.Tasks {
			if ids := engine.ValidatedIDs(t.ID); len(ids) > 0 {
				f.Validated[t.ID] = ids
			}
		}
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing session: %w", err)
	}

	s.mu.Lock()
	s.SessionPath = path
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventSessionSaved, path)
	return nil
}
