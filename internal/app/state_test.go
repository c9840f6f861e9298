package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangar-inspect/internal/annotation"
)

func testBox(id string) annotation.ValidationBox {
	return annotation.ValidationBox{ID: id, X: 0.2, Y: 0.2, Width: 0.3, Height: 0.3}
}

func newStateWithTask() *State {
	s := NewState(nil)
	s.InstallationID = "hangar-7"
	s.Tasks = []*Task{
		{ID: "task-1", Name: "Left wing surface", Status: StatusPending},
		{ID: "task-2", Name: "Gear bay", Status: StatusPending},
	}
	return s
}

func TestStoreBox(t *testing.T) {
	s := newStateWithTask()

	var stored annotation.ValidationBox
	s.On(EventBoxStored, func(data interface{}) {
		stored = data.(annotation.ValidationBox)
	})

	err := s.StoreBox("task-1", "camera-2", testBox("b1"))
	require.NoError(t, err)

	task := s.TaskByID("task-1")
	require.Len(t, task.BoxesFor("camera-2"), 1)
	assert.Equal(t, "b1", stored.ID)
	assert.True(t, s.Modified)
}

func TestStoreBoxRejectsUnknownTask(t *testing.T) {
	s := newStateWithTask()
	err := s.StoreBox("no-such-task", "camera-0", testBox("b1"))
	assert.Error(t, err)
}

func TestStoreBoxRejectsInvalidGeometry(t *testing.T) {
	s := newStateWithTask()
	bad := annotation.ValidationBox{ID: "b1", X: 0.9, Y: 0.2, Width: 0.5, Height: 0.3}
	err := s.StoreBox("task-1", "camera-0", bad)
	assert.Error(t, err)
	assert.Empty(t, s.TaskByID("task-1").AllBoxes())
}

func TestPassBlockedUntilAllValidated(t *testing.T) {
	s := newStateWithTask()
	engine := annotation.NewEngine(s, nil)

	require.NoError(t, s.StoreBox("task-1", "camera-0", testBox("b1")))
	require.NoError(t, s.StoreBox("task-1", "camera-3", testBox("b2")))

	err := s.PassCurrentTask(engine)
	require.Error(t, err, "pass must be blocked while boxes are unvalidated")
	assert.Equal(t, StatusPending, s.CurrentTask().Status)

	engine.RestoreValidated("task-1", []string{"b1", "b2"})
	require.NoError(t, s.PassCurrentTask(engine))
	assert.Equal(t, StatusPassed, s.CurrentTask().Status)
}

func TestFailNeverBlocked(t *testing.T) {
	s := newStateWithTask()
	require.NoError(t, s.StoreBox("task-1", "camera-0", testBox("b1")))

	require.NoError(t, s.FailCurrentTask())
	assert.Equal(t, StatusFailed, s.CurrentTask().Status)
}

func TestSelectTask(t *testing.T) {
	s := newStateWithTask()

	var changed *Task
	s.On(EventTaskChanged, func(data interface{}) {
		changed = data.(*Task)
	})

	s.SelectTask(1)
	assert.Equal(t, "task-2", s.CurrentTask().ID)
	require.NotNil(t, changed)
	assert.Equal(t, "task-2", changed.ID)

	// Out-of-range selection is ignored.
	s.SelectTask(99)
	assert.Equal(t, "task-2", s.CurrentTask().ID)
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := newStateWithTask()
	s.Cameras[2].Name = "tail-left"
	s.Cameras[2].Source = "http://rig.local/cam/2"
	engine := annotation.NewEngine(s, nil)

	require.NoError(t, s.StoreBox("task-1", "tail-left", testBox("b1")))
	engine.RestoreValidated("task-1", []string{"b1"})

	require.NoError(t, s.SaveSession(path, engine))
	assert.False(t, s.Modified, "save clears the modified flag")

	loadedState := NewState(nil)
	loadedEngine := annotation.NewEngine(loadedState, nil)
	require.NoError(t, loadedState.LoadSession(path, loadedEngine))

	assert.Equal(t, "hangar-7", loadedState.InstallationID)
	assert.Equal(t, "tail-left", loadedState.Cameras[2].Name)
	assert.Equal(t, "http://rig.local/cam/2", loadedState.Cameras[2].Source)
	require.Len(t, loadedState.Tasks, 2)
	require.Len(t, loadedState.TaskByID("task-1").BoxesFor("tail-left"), 1)
	assert.True(t, loadedEngine.IsValidated("task-1", "b1"),
		"validated sets survive a save/load cycle")
}

func TestLoadSessionMissingFile(t *testing.T) {
	s := NewState(nil)
	err := s.LoadSession(filepath.Join(t.TempDir(), "absent.json"), nil)
	assert.Error(t, err)
}
