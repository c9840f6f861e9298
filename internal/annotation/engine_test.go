package annotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hangar-inspect/internal/viewport"
	"hangar-inspect/pkg/geometry"
)

type recordingPersister struct {
	taskID string
	camera string
	boxes  []ValidationBox
	err    error
}

func (r *recordingPersister) StoreBox(taskID, cameraName string, box ValidationBox) error {
	r.taskID = taskID
	r.camera = cameraName
	r.boxes = append(r.boxes, box)
	return r.err
}

func imagePoint(nx, ny, imageW, imageH float64) viewport.ImagePoint {
	return viewport.ImagePoint{
		Pixel:      geometry.Point2D{X: nx * imageW, Y: ny * imageH},
		Normalized: geometry.Point2D{X: nx, Y: ny},
	}
}

func TestTwoPointCreation(t *testing.T) {
	p := &recordingPersister{}
	e := NewEngine(p, nil)

	require.True(t, e.StartDraft(2, "rivet line", imagePoint(0.2, 0.2, 1000, 800), 1000, 800))
	e.UpdateDraft(2, imagePoint(0.35, 0.4, 1000, 800))
	e.UpdateDraft(2, imagePoint(0.5, 0.5, 1000, 800))

	box := e.CommitDraft(2, "task-1", "camera-2")
	require.NotNil(t, box)

	assert.InDelta(t, 0.2, box.X, 1e-9)
	assert.InDelta(t, 0.2, box.Y, 1e-9)
	assert.InDelta(t, 0.3, box.Width, 1e-9)
	assert.InDelta(t, 0.3, box.Height, 1e-9)
	assert.InDelta(t, 300, box.PixelWidth, 1e-9)
	assert.InDelta(t, 240, box.PixelHeight, 1e-9)
	assert.NotEmpty(t, box.ID)

	require.Len(t, p.boxes, 1)
	assert.Equal(t, "task-1", p.taskID)
	assert.Equal(t, "camera-2", p.camera)
	assert.Nil(t, e.Draft(), "engine should return to idle after commit")
}

func TestDragDirectionDoesNotMatter(t *testing.T) {
	e := NewEngine(&recordingPersister{}, nil)

	// Dragging up-left produces the same envelope as down-right.
	e.StartDraft(0, "", imagePoint(0.5, 0.5, 1000, 800), 1000, 800)
	e.UpdateDraft(0, imagePoint(0.2, 0.2, 1000, 800))
	box := e.CommitDraft(0, "t", "c")
	require.NotNil(t, box)
	assert.InDelta(t, 0.2, box.X, 1e-9)
	assert.InDelta(t, 0.2, box.Y, 1e-9)
	assert.InDelta(t, 0.3, box.Width, 1e-9)
}

func TestTooSmallBoxRejected(t *testing.T) {
	p := &recordingPersister{}
	e := NewEngine(p, nil)

	var signaled bool
	e.OnTooSmall(func(slot int, w, h float64) {
		signaled = true
		assert.Equal(t, 1, slot)
		assert.Less(t, w, MinBoxPixels+1)
	})

	// 5x4 native pixels on a 1000x800 frame.
	e.StartDraft(1, "", imagePoint(0.5, 0.5, 1000, 800), 1000, 800)
	e.UpdateDraft(1, imagePoint(0.505, 0.505, 1000, 800))
	box := e.CommitDraft(1, "t", "c")

	assert.Nil(t, box)
	assert.True(t, signaled, "too-small signal should fire")
	assert.Empty(t, p.boxes, "rejected box must not be persisted")
	assert.Nil(t, e.Draft(), "rejection still returns the engine to idle")
}

func TestSingleDraftAtATime(t *testing.T) {
	e := NewEngine(nil, nil)

	require.True(t, e.StartDraft(0, "", imagePoint(0.1, 0.1, 1000, 800), 1000, 800))
	assert.False(t, e.StartDraft(3, "", imagePoint(0.2, 0.2, 1000, 800), 1000, 800),
		"second draft on another slot must be refused")
	assert.True(t, e.Drawing(0))
	assert.False(t, e.Drawing(3))
}

func TestUpdateOtherSlotIgnored(t *testing.T) {
	e := NewEngine(nil, nil)
	e.StartDraft(0, "", imagePoint(0.1, 0.1, 1000, 800), 1000, 800)
	e.UpdateDraft(5, imagePoint(0.9, 0.9, 1000, 800))

	d := e.Draft()
	require.NotNil(t, d)
	assert.InDelta(t, 0.1, d.CurrentNorm.X, 1e-9, "foreign slot update must not move the corner")
}

func TestCancelDraft(t *testing.T) {
	p := &recordingPersister{}
	e := NewEngine(p, nil)

	e.StartDraft(0, "", imagePoint(0.1, 0.1, 1000, 800), 1000, 800)
	e.CancelDraft()

	assert.Nil(t, e.Draft())
	assert.Nil(t, e.CommitDraft(0, "t", "c"), "commit after cancel is a no-op")
	assert.Empty(t, p.boxes)

	// Cancel with no draft is harmless.
	e.CancelDraft()
}

func TestToggleAndDebounce(t *testing.T) {
	e := NewEngine(nil, nil)
	clock := time.Unix(1000, 0)
	e.now = func() time.Time { return clock }

	validated, applied := e.Toggle("task-1", "box-a")
	assert.True(t, validated)
	assert.True(t, applied)

	// Duplicate within the debounce window is ignored.
	clock = clock.Add(50 * time.Millisecond)
	validated, applied = e.Toggle("task-1", "box-a")
	assert.True(t, validated, "state must not change inside debounce window")
	assert.False(t, applied)

	// Past the window the same box toggles off.
	clock = clock.Add(toggleDebounce)
	validated, applied = e.Toggle("task-1", "box-a")
	assert.False(t, validated)
	assert.True(t, applied)
}

func TestValidationSetsScopedByTask(t *testing.T) {
	e := NewEngine(nil, nil)
	e.Toggle("task-1", "box-a")

	assert.True(t, e.IsValidated("task-1", "box-a"))
	assert.False(t, e.IsValidated("task-2", "box-a"))
}

func TestAllValidatedGate(t *testing.T) {
	e := NewEngine(nil, nil)
	boxes := []ValidationBox{{ID: "a"}, {ID: "b"}}

	assert.False(t, e.AllValidated("t", boxes))
	e.Toggle("t", "a")
	assert.False(t, e.AllValidated("t", boxes))
	e.now = func() time.Time { return time.Now().Add(time.Second) }
	e.Toggle("t", "b")
	assert.True(t, e.AllValidated("t", boxes))

	assert.True(t, e.AllValidated("t", nil), "a task with no boxes is trivially validated")
}

func TestRestoreValidated(t *testing.T) {
	e := NewEngine(nil, nil)
	e.RestoreValidated("t", []string{"a", "b"})

	assert.True(t, e.IsValidated("t", "a"))
	assert.True(t, e.IsValidated("t", "b"))
	assert.ElementsMatch(t, []string{"a", "b"}, e.ValidatedIDs("t"))
}

func TestHitTest(t *testing.T) {
	e := NewEngine(nil, nil)
	tr := viewport.DrawTransform{CenterX: 400, CenterY: 225, Width: 600, Height: 450}
	boxes := []ValidationBox{
		{ID: "left", X: 0.0, Y: 0.0, Width: 0.25, Height: 0.25},
		{ID: "mid", X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2},
	}

	// The draw rect spans x 100..700; normalized (0.5,0.5) is (400,225).
	hit := e.HitTest(tr, 4000, 3000, boxes, geometry.Point2D{X: 400, Y: 225})
	require.NotNil(t, hit)
	assert.Equal(t, "mid", hit.ID)

	hit = e.HitTest(tr, 4000, 3000, boxes, geometry.Point2D{X: 110, Y: 10})
	require.NotNil(t, hit)
	assert.Equal(t, "left", hit.ID)

	assert.Nil(t, e.HitTest(tr, 4000, 3000, boxes, geometry.Point2D{X: 690, Y: 440}),
		"empty corner should miss")
}
