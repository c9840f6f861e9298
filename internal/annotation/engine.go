package annotation

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"hangar-inspect/internal/viewport"
	"hangar-inspect/pkg/geometry"
)

// toggleDebounce suppresses a duplicate toggle of the same box id arriving
// within this window of the previous one (double-fired pointer-up events).
const toggleDebounce = 100 * time.Millisecond

// Draft is the transient state of an in-progress box creation: the first
// corner is fixed at pointer-down, the current corner follows the pointer
// until commit or cancel. At most one draft exists at a time, scoped to
// exactly one camera slot.
type Draft struct {
	ID          string
	Label       string
	Slot        int
	ImageWidth  float64
	ImageHeight float64

	StartPixel   geometry.Point2D
	StartNorm    geometry.Point2D
	CurrentPixel geometry.Point2D
	CurrentNorm  geometry.Point2D
}

// PreviewRect returns the draft's current normalized rectangle for overlay
// rendering.
func (d *Draft) PreviewRect() geometry.Rect {
	x0 := math.Min(d.StartNorm.X, d.CurrentNorm.X)
	y0 := math.Min(d.StartNorm.Y, d.CurrentNorm.Y)
	x1 := math.Max(d.StartNorm.X, d.CurrentNorm.X)
	y1 := math.Max(d.StartNorm.Y, d.CurrentNorm.Y)
	return geometry.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Persister stores a finalized box for a task/camera pair. Network or file
// I/O behind this interface is outside the engine's concern.
type Persister interface {
	StoreBox(taskID, cameraName string, box ValidationBox) error
}

// Engine runs the box creation state machine and the per-task validated-box
// sets. All methods are called from the UI event loop; the mutex only guards
// against reads from background renders.
type Engine struct {
	mu    sync.RWMutex
	draft *Draft

	// validated maps task id -> set of validated box ids. Sets are keyed
	// by task id so validation history survives task navigation.
	validated  map[string]map[string]bool
	lastToggle map[string]time.Time

	persist    Persister
	onTooSmall func(slot int, w, h float64)
	now        func() time.Time
	log        *logrus.Entry
}

// NewEngine creates an annotation engine. persist may be nil during
// calibration sessions where boxes are not saved.
func NewEngine(persist Persister, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	return &Engine{
		validated:  make(map[string]map[string]bool),
		lastToggle: make(map[string]time.Time),
		persist:    persist,
		now:        time.Now,
		log:        log.WithField("component", "annotation"),
	}
}

// OnTooSmall registers the observable signal raised when a creation attempt
// is rejected for being under the pixel minimum.
func (e *Engine) OnTooSmall(fn func(slot int, w, h float64)) {
	e.onTooSmall = fn
}

// Draft returns the active draft, or nil when idle.
func (e *Engine) Draft() *Draft {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.draft
}

// Drawing reports whether a draft is active for the given slot.
func (e *Engine) Drawing(slot int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.draft != nil && e.draft.Slot == slot
}

// StartDraft begins a new box on the given slot at the first corner.
// A start targeting a different slot while a draft is active elsewhere is
// ignored, as is a start while this slot is already drawing.
func (e *Engine) StartDraft(slot int, label string, p viewport.ImagePoint, imageWidth, imageHeight float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft != nil {
		return false
	}
	e.draft = &Draft{
		ID:           uuid.NewString(),
		Label:        label,
		Slot:         slot,
		ImageWidth:   imageWidth,
		ImageHeight:  imageHeight,
		StartPixel:   p.Pixel,
		StartNorm:    p.Normalized,
		CurrentPixel: p.Pixel,
		CurrentNorm:  p.Normalized,
	}
	e.log.WithFields(logrus.Fields{"slot": slot, "id": e.draft.ID}).Debug("draft started")
	return true
}

// UpdateDraft moves the draft's live corner; used for preview rendering
// only. Updates for other slots are ignored.
func (e *Engine) UpdateDraft(slot int, p viewport.ImagePoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft == nil || e.draft.Slot != slot {
		return
	}
	e.draft.CurrentPixel = p.Pixel
	e.draft.CurrentNorm = p.Normalized
}

// CommitDraft finalizes the draft into a ValidationBox for the given
// task/camera pair. The normalized rectangle is the (min,max) envelope of
// the two corners; a box under MinBoxPixels in either native-pixel dimension
// is silently discarded and the too-small signal raised. Returns the stored
// box, or nil when the attempt was discarded or no draft was active.
func (e *Engine) CommitDraft(slot int, taskID, cameraName string) *ValidationBox {
	e.mu.Lock()
	draft := e.draft
	if draft == nil || draft.Slot != slot {
		e.mu.Unlock()
		return nil
	}
	e.draft = nil
	e.mu.Unlock()

	r := draft.PreviewRect()
	pxW := r.Width * draft.ImageWidth
	pxH := r.Height * draft.ImageHeight
	if pxW <= MinBoxPixels || pxH <= MinBoxPixels {
		e.log.WithFields(logrus.Fields{
			"slot": slot, "w": pxW, "h": pxH,
		}).Warn("box below minimum size, discarded")
		if e.onTooSmall != nil {
			e.onTooSmall(slot, pxW, pxH)
		}
		return nil
	}

	box := ValidationBox{
		ID:          draft.ID,
		Label:       draft.Label,
		X:           r.X,
		Y:           r.Y,
		Width:       r.Width,
		Height:      r.Height,
		PixelX:      r.X * draft.ImageWidth,
		PixelY:      r.Y * draft.ImageHeight,
		PixelWidth:  pxW,
		PixelHeight: pxH,
	}

	if e.persist != nil {
		if err := e.persist.StoreBox(taskID, cameraName, box); err != nil {
			e.log.WithError(err).Error("storing validation box")
		}
	}
	e.log.WithFields(logrus.Fields{"slot": slot, "id": box.ID, "task": taskID}).Info("box created")
	return &box
}

// CancelDraft discards the draft with no side effects; the engine is left as
// if drawing had never started.
func (e *Engine) CancelDraft() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.draft != nil {
		e.log.WithField("id", e.draft.ID).Debug("draft cancelled")
		e.draft = nil
	}
}

// HitTest maps each box through the forward transform and returns the first
// whose on-screen rectangle contains the pointer, or nil.
func (e *Engine) HitTest(t viewport.DrawTransform, imageWidth, imageHeight float64,
	boxes []ValidationBox, screen geometry.Point2D) *ValidationBox {

	for i := range boxes {
		r := viewport.NormalizedRectToScreen(t, imageWidth, imageHeight, boxes[i].NormalizedRect())
		if !r.Empty() && r.Contains(screen) {
			return &boxes[i]
		}
	}
	return nil
}

// Toggle flips the box's membership in the task's validated set. A duplicate
// toggle of the same box within the debounce window is ignored. Returns the
// new membership state and whether the toggle was applied.
func (e *Engine) Toggle(taskID, boxID string) (validated, applied bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	if last, ok := e.lastToggle[boxID]; ok && now.Sub(last) < toggleDebounce {
		return e.validated[taskID][boxID], false
	}
	e.lastToggle[boxID] = now

	set, ok := e.validated[taskID]
	if !ok {
		set = make(map[string]bool)
		e.validated[taskID] = set
	}
	if set[boxID] {
		delete(set, boxID)
		return false, true
	}
	set[boxID] = true
	return true, true
}

// IsValidated reports whether the box is in the task's validated set.
func (e *Engine) IsValidated(taskID, boxID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.validated[taskID][boxID]
}

// AllValidated reports whether every given box is validated for the task.
// The pass/fail gate blocks a pass until this holds; fail is never blocked.
func (e *Engine) AllValidated(taskID string, boxes []ValidationBox) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	set := e.validated[taskID]
	for _, b := range boxes {
		if !set[b.ID] {
			return false
		}
	}
	return true
}

// ValidatedIDs returns the validated box ids for the task, for session
// persistence.
func (e *Engine) ValidatedIDs(taskID string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.validated[taskID]))
	for id := range e.validated[taskID] {
		ids = append(ids, id)
	}
	return ids
}

// RestoreValidated seeds a task's validated set, used when loading a saved
// session.
func (e *Engine) RestoreValidated(taskID string, boxIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set := make(map[string]bool, len(boxIDs))
	for _, id := range boxIDs {
		set[id] = true
	}
	e.validated[taskID] = set
}
