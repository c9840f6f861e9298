package viewport

import (
	"github.com/sirupsen/logrus"

	"hangar-inspect/internal/calibration"
	"hangar-inspect/pkg/geometry"
)

const (
	// MinZoom is the native contain fit; panning is disabled here.
	MinZoom = 1.0
	// MaxZoom is the deepest permitted magnification.
	MaxZoom = 10.0
	// ZoomStep is the multiplicative factor of one wheel or pinch step.
	ZoomStep = 1.25

	// SlotCount is the number of camera tiles in an inspection grid.
	SlotCount = 8
)

// Camera is the per-slot mutable viewport state. Zoom stays within
// [MinZoom, MaxZoom]; pan is held in the zoom-multiplied stored unit and is
// {0,0} whenever zoom is exactly MinZoom.
type Camera struct {
	Slot    int
	Name    string
	Zoom    float64
	Pan     geometry.Point2D
	Loading bool
	Failed  bool

	// Natural pixel dimensions of the current frame; zero until a frame
	// has been decoded.
	ImageWidth  float64
	ImageHeight float64
}

// HasImage reports whether a decoded frame is available for layout.
func (c *Camera) HasImage() bool {
	return c.ImageWidth > 0 && c.ImageHeight > 0
}

// Controller owns the zoom/pan state of all camera slots and resolves their
// draw transforms. Each slot's state is mutated only through the reducer
// methods below, in response to gesture events or explicit reset.
type Controller struct {
	cameras     [SlotCount]Camera
	calibration func(slot int) calibration.Transform
	log         *logrus.Entry
}

// NewController creates a controller with all slots at identity view state.
// lookup provides the calibration transform per slot; nil means identity
// everywhere.
func NewController(lookup func(slot int) calibration.Transform, log *logrus.Logger) *Controller {
	if lookup == nil {
		lookup = func(int) calibration.Transform { return calibration.Identity() }
	}
	if log == nil {
		log = logrus.New()
	}
	c := &Controller{
		calibration: lookup,
		log:         log.WithField("component", "viewport"),
	}
	for i := range c.cameras {
		c.cameras[i] = Camera{Slot: i, Zoom: MinZoom}
	}
	return c
}

// Camera returns a pointer to the slot's state. Slot must be in
// [0, SlotCount).
func (c *Controller) Camera(slot int) *Camera {
	return &c.cameras[slot]
}

// SetCalibrationLookup replaces the calibration provider, e.g. when the
// operator switches installations.
func (c *Controller) SetCalibrationLookup(lookup func(slot int) calibration.Transform) {
	if lookup == nil {
		lookup = func(int) calibration.Transform { return calibration.Identity() }
	}
	c.calibration = lookup
}

// SetImage installs a newly decoded frame for the slot and resets the view,
// since zoom/pan state is meaningless across a source change.
func (c *Controller) SetImage(slot int, width, height float64) {
	cam := &c.cameras[slot]
	cam.ImageWidth = width
	cam.ImageHeight = height
	cam.Loading = false
	cam.Failed = false
	c.ResetView(slot)
}

// SetLoading marks the slot as waiting for a frame; the tile renders a
// placeholder and accepts no annotation interaction until a frame arrives.
func (c *Controller) SetLoading(slot int, loading bool) {
	c.cameras[slot].Loading = loading
}

// SetFailed marks the slot as failed after load retries are exhausted.
func (c *Controller) SetFailed(slot int) {
	cam := &c.cameras[slot]
	cam.Loading = false
	cam.Failed = true
	cam.ImageWidth = 0
	cam.ImageHeight = 0
}

// ApplyZoom multiplies the slot's zoom by factor, clamped to
// [MinZoom, MaxZoom], and re-clamps pan for the new zoom. Returning to
// MinZoom always re-centers: zoom == 1 implies pan == {0,0}.
func (c *Controller) ApplyZoom(slot int, factor, viewportWidth, viewportHeight float64) {
	cam := &c.cameras[slot]
	z := cam.Zoom * factor
	if z < MinZoom {
		z = MinZoom
	}
	if z > MaxZoom {
		z = MaxZoom
	}
	cam.Zoom = z
	cam.Pan = ClampPan(cam.Pan, z, viewportWidth, viewportHeight)
}

// ApplyPan moves the slot's view by a drag delta in screen pixels. The delta
// is scaled by zoom into the stored pan unit so that the rendered image
// tracks the pointer 1:1 at every zoom level, then clamped to the pan
// bounds. Ignored at native fit, where panning is not permitted.
func (c *Controller) ApplyPan(slot int, delta geometry.Point2D, viewportWidth, viewportHeight float64) {
	cam := &c.cameras[slot]
	if cam.Zoom <= MinZoom {
		return
	}
	cam.Pan = ClampPan(cam.Pan.Add(delta.Scale(cam.Zoom)), cam.Zoom, viewportWidth, viewportHeight)
}

// ResetView returns the slot to the native contain fit.
func (c *Controller) ResetView(slot int) {
	cam := &c.cameras[slot]
	cam.Zoom = MinZoom
	cam.Pan = geometry.Point2D{}
}

// ResolveTransform computes the slot's draw transform for a display area of
// the given size. Returns a zero transform when no frame is available or the
// display area is degenerate.
func (c *Controller) ResolveTransform(slot int, displayWidth, displayHeight float64) DrawTransform {
	cam := &c.cameras[slot]
	if !cam.HasImage() {
		return DrawTransform{}
	}
	layout := ResolveLayout(cam.ImageWidth, cam.ImageHeight, displayWidth, displayHeight)
	return Compose(layout, displayWidth, displayHeight, cam.Zoom, cam.Pan, c.calibration(slot))
}

// MapPointer converts a pointer position in the slot's display area to
// image-pixel and normalized coordinates under the current transform.
func (c *Controller) MapPointer(slot int, displayWidth, displayHeight float64, screen geometry.Point2D) (ImagePoint, bool) {
	cam := &c.cameras[slot]
	t := c.ResolveTransform(slot, displayWidth, displayHeight)
	if t.Empty() {
		return ImagePoint{}, false
	}
	return ScreenToImage(t, cam.ImageWidth, cam.ImageHeight, screen)
}
