// Package tile provides the camera tile widget: it renders one camera's
// frame under the resolved draw transform and bridges pointer gestures to
// the viewport controller and the annotation engine.
package tile

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"hangar-inspect/internal/annotation"
	"hangar-inspect/internal/viewport"
	"hangar-inspect/pkg/geometry"
)

// Mode selects what drag gestures do on the tile.
type Mode int

const (
	// ModePan drags the zoomed image around.
	ModePan Mode = iota
	// ModeAnnotate drags out a new validation box.
	ModeAnnotate
)

// CameraTile displays one camera slot. All pointer events are interpreted in
// the tile's own coordinate space and converted through the coordinate
// mapper.
type CameraTile struct {
	widget.BaseWidget

	slot       int
	controller *viewport.Controller
	engine     *annotation.Engine

	frame  image.Image
	raster *fynecanvas.Raster
	mode   Mode

	// Boxes returns the current task's boxes for this tile's camera;
	// TaskID and CameraName identify where a committed box is stored.
	Boxes      func() []annotation.ValidationBox
	TaskID     func() string
	CameraName string

	// OnChanged fires after any gesture mutates view or annotation state
	// so the owner can refresh status displays.
	OnChanged func()
}

// NewCameraTile creates a tile bound to a slot of the controller and engine.
func NewCameraTile(slot int, controller *viewport.Controller, engine *annotation.Engine) *CameraTile {
	t := &CameraTile{
		slot:       slot,
		controller: controller,
		engine:     engine,
	}
	t.raster = fynecanvas.NewRaster(t.draw)
	t.ExtendBaseWidget(t)
	return t
}

// Slot returns the tile's camera slot index.
func (t *CameraTile) Slot() int {
	return t.slot
}

// SetMode switches between pan and annotate gestures.
func (t *CameraTile) SetMode(mode Mode) {
	t.mode = mode
}

// SetFrame installs a decoded frame and resets the view.
func (t *CameraTile) SetFrame(img image.Image) {
	t.frame = img
	if img != nil {
		b := img.Bounds()
		t.controller.SetImage(t.slot, float64(b.Dx()), float64(b.Dy()))
	} else {
		t.controller.SetImage(t.slot, 0, 0)
	}
	t.Refresh()
}

// Refresh redraws the tile.
func (t *CameraTile) Refresh() {
	t.raster.Refresh()
	t.BaseWidget.Refresh()
}

func (t *CameraTile) displaySize() (float64, float64) {
	size := t.Size()
	return float64(size.Width), float64(size.Height)
}

func (t *CameraTile) camera() *viewport.Camera {
	return t.controller.Camera(t.slot)
}

// interactive reports whether the tile accepts pointer interaction: no
// gestures while loading, failed, or before the first frame.
func (t *CameraTile) interactive() bool {
	cam := t.camera()
	return cam.HasImage() && !cam.Loading && !cam.Failed && t.frame != nil
}

func (t *CameraTile) changed() {
	if t.OnChanged != nil {
		t.OnChanged()
	}
}

// Scrolled zooms by one wheel step around the current view.
func (t *CameraTile) Scrolled(ev *fyne.ScrollEvent) {
	if !t.interactive() {
		return
	}
	w, h := t.displaySize()
	if ev.Scrolled.DY > 0 {
		t.controller.ApplyZoom(t.slot, viewport.ZoomStep, w, h)
	} else if ev.Scrolled.DY < 0 {
		t.controller.ApplyZoom(t.slot, 1/viewport.ZoomStep, w, h)
	}
	t.Refresh()
	t.changed()
}

// MouseDown starts a box draft in annotate mode.
func (t *CameraTile) MouseDown(ev *desktop.MouseEvent) {
	if t.mode != ModeAnnotate || !t.interactive() {
		return
	}
	w, h := t.displaySize()
	p, ok := t.controller.MapPointer(t.slot, w, h, pointOf(ev.Position))
	if !ok {
		return
	}
	cam := t.camera()
	t.engine.StartDraft(t.slot, "", p, cam.ImageWidth, cam.ImageHeight)
	t.Refresh()
}

// MouseUp commits the draft in annotate mode.
func (t *CameraTile) MouseUp(ev *desktop.MouseEvent) {
	if t.mode != ModeAnnotate || !t.engine.Drawing(t.slot) {
		return
	}
	taskID := ""
	if t.TaskID != nil {
		taskID = t.TaskID()
	}
	t.engine.CommitDraft(t.slot, taskID, t.CameraName)
	t.Refresh()
	t.changed()
}

// Dragged pans the view, or moves the draft's live corner while annotating.
func (t *CameraTile) Dragged(ev *fyne.DragEvent) {
	if !t.interactive() {
		return
	}
	w, h := t.displaySize()

	if t.mode == ModeAnnotate {
		if p, ok := t.controller.MapPointer(t.slot, w, h, pointOf(ev.Position)); ok {
			t.engine.UpdateDraft(t.slot, p)
		}
		t.Refresh()
		return
	}

	delta := geometry.Point2D{X: float64(ev.Dragged.DX), Y: float64(ev.Dragged.DY)}
	t.controller.ApplyPan(t.slot, delta, w, h)
	t.Refresh()
	t.changed()
}

// DragEnd finishes a pan; box commits happen on MouseUp.
func (t *CameraTile) DragEnd() {}

// Tapped hit-tests existing boxes and toggles validation membership.
func (t *CameraTile) Tapped(ev *fyne.PointEvent) {
	if t.mode != ModePan || !t.interactive() || t.Boxes == nil || t.TaskID == nil {
		return
	}

	w, h := t.displaySize()
	tr := t.controller.ResolveTransform(t.slot, w, h)
	if tr.Empty() {
		return
	}

	cam := t.camera()
	hit := t.engine.HitTest(tr, cam.ImageWidth, cam.ImageHeight, t.Boxes(), pointOf(ev.Position))
	if hit == nil {
		return
	}
	t.engine.Toggle(t.TaskID(), hit.ID)
	t.Refresh()
	t.changed()
}

// draw renders the tile: the frame under the resolved transform, then box
// overlays and the draft preview.
func (t *CameraTile) draw(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	fillBackground(out)

	if t.frame == nil {
		return out
	}

	dispW, dispH := t.displaySize()
	if dispW <= 0 || dispH <= 0 {
		return out
	}
	// Raster pixels may outnumber logical points on hidpi displays; the
	// transform is resolved in points and scaled here.
	scaleX := float64(w) / dispW
	scaleY := float64(h) / dispH

	tr := t.controller.ResolveTransform(t.slot, dispW, dispH)
	if tr.Empty() {
		return out
	}

	cam := t.camera()
	t.drawFrame(out, tr, cam, scaleX, scaleY, w, h)
	t.drawOverlays(out, tr, cam, scaleX, scaleY)
	return out
}

// drawFrame inverse-samples the source image per output pixel so rotation
// and mirroring come out of the same transform chain the pointer mapping
// uses.
func (t *CameraTile) drawFrame(out *image.RGBA, tr viewport.DrawTransform, cam *viewport.Camera, scaleX, scaleY float64, w, h int) {
	inv, ok := viewport.InverseMatrix(tr, cam.ImageWidth, cam.ImageHeight)
	if !ok {
		return
	}

	src := t.frame
	srcBounds := src.Bounds()

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			p := inv.Apply(geometry.Point2D{
				X: float64(x) / scaleX,
				Y: float64(y) / scaleY,
			})
			sx := int(p.X) + srcBounds.Min.X
			sy := int(p.Y) + srcBounds.Min.Y
			if sx < srcBounds.Min.X || sx >= srcBounds.Max.X ||
				sy < srcBounds.Min.Y || sy >= srcBounds.Max.Y {
				continue
			}
			out.Set(x, y, src.At(sx, sy))
		}
	}
}

func (t *CameraTile) drawOverlays(out *image.RGBA, tr viewport.DrawTransform, cam *viewport.Camera, scaleX, scaleY float64) {
	taskID := ""
	if t.TaskID != nil {
		taskID = t.TaskID()
	}

	if t.Boxes != nil {
		for _, box := range t.Boxes() {
			r := viewport.NormalizedRectToScreen(tr, cam.ImageWidth, cam.ImageHeight, box.NormalizedRect())
			if r.Empty() {
				continue
			}
			col := colorPending
			if t.engine.IsValidated(taskID, box.ID) {
				col = colorValidated
			}
			sr := scaleRect(r, scaleX, scaleY)
			drawRectOutline(out, sr, col)
			drawLabel(out, int(sr.X), int(sr.Y)-14, box.Label, color.RGBA{255, 255, 255, 255})
		}
	}

	if draft := t.engine.Draft(); draft != nil && draft.Slot == t.slot {
		r := viewport.NormalizedRectToScreen(tr, cam.ImageWidth, cam.ImageHeight, draft.PreviewRect())
		if !r.Empty() {
			drawRectOutline(out, scaleRect(r, scaleX, scaleY), colorDraft)
		}
	}
}

func scaleRect(r geometry.Rect, sx, sy float64) geometry.Rect {
	return geometry.Rect{X: r.X * sx, Y: r.Y * sy, Width: r.Width * sx, Height: r.Height * sy}
}

func fillBackground(out *image.RGBA) {
	// Opaque black; only the alpha bytes need setting.
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = 255
	}
}

func pointOf(pos fyne.Position) geometry.Point2D {
	return geometry.Point2D{X: float64(pos.X), Y: float64(pos.Y)}
}

// CreateRenderer implements fyne.Widget.
func (t *CameraTile) CreateRenderer() fyne.WidgetRenderer {
	return &tileRenderer{tile: t}
}

type tileRenderer struct {
	tile *CameraTile
}

func (r *tileRenderer) Layout(size fyne.Size) {
	r.tile.raster.Resize(size)
}

func (r *tileRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 150)
}

func (r *tileRenderer) Refresh() {
	r.tile.raster.Refresh()
}

func (r *tileRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.tile.raster}
}

func (r *tileRenderer) Destroy() {}
