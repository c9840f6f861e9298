// Package mainwindow provides the main inspection window: the 8-tile camera
// grid, task navigation, pass/fail controls, and the calibration panel.
package mainwindow

import (
	"context"
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"hangar-inspect/internal/annotation"
	"hangar-inspect/internal/app"
	"hangar-inspect/internal/calibration"
	"hangar-inspect/internal/imageload"
	"hangar-inspect/internal/viewport"
	"hangar-inspect/ui/prefs"
	"hangar-inspect/ui/tile"
)

const (
	prefKeyLastSession = "lastSession"
	prefKeyAnnotate    = "annotateMode"

	gridColumns = 4
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	state *app.State
	prefs *prefs.Prefs
	log   *logrus.Logger

	controller *viewport.Controller
	engine     *annotation.Engine
	loader     *imageload.Loader

	tiles     [viewport.SlotCount]*tile.CameraTile
	taskPick  *widget.Select
	statusBar *widget.Label
}

// New creates the main window wired to the session state.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, log *logrus.Logger) *MainWindow {
	if log == nil {
		log = logrus.New()
	}
	win := fyneApp.NewWindow("Hangar Inspect")

	mw := &MainWindow{
		Window: win,
		state:  state,
		prefs:  p,
		log:    log,
		loader: imageload.New(log),
	}

	mw.engine = annotation.NewEngine(state, log)
	mw.controller = viewport.NewController(func(slot int) calibration.Transform {
		return state.Calibration.Lookup(state.InstallationID, slot)
	}, log)

	mw.engine.OnTooSmall(func(slot int, w, h float64) {
		mw.setStatus(fmt.Sprintf("Box on camera %d too small (%.0fx%.0f px, need >%.0f)", slot, w, h, annotation.MinBoxPixels))
	})

	mw.setupUI()
	mw.setupShortcuts()
	mw.setupEventHandlers()

	win.Resize(fyne.NewSize(1600, 900))
	return mw
}

func (mw *MainWindow) setupUI() {
	grid := container.NewGridWithColumns(gridColumns)
	for slot := 0; slot < viewport.SlotCount; slot++ {
		t := tile.NewCameraTile(slot, mw.controller, mw.engine)
		t.CameraName = mw.state.CameraName(slot)
		t.TaskID = func() string {
			if task := mw.state.CurrentTask(); task != nil {
				return task.ID
			}
			return ""
		}
		t.Boxes = func(name string) func() []annotation.ValidationBox {
			return func() []annotation.ValidationBox {
				if task := mw.state.CurrentTask(); task != nil {
					return task.BoxesFor(name)
				}
				return nil
			}
		}(t.CameraName)
		t.OnChanged = mw.updateStatus
		mw.tiles[slot] = t
		grid.Add(t)
	}

	mw.taskPick = widget.NewSelect(nil, func(string) {
		mw.state.SelectTask(mw.taskPick.SelectedIndex())
	})
	mw.statusBar = widget.NewLabel("Ready")

	annotateCheck := widget.NewCheck("Draw Boxes", func(on bool) { mw.setAnnotate(on) })
	annotateCheck.SetChecked(mw.prefs.Bool(prefKeyAnnotate, false))

	toolbar := container.NewHBox(
		widget.NewButton("Reset Views", mw.resetAllViews),
		annotateCheck,
		widget.NewButton("Pass", mw.passTask),
		widget.NewButton("Fail", mw.failTask),
		widget.NewButton("Calibrate...", mw.showCalibrationDialog),
		widget.NewButton("Save Session", mw.saveSession),
		widget.NewLabel("Task:"),
		mw.taskPick,
	)

	content := container.NewBorder(
		toolbar,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		grid,
	)
	mw.SetContent(content)
}

// setupShortcuts installs the debounced global keys: Escape cancels an
// in-progress box draft, R resets all views, P/F pass or fail the task.
func (mw *MainWindow) setupShortcuts() {
	mw.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyEscape:
			mw.engine.CancelDraft()
			mw.refreshTiles()
		case fyne.KeyR:
			mw.resetAllViews()
		case fyne.KeyP:
			mw.passTask()
		case fyne.KeyF:
			mw.failTask()
		}
	})
}

func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventSessionLoaded, func(interface{}) {
		mw.reloadCameras()
		mw.refreshTaskList()
		mw.updateStatus()
	})
	mw.state.On(app.EventTaskChanged, func(interface{}) {
		mw.refreshTiles()
		mw.updateStatus()
	})
	mw.state.On(app.EventBoxStored, func(interface{}) {
		mw.refreshTiles()
		mw.updateStatus()
	})
	mw.state.On(app.EventCalibrationChanged, func(interface{}) {
		mw.refreshTiles()
	})
	mw.state.On(app.EventStatusChanged, func(interface{}) {
		mw.updateStatus()
	})
}

// reloadCameras starts an async frame load for every configured slot.
func (mw *MainWindow) reloadCameras() {
	for slot := 0; slot < viewport.SlotCount; slot++ {
		src := mw.state.Cameras[slot]
		mw.tiles[slot].CameraName = src.Name
		if src.Source == "" {
			continue
		}
		mw.controller.SetLoading(slot, true)

		go func(slot int, source string) {
			frame, err := mw.loader.Load(context.Background(), source)
			if err != nil {
				mw.log.WithError(err).WithField("slot", slot).Error("camera frame load failed")
				mw.controller.SetFailed(slot)
				mw.tiles[slot].Refresh()
				return
			}
			mw.tiles[slot].SetFrame(frame.Image)
			mw.state.Emit(app.EventFrameLoaded, slot)
		}(slot, src.Source)
	}
}

func (mw *MainWindow) refreshTaskList() {
	names := make([]string, len(mw.state.Tasks))
	for i, t := range mw.state.Tasks {
		names[i] = t.Name
	}
	mw.taskPick.Options = names
	if len(names) > 0 {
		mw.taskPick.SetSelectedIndex(0)
	}
	mw.taskPick.Refresh()
}

func (mw *MainWindow) refreshTiles() {
	for _, t := range mw.tiles {
		t.Refresh()
	}
}

func (mw *MainWindow) resetAllViews() {
	for slot := 0; slot < viewport.SlotCount; slot++ {
		mw.controller.ResetView(slot)
	}
	mw.refreshTiles()
}

func (mw *MainWindow) setAnnotate(on bool) {
	mode := tile.ModePan
	if on {
		mode = tile.ModeAnnotate
	}
	for _, t := range mw.tiles {
		t.SetMode(mode)
	}
	mw.prefs.SetBool(prefKeyAnnotate, on)
}

func (mw *MainWindow) passTask() {
	if err := mw.state.PassCurrentTask(mw.engine); err != nil {
		mw.setStatus(fmt.Sprintf("Cannot pass: %v", err))
		return
	}
	mw.updateStatus()
}

func (mw *MainWindow) failTask() {
	if err := mw.state.FailCurrentTask(); err != nil {
		mw.setStatus(fmt.Sprintf("Cannot fail: %v", err))
		return
	}
	mw.updateStatus()
}

func (mw *MainWindow) saveSession() {
	path := mw.state.SessionPath
	if path == "" {
		mw.setStatus("No session file to save to")
		return
	}
	if err := mw.state.SaveSession(path, mw.engine); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.prefs.SetString(prefKeyLastSession, path)
	mw.setStatus("Session saved")
}

// showCalibrationDialog edits one slot's calibration transform. Values take
// effect immediately; Save persists the whole store.
func (mw *MainWindow) showCalibrationDialog() {
	slotEntry := widget.NewSelect(slotOptions(), nil)
	slotEntry.SetSelectedIndex(0)

	xEntry := widget.NewEntry()
	yEntry := widget.NewEntry()
	scaleEntry := widget.NewEntry()
	rotEntry := widget.NewEntry()
	flipCheck := widget.NewCheck("Mirror horizontally", nil)

	loadSlot := func() {
		t := mw.state.Calibration.Lookup(mw.state.InstallationID, slotEntry.SelectedIndex())
		xEntry.SetText(fmt.Sprintf("%g", t.X))
		yEntry.SetText(fmt.Sprintf("%g", t.Y))
		scaleEntry.SetText(fmt.Sprintf("%g", t.Scale))
		rotEntry.SetText(fmt.Sprintf("%g", t.Rotation))
		flipCheck.SetChecked(t.Flipped)
	}
	slotEntry.OnChanged = func(string) { loadSlot() }
	loadSlot()

	form := dialog.NewForm("Camera Calibration", "Apply", "Close",
		[]*widget.FormItem{
			widget.NewFormItem("Camera", slotEntry),
			widget.NewFormItem("Offset X", xEntry),
			widget.NewFormItem("Offset Y", yEntry),
			widget.NewFormItem("Scale", scaleEntry),
			widget.NewFormItem("Rotation (deg)", rotEntry),
			widget.NewFormItem("Flip", flipCheck),
		},
		func(apply bool) {
			if !apply {
				return
			}
			t := calibration.Transform{
				X:        parseFloat(xEntry.Text, 0),
				Y:        parseFloat(yEntry.Text, 0),
				Scale:    parseFloat(scaleEntry.Text, 1),
				Rotation: parseFloat(rotEntry.Text, 0),
				Flipped:  flipCheck.Checked,
			}
			mw.state.Calibration.Set(mw.state.InstallationID, slotEntry.SelectedIndex(), t)
			mw.state.Emit(app.EventCalibrationChanged, slotEntry.SelectedIndex())
			mw.state.SetModified(true)
		},
		mw.Window)
	form.Show()
}

func slotOptions() []string {
	opts := make([]string, viewport.SlotCount)
	for i := range opts {
		opts[i] = fmt.Sprintf("Camera %d", i)
	}
	return opts
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (mw *MainWindow) setStatus(msg string) {
	mw.statusBar.SetText(msg)
}

func (mw *MainWindow) updateStatus() {
	task := mw.state.CurrentTask()
	if task == nil {
		mw.setStatus("No task selected")
		return
	}
	boxes := task.AllBoxes()
	validated := 0
	for _, b := range boxes {
		if mw.engine.IsValidated(task.ID, b.ID) {
			validated++
		}
	}
	mw.setStatus(fmt.Sprintf("%s [%s]: %d/%d boxes validated", task.Name, task.Status, validated, len(boxes)))
}

// RestoreSession reopens the last session recorded in preferences.
func (mw *MainWindow) RestoreSession() {
	path := mw.prefs.String(prefKeyLastSession)
	if path == "" {
		return
	}
	if err := mw.state.LoadSession(path, mw.engine); err != nil {
		mw.log.WithError(err).Warn("restoring last session")
	}
}

// OpenSession loads a session file and records it in preferences.
func (mw *MainWindow) OpenSession(path string) error {
	if err := mw.state.LoadSession(path, mw.engine); err != nil {
		return err
	}
	mw.prefs.SetString(prefKeyLastSession, path)
	return nil
}

// SavePreferences flushes preferences to disk.
func (mw *MainWindow) SavePreferences() {
	if err := mw.prefs.Save(); err != nil {
		mw.log.WithError(err).Warn("saving preferences")
	}
}
