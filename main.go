// Package main provides the entry point for the Hangar Inspect application.
package main

import (
	"os"
	"time"

	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	"github.com/sirupsen/logrus"

	"hangar-inspect/internal/app"
	"hangar-inspect/internal/calibration"
	"hangar-inspect/internal/version"
	"hangar-inspect/ui/mainwindow"
	"hangar-inspect/ui/prefs"
)

const appTitle = "Hangar Inspect"

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("HANGAR_DEBUG") != "" {
		log.SetLevel(logrus.DebugLevel)
	}
	log.WithFields(logrus.Fields{
		"version": version.Version, "commit": version.GitCommit,
	}).Infof("starting %s", appTitle)

	fyneApp := fyneapp.NewWithID("hangar-inspect")
	appPrefs := prefs.Load()
	appState := app.NewState(log)

	calPath := calibrationPath()
	store, err := calibration.LoadFile(calPath)
	if err != nil {
		log.WithError(err).WithField("path", calPath).Warn("loading calibration, using identity")
	} else {
		appState.Calibration = store
	}

	win := mainwindow.New(fyneApp, appState, appPrefs, log)

	if len(os.Args) > 1 {
		if err := win.OpenSession(os.Args[1]); err != nil {
			log.WithError(err).WithField("path", os.Args[1]).Error("loading session")
		}
	} else {
		win.RestoreSession()
	}

	setupHotReload(win, log)

	win.SetOnClosed(func() {
		win.SavePreferences()
		if appState.Modified {
			log.Warn("exiting with unsaved session changes")
		}
	})

	win.ShowAndRun()
}

// calibrationPath resolves the per-user calibration file, overridable for
// shared installations via HANGAR_CALIBRATION.
func calibrationPath() string {
	if p := os.Getenv("HANGAR_CALIBRATION"); p != "" {
		return p
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.Getenv("HOME")
	}
	return configDir + "/hangar-inspect/calibration.yaml"
}

// setupHotReload configures restart detection for development builds.
func setupHotReload(win *mainwindow.MainWindow, log *logrus.Logger) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		log.Warn("hot reload: unable to determine executable path")
		return
	}
	log.WithField("path", reloader.ExecPath()).Debug("hot reload: watching binary")

	reloader.OnTick(func() {
		win.SavePreferences()
	})

	reloader.OnNewBinary(func() {
		dialog.ShowConfirm("New Version Available",
			"The application binary has been updated.\nRestart now?",
			func(restart bool) {
				if !restart {
					reloader.ResetBaseline()
					reloader.Start()
					return
				}
				win.SavePreferences()
				if err := reloader.Restart(); err != nil {
					log.WithError(err).Error("hot reload: restart failed")
				}
			}, win)
	})

	reloader.Start()
}
