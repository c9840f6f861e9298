// Package capture grabs live frames from a local device or RTSP stream via
// OpenCV, producing the same decoded-frame record the HTTP loader produces.
package capture

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"hangar-inspect/internal/imageload"
)

// Grabber wraps one VideoCapture. Not safe for concurrent use; each camera
// slot owns at most one grabber.
type Grabber struct {
	source string
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	log    *logrus.Entry
}

// Open connects to a capture source: a device index ("0") or a stream URL
// ("rtsp://...").
func Open(source string, log *logrus.Logger) (*Grabber, error) {
	if log == nil {
		log = logrus.New()
	}

	var (
		cap *gocv.VideoCapture
		err error
	)
	if idx, convErr := strconv.Atoi(source); convErr == nil {
		cap, err = gocv.VideoCaptureDevice(idx)
	} else {
		cap, err = gocv.VideoCaptureFile(source)
	}
	if err != nil {
		return nil, fmt.Errorf("opening capture %s: %w", source, err)
	}

	return &Grabber{
		source: source,
		cap:    cap,
		mat:    gocv.NewMat(),
		log:    log.WithField("component", "capture"),
	}, nil
}

// Grab reads one frame and converts it to a Frame.
func (g *Grabber) Grab() (*imageload.Frame, error) {
	if !g.cap.Read(&g.mat) || g.mat.Empty() {
		return nil, fmt.Errorf("no frame from %s", g.source)
	}

	img, err := g.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("converting frame: %w", err)
	}

	b := img.Bounds()
	g.log.WithFields(logrus.Fields{"source": g.source, "w": b.Dx(), "h": b.Dy()}).Debug("frame grabbed")
	return &imageload.Frame{Image: img, Width: b.Dx(), Height: b.Dy(), Source: g.source}, nil
}

// Close releases the capture and its buffers.
func (g *Grabber) Close() error {
	g.mat.Close()
	if g.cap != nil {
		return g.cap.Close()
	}
	return nil
}
