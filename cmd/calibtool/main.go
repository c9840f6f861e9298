// Command calibtool fits and stores a camera calibration from point
// correspondences, and optionally grabs a test frame to verify the feed.
//
// The points file has one correspondence per line, four whitespace-separated
// numbers: the reference screen point, then where that feature actually
// appears on the drawn frame.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"image/png"
	"os"
	"time"

	"hangar-inspect/internal/calibration"
	"hangar-inspect/internal/capture"
	"hangar-inspect/internal/ocr"
	"hangar-inspect/pkg/geometry"
)

func main() {
	calPath := flag.String("cal", "calibration.yaml", "Calibration store file")
	install := flag.String("i", "", "Installation id")
	slot := flag.Int("slot", 0, "Camera slot (0-7)")
	points := flag.String("points", "", "Correspondence file to fit")
	drawnW := flag.Float64("w", 0, "Drawn frame width the points were picked on")
	drawnH := flag.Float64("h", 0, "Drawn frame height the points were picked on")
	grab := flag.String("grab", "", "Capture source to grab a test frame from")
	grabOut := flag.String("o", "frame.png", "Output file for the grabbed frame")
	tsRegion := flag.String("ts", "", "Timestamp OCR region as x,y,w,h")
	flag.Parse()

	if *grab != "" {
		if err := grabFrame(*grab, *grabOut, *tsRegion); err != nil {
			fmt.Fprintf(os.Stderr, "Grab failed: %v\n", err)
			os.Exit(1)
		}
	}

	if *points == "" {
		return
	}
	if *install == "" || *drawnW <= 0 || *drawnH <= 0 {
		fmt.Println("Usage: calibtool -points <file> -i <installation> -slot <n> -w <width> -h <height> [-cal <file>]")
		os.Exit(1)
	}

	src, dst, err := readPoints(*points)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reading points: %v\n", err)
		os.Exit(1)
	}

	fit, err := calibration.FitSimilarity(src, dst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fit failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("=== Fit from %d correspondences ===\n", len(src))
	fmt.Printf("scale=%.4f rotation=%.2f° tx=%.1f ty=%.1f\n",
		fit.Scale, fit.RotationDegrees, fit.TX, fit.TY)

	var worst float64
	for i := range src {
		if d := fit.Apply(src[i]).Distance(dst[i]); d > worst {
			worst = d
		}
	}
	fmt.Printf("worst residual: %.2f px\n", worst)

	t, err := fit.ToTransform(calibration.ScaleFactor(*drawnW, *drawnH))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Converting fit: %v\n", err)
		os.Exit(1)
	}

	store, err := calibration.LoadFile(*calPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Loading %s: %v\n", *calPath, err)
		os.Exit(1)
	}
	store.Set(*install, *slot, t)
	if err := store.SaveFile(*calPath); err != nil {
		fmt.Fprintf(os.Stderr, "Saving %s: %v\n", *calPath, err)
		os.Exit(1)
	}
	fmt.Printf("Stored %s slot %d: x=%.1f y=%.1f scale=%.4f rotation=%.2f\n",
		*install, *slot, t.X, t.Y, t.Scale, t.Rotation)
}

func readPoints(path string) (src, dst []geometry.Point2D, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" || text[0] == '#' {
			continue
		}
		var sx, sy, dx, dy float64
		if _, err := fmt.Sscan(text, &sx, &sy, &dx, &dy); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		src = append(src, geometry.Point2D{X: sx, Y: sy})
		dst = append(dst, geometry.Point2D{X: dx, Y: dy})
	}
	return src, dst, scanner.Err()
}

func grabFrame(source, outPath, tsRegion string) error {
	g, err := capture.Open(source, nil)
	if err != nil {
		return err
	}
	defer g.Close()

	frame, err := g.Grab()
	if err != nil {
		return err
	}
	fmt.Printf("=== Grabbed %dx%d from %s ===\n", frame.Width, frame.Height, source)

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := png.Encode(out, frame.Image); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", outPath)

	if tsRegion == "" {
		return nil
	}
	var r geometry.RectInt
	if _, err := fmt.Sscanf(tsRegion, "%d,%d,%d,%d", &r.X, &r.Y, &r.Width, &r.Height); err != nil {
		return fmt.Errorf("parsing -ts region: %w", err)
	}

	eng, err := ocr.NewEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ts, err := eng.ReadTimestamp(frame.Image, r)
	if err != nil {
		return err
	}
	fmt.Printf("Frame timestamp: %s", ts.Format("2006-01-02 15:04:05"))
	if ocr.Stale(ts, time.Now(), 10*time.Second) {
		fmt.Printf(" (STALE)")
	}
	fmt.Println()
	return nil
}
