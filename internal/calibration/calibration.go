// Package calibration models the per-installation, per-camera corrective
// transform that compensates for physical camera-mounting variance between
// hangars. Offsets are stored in an installation- and viewport-independent
// unit; ScaleFactor converts them to screen pixels for the current draw size.
package calibration

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// OffsetUnit is the denominator of the device-independent offset unit: a
// stored offset of N moves the image by N/OffsetUnit of the smaller drawn
// dimension, regardless of viewport size or orientation.
const OffsetUnit = 1000.0

// Transform is the corrective transform for one camera slot.
// Rotation is in degrees, Flipped mirrors about the vertical axis.
type Transform struct {
	X        float64 `yaml:"x" json:"x"`
	Y        float64 `yaml:"y" json:"y"`
	Scale    float64 `yaml:"scale" json:"scale"`
	Rotation float64 `yaml:"rotation" json:"rotation"`
	Flipped  bool    `yaml:"flipped" json:"flipped"`
}

// Identity returns the no-op transform.
func Identity() Transform {
	return Transform{Scale: 1}
}

// IsIdentity reports whether applying the transform would change nothing.
func (t Transform) IsIdentity() bool {
	return t.X == 0 && t.Y == 0 && t.Scale == 1 && t.Rotation == 0 && !t.Flipped
}

// normalized fills in the default scale for transforms loaded from files
// where a zero value means "not set".
func (t Transform) normalized() Transform {
	if t.Scale == 0 {
		t.Scale = 1
	}
	return t
}

// ScaleFactor derives the screen-pixels-per-offset-unit factor for the
// current resolved draw rectangle (post contain-fit, pre-zoom). Using the
// smaller drawn dimension makes a stored offset behave identically in
// portrait and landscape tiles at any viewport size.
func ScaleFactor(drawnWidth, drawnHeight float64) float64 {
	m := drawnWidth
	if drawnHeight < m {
		m = drawnHeight
	}
	if m < 0 {
		m = 0
	}
	return m / OffsetUnit
}

// installationFile is the YAML shape of one installation's camera map.
type installationFile struct {
	Cameras map[int]Transform `yaml:"cameras"`
}

// storeFile is the YAML shape of the calibration file.
type storeFile struct {
	Installations map[string]installationFile `yaml:"installations"`
}

// Store holds calibration transforms keyed by installation id and camera
// slot. A missing entry is always the identity transform, never an error.
type Store struct {
	mu            sync.RWMutex
	installations map[string]map[int]Transform
}

// NewStore creates an empty calibration store.
func NewStore() *Store {
	return &Store{installations: make(map[string]map[int]Transform)}
}

// Lookup returns the transform for the installation/slot pair, or the
// identity transform when none is recorded.
func (s *Store) Lookup(installation string, slot int) Transform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if cams, ok := s.installations[installation]; ok {
		if t, ok := cams[slot]; ok {
			return t.normalized()
		}
	}
	return Identity()
}

// Set records the transform for the installation/slot pair.
func (s *Store) Set(installation string, slot int, t Transform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cams, ok := s.installations[installation]
	if !ok {
		cams = make(map[int]Transform)
		s.installations[installation] = cams
	}
	cams[slot] = t.normalized()
}

// Remove deletes the transform for the installation/slot pair, reverting the
// slot to identity.
func (s *Store) Remove(installation string, slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cams, ok := s.installations[installation]; ok {
		delete(cams, slot)
		if len(cams) == 0 {
			delete(s.installations, installation)
		}
	}
}

// Installations returns the ids of all installations with recorded
// transforms.
func (s *Store) Installations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.installations))
	for id := range s.installations {
		ids = append(ids, id)
	}
	return ids
}

// LoadFile reads a calibration store from a YAML file. A missing file yields
// an empty store so a fresh deployment starts from identity everywhere.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewStore(), nil
		}
		return nil, fmt.Errorf("reading calibration file: %w", err)
	}

	var f storeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing calibration YAML: %w", err)
	}

	s := NewStore()
	for id, inst := range f.Installations {
		for slot, t := range inst.Cameras {
			s.Set(id, slot, t)
		}
	}
	return s, nil
}

// SaveFile writes the calibration store to a YAML file.
func (s *Store) SaveFile(path string) error {
	s.mu.RLock()
	f := storeFile{Installations: make(map[string]installationFile, len(s.installations))}
	for id, cams := range s.installations {
		inst := installationFile{Cameras: make(map[int]Transform, len(cams))}
		for slot, t := range cams {
			inst.Cameras[slot] = t
		}
		f.Installations[id] = inst
	}
	s.mu.RUnlock()

	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling calibration YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing calibration file: %w", err)
	}
	return nil
}
