package provenance

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ManifestFileName is the per-target manifest file under the library dir.
const ManifestFileName = "manifest.json"

// Trace describes the provenance of one overlay.
type Trace struct {
	TraceID        string            `json:"trace_id"`
	Source         string            `json:"source"`
	SourcePath     string            `json:"source_path,omitempty"`
	Query          map[string]string `json:"query,omitempty"`
	Fingerprint    string            `json:"fingerprint,omitempty"`
	SourceUnit     string            `json:"source_unit,omitempty"`
	WavelengthUnit string            `json:"wavelength_unit,omitempty"`
	FluxUnit       string            `json:"flux_unit,omitempty"`
	FluxMode       string            `json:"flux_mode,omitempty"`
	Points         int               `json:"points,omitempty"`
	OverlayFile    string            `json:"overlay_file,omitempty"`
	RecordedAt     time.Time         `json:"recorded_at"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// Manifest aggregates traces for a single target.
type Manifest struct {
	Version   int              `json:"version"`
	Target    string           `json:"target"`
	Traces    map[string]Trace `json:"traces"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// CurrentVersion is the manifest schema version written by this build.
const CurrentVersion = 1

// NewManifest returns an empty manifest for a target.
func NewManifest(target string) *Manifest {
	return &Manifest{
		Version: CurrentVersion,
		Target:  target,
		Traces:  make(map[string]Trace),
	}
}

// Put records a trace, overwriting any entry with the same TraceID.
func (m *Manifest) Put(trace Trace) error {
	if strings.TrimSpace(trace.TraceID) == "" {
		return errors.New("trace id must not be empty")
	}
	if trace.RecordedAt.IsZero() {
		trace.RecordedAt = time.Now().UTC()
	}
	if m.Traces == nil {
		m.Traces = make(map[string]Trace)
	}
	m.Traces[trace.TraceID] = trace
	if trace.RecordedAt.After(m.UpdatedAt) {
		m.UpdatedAt = trace.RecordedAt
	}
	return nil
}

// FindByFingerprint returns the first trace whose fingerprint matches.
func (m *Manifest) FindByFingerprint(fingerprint string) (Trace, bool) {
	fingerprint = strings.TrimSpace(fingerprint)
	if fingerprint == "" {
		return Trace{}, false
	}
	for _, trace := range m.Traces {
		if trace.Fingerprint == fingerprint {
			return trace, true
		}
	}
	return Trace{}, false
}

// List returns traces ordered newest first.
func (m *Manifest) List() []Trace {
	traces := make([]Trace, 0, len(m.Traces))
	for _, trace := range m.Traces {
		traces = append(traces, trace)
	}
	sort.Slice(traces, func(i, j int) bool {
		if traces[i].RecordedAt.Equal(traces[j].RecordedAt) {
			return traces[i].TraceID < traces[j].TraceID
		}
		return traces[i].RecordedAt.After(traces[j].RecordedAt)
	})
	return traces
}

// Merge folds src into dst with last-write-wins semantics: when both sides
// carry a trace with the same id, the newer RecordedAt survives. Ties keep
// dst. Returns dst for chaining.
func Merge(dst, src *Manifest) *Manifest {
	if dst == nil {
		return src
	}
	if src == nil {
		return dst
	}
	if dst.Traces == nil {
		dst.Traces = make(map[string]Trace, len(src.Traces))
	}
	if dst.Target == "" {
		dst.Target = src.Target
	}
	for id, incoming := range src.Traces {
		existing, ok := dst.Traces[id]
		if ok && !incoming.RecordedAt.After(existing.RecordedAt) {
			continue
		}
		dst.Traces[id] = incoming
	}
	if src.UpdatedAt.After(dst.UpdatedAt) {
		dst.UpdatedAt = src.UpdatedAt
	}
	if dst.Version < src.Version {
		dst.Version = src.Version
	}
	return dst
}

// Load reads a manifest file. A missing file yields an empty manifest for the
// given target rather than an error.
func Load(dir, target string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewManifest(target), nil
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.Traces == nil {
		m.Traces = make(map[string]Trace)
	}
	if m.Target == "" {
		m.Target = target
	}
	return &m, nil
}

// Save writes the manifest atomically (write temp, rename).
func (m *Manifest) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if m.Version == 0 {
		m.Version = CurrentVersion
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(dir, ManifestFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
