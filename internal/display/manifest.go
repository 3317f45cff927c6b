package display

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/planflat/internal/flatten"
)

// Manifest is the YAML record written next to a dump with --manifest.
type Manifest struct {
	Plan        string            `yaml:"plan"`
	RunID       string            `yaml:"run_id,omitempty"`
	Source      string            `yaml:"source"`
	Destination string            `yaml:"destination"`
	DryRun      bool              `yaml:"dry_run,omitempty"`
	Files       int               `yaml:"files"`
	Bytes       int64             `yaml:"bytes"`
	GeneratedAt time.Time         `yaml:"generated_at"`
	Mappings    []flatten.Mapping `yaml:"mappings"`
}

// NewManifest builds the manifest for a finished run.
func NewManifest(plan, runID string, summary *flatten.Summary, now time.Time) Manifest {
	return Manifest{
		Plan:        plan,
		RunID:       runID,
		Source:      summary.Source,
		Destination: summary.Destination,
		DryRun:      summary.DryRun,
		Files:       len(summary.Files),
		Bytes:       summary.Bytes,
		GeneratedAt: now.UTC(),
		Mappings:    summary.Files,
	}
}

// Render encodes the manifest as YAML.
func (m Manifest) Render() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	return data, nil
}

// ParseManifest decodes a manifest produced by Render.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
