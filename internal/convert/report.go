package convert

import (
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Report summarizes a conversion run. It is returned even when the run
// fails, holding whatever was counted up to the failure.
type Report struct {
	RunID    string `yaml:"run_id"`
	Mode     int    `yaml:"mode"`
	Config   string `yaml:"config"`
	Partial  bool   `yaml:"partial,omitempty"`
	Patients int    `yaml:"patients"`
	Written  int    `yaml:"written"`
	Rejected int    `yaml:"rejected"`

	Files []FileStats `yaml:"files"`

	// MissingForced counts, per forced signal, the patients it was missing from.
	MissingForced map[string]int `yaml:"missing_forced,omitempty"`
	// MissingDictionary counts string values absent from a signal's dictionary.
	MissingDictionary map[string]map[string]int `yaml:"missing_dictionary,omitempty"`

	// Outputs lists the files written into the output directory.
	Outputs []string `yaml:"outputs,omitempty"`

	Duration time.Duration `yaml:"duration"`
	Error    string        `yaml:"error,omitempty"`
}

// WriteYAML writes the report as a YAML document.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
