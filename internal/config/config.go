// Package config defines the JSON run configuration of the loader.
//
// Field names mirror the JSON keys. A file is optional: Default() is a
// complete configuration, a file overlays it, and environment variables
// overlay both. Validation is separate (ValidateRun) so that callers decide
// whether warnings are fatal.
//
// Example:
//
//	{
//	  "job":     "ruian-monthly",
//	  "source":  { "kind": "http", "url": "https://vdp.cuzk.cz/vymenny_format/csv/20240531_OB_ADR_csv.zip", "retries": 3 },
//	  "decoder": { "policy": "replace", "trim_space": false },
//	  "runtime": { "workers": 8, "queue_depth": 0, "intern_size": 65536 },
//	  "metrics": { "backend": "pushgateway", "pushgateway_url": "http://pushgateway:9091" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Run is the top-level object decoded from a run file.
type Run struct {
	// Job names the run in logs and metrics.
	Job     string  `json:"job" validate:"required"`
	Source  Source  `json:"source"`
	Decoder Decoder `json:"decoder"`
	Runtime Runtime `json:"runtime"`
	Metrics Metrics `json:"metrics"`
}

// Source says where the archive comes from.
type Source struct {
	// Kind is "file" or "http".
	Kind string `json:"kind" validate:"required,oneof=file http"`

	// Path is the local archive for kind "file".
	Path string `json:"path"`

	// URL is the archive location for kind "http".
	URL string `json:"url" validate:"omitempty,url"`

	// Retries is the number of download retries after the first attempt.
	Retries int `json:"retries" validate:"gte=0,lte=10"`

	// TempDir stages downloads; empty means the system temp dir.
	TempDir string `json:"temp_dir"`
}

// Decoder configures the Windows-1250 decoder.
type Decoder struct {
	// Policy is "replace" (default) or "strict".
	Policy string `json:"policy" validate:"omitempty,oneof=replace strict"`

	// TrimSpace trims white space around every cell before parsing.
	TrimSpace bool `json:"trim_space"`
}

// Runtime controls concurrency and memory.
type Runtime struct {
	// Workers is the number of parse lanes; 0 means GOMAXPROCS.
	Workers int `json:"workers" validate:"gte=0,lte=1024"`

	// QueueDepth bounds the reader→worker hand-off; 0 means one slot per entry.
	QueueDepth int `json:"queue_depth" validate:"gte=0"`

	// InternSize is the LRU capacity for repeated names; 0 disables interning.
	InternSize int `json:"intern_size" validate:"gte=0"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "none" (default), "pushgateway" or "datadog".
	Backend        string `json:"backend" validate:"omitempty,oneof=none pushgateway datadog"`
	PushgatewayURL string `json:"pushgateway_url" validate:"omitempty,url"`
	DatadogAddr    string `json:"datadog_addr" validate:"omitempty,hostname_port"`
}

// Default returns the configuration used when no file is given.
func Default() Run {
	return Run{
		Job:     "ruian",
		Source:  Source{Kind: "file", Retries: 3},
		Decoder: Decoder{Policy: "replace"},
		Runtime: Runtime{InternSize: 1 << 16},
		Metrics: Metrics{Backend: "none"},
	}
}

// Load reads a run file and overlays it on Default(). Unknown keys are
// rejected.
func Load(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	r, err := Decode(f)
	if err != nil {
		return Run{}, fmt.Errorf("config %s: %w", path, err)
	}
	return r, nil
}

// Decode reads one JSON run object from r, overlaying Default().
func Decode(r io.Reader) (Run, error) {
	run := Default()
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&run); err != nil {
		return Run{}, fmt.Errorf("decode: %w", err)
	}
	return run, nil
}

// ApplyEnv overlays environment overrides read through getenv (os.Getenv in
// production). Empty values are ignored.
func (r *Run) ApplyEnv(getenv func(string) string) error {
	env := func(k string) string { return strings.TrimSpace(getenv(k)) }

	ints := []struct {
		key string
		dst *int
	}{
		{"RUIAN_WORKERS", &r.Runtime.Workers},
		{"RUIAN_QUEUE_DEPTH", &r.Runtime.QueueDepth},
		{"RUIAN_INTERN_SIZE", &r.Runtime.InternSize},
	}
	for _, it := range ints {
		v := env(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = n
	}

	if v := env("RUIAN_TRIM_SPACE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RUIAN_TRIM_SPACE: %w", err)
		}
		r.Decoder.TrimSpace = b
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"RUIAN_JOB", &r.Job},
		{"RUIAN_POLICY", &r.Decoder.Policy},
		{"METRICS_BACKEND", &r.Metrics.Backend},
		{"PUSHGATEWAY_URL", &r.Metrics.PushgatewayURL},
		{"DD_AGENT_ADDR", &r.Metrics.DatadogAddr},
	}
	for _, it := range strs {
		if v := env(it.key); v != "" {
			*it.dst = v
		}
	}
	return nil
}
