package style

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Job describes one extraction job: which tags to fetch, where, and how the
// resulting features are rendered.
type Job struct {
	// Area is an optional Overpass area filter such as
	// `["ISO3166-1"="DE"][admin_level=2]`. Empty means worldwide.
	Area string `yaml:"area,omitempty"`
	// BBox is an optional global bounding box "south,west,north,east".
	BBox string `yaml:"bbox,omitempty"`

	// Epsilon is the simplification tolerance in degrees. Zero disables
	// simplification.
	Epsilon float64 `yaml:"epsilon,omitempty"`
	// Buffer is the buffer radius in meters. Zero emits bare geometries.
	Buffer float64 `yaml:"buffer,omitempty"`
	// UTMZone selects the metric projection for buffering.
	UTMZone int `yaml:"utm_zone,omitempty"`

	// Script is an optional Lua file customizing feature properties.
	Script string `yaml:"script,omitempty"`

	// Filters lists the tag filters to fetch. At least one is required.
	Filters []Filter `yaml:"filters"`
}

// Filter selects elements by tag and carries their display properties.
type Filter struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value,omitempty"`

	// Epsilon and Buffer override the job-level settings for this filter.
	Epsilon *float64 `yaml:"epsilon,omitempty"`
	Buffer  *float64 `yaml:"buffer,omitempty"`

	// Properties is attached to features built from this filter.
	Properties map[string]interface{} `yaml:"properties,omitempty"`
}

// Name returns a filesystem-safe identifier for the filter.
func (f Filter) Name() string {
	if f.Value == "" {
		return f.Key
	}
	return f.Key + "_" + f.Value
}

// Expression returns the Overpass tag filter for this entry.
func (f Filter) Expression() string {
	if f.Value == "" {
		return fmt.Sprintf("%q", f.Key)
	}
	return fmt.Sprintf("%q=%q", f.Key, f.Value)
}

// Matches reports whether a tag map satisfies the filter.
func (f Filter) Matches(tags map[string]string) bool {
	v, ok := tags[f.Key]
	if !ok {
		return false
	}
	return f.Value == "" || f.Value == v
}

// EpsilonFor resolves the simplification tolerance for a filter.
func (j *Job) EpsilonFor(f Filter) float64 {
	if f.Epsilon != nil {
		return *f.Epsilon
	}
	return j.Epsilon
}

// BufferFor resolves the buffer radius for a filter.
func (j *Job) BufferFor(f Filter) float64 {
	if f.Buffer != nil {
		return *f.Buffer
	}
	return j.Buffer
}

// LoadJob reads and validates a job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to parse job YAML: %w", err)
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

// Validate checks the job for the mistakes a hand-written YAML file makes.
func (j *Job) Validate() error {
	if len(j.Filters) == 0 {
		return fmt.Errorf("job defines no filters")
	}
	seen := make(map[string]struct{}, len(j.Filters))
	for i, f := range j.Filters {
		if f.Key == "" {
			return fmt.Errorf("filter %d has no key", i)
		}
		name := f.Name()
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate filter %q", name)
		}
		seen[name] = struct{}{}
		if f.Epsilon != nil && *f.Epsilon < 0 {
			return fmt.Errorf("filter %q: epsilon must not be negative", name)
		}
		if f.Buffer != nil && *f.Buffer < 0 {
			return fmt.Errorf("filter %q: buffer must not be negative", name)
		}
	}
	if j.Epsilon < 0 {
		return fmt.Errorf("epsilon must not be negative")
	}
	if j.Buffer < 0 {
		return fmt.Errorf("buffer must not be negative")
	}
	if j.UTMZone != 0 && (j.UTMZone < 1 || j.UTMZone > 60) {
		return fmt.Errorf("utm_zone must be between 1 and 60")
	}
	return nil
}
