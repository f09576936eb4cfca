package model

import (
	"fmt"
	"io"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

// Enum helpers (optional).
const (
	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"
)

const (
	defaultListen    = ":8420"
	defaultWorkers   = 4
	defaultRetention = time.Hour
)

//go:embed config.cue
var cueSource []byte

var (
	cueCtx *cue.Context
	schema cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	schema = compiled.LookupPath(cue.ParsePath("#Config"))
	if schema.Err() != nil {
		panic(schema.Err())
	}
	if err := schema.Validate(); err != nil {
		panic(err)
	}
}

type Config struct {
	Version int     `json:"version"` // fixed 0 for now
	Server  *Server `json:"server,omitempty"`
	Review  *Review `json:"review,omitempty"`
	Service Service `json:"service"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Listen string  `json:"listen"`
	Static *string `json:"static,omitempty"` // optional web UI directory
}

// Review tunes the job runner pool and session retention.
type Review struct {
	Workers   *int    `json:"workers,omitempty"`    // nil => 4
	Retention *string `json:"retention,omitempty"`  // Go duration, nil => 1h
	StepDelay *string `json:"step_delay,omitempty"` // simulated per-phase delay
}

// Service holds process-wide settings.
type Service struct {
	Verbose *bool   `json:"verbose,omitempty"`
	Log     *string `json:"log,omitempty"` // "stderr"|"stdout"|"discard"
}

// Listen returns the configured listen address or the default one.
func (c Config) Listen() string {
	if c.Server == nil || c.Server.Listen == "" {
		return defaultListen
	}
	return c.Server.Listen
}

// Workers returns the runner pool size, at least 1.
func (c Config) Workers() int {
	if c.Review == nil || c.Review.Workers == nil || *c.Review.Workers < 1 {
		return defaultWorkers
	}
	return *c.Review.Workers
}

// Retention returns how long terminal sessions are kept before eviction.
func (c Config) Retention() (time.Duration, error) {
	if c.Review == nil || c.Review.Retention == nil {
		return defaultRetention, nil
	}
	d, err := time.ParseDuration(*c.Review.Retention)
	if err != nil {
		return 0, fmt.Errorf("parsing review.retention: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("review.retention must be positive, got %s", d)
	}
	return d, nil
}

// StepDelay returns the artificial delay inserted after each analysis phase,
// zero when unset.
func (c Config) StepDelay() (time.Duration, error) {
	if c.Review == nil || c.Review.StepDelay == nil {
		return 0, nil
	}
	d, err := time.ParseDuration(*c.Review.StepDelay)
	if err != nil {
		return 0, fmt.Errorf("parsing review.step_delay: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("review.step_delay must not be negative, got %s", d)
	}
	return d, nil
}

func (c Config) Verbose() bool {
	return c.Service.Verbose != nil && *c.Service.Verbose
}

// DefaultConfig is what gets written on a first run without a config file.
func DefaultConfig() Config {
	return Config{
		Version: 0,
		Server: &Server{
			Listen: defaultListen,
		},
		Service: Service{},
	}
}

// LoadConfig validates YAML from r against the CUE schema and decodes it.
func LoadConfig(r io.Reader) (Config, error) {
	yamlFile, err := yaml.Extract("config.yaml", r)
	if err != nil {
		return Config{}, err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := schema.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return Config{}, err
	}

	var out Config
	if err := unified.Decode(&out); err != nil {
		return Config{}, err
	}

	// Fail fast on malformed durations, not at first use.
	if _, err := out.Retention(); err != nil {
		return Config{}, err
	}
	if _, err := out.StepDelay(); err != nil {
		return Config{}, err
	}

	return out, nil
}
