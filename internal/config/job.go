package config

import "gopkg.in/yaml.v3"

const (
	JobScanner = "scanner"
	JobScoring = "scoring"
	JobScreen  = "screen"
)

// Job is a named scan. Kind names the scanner or screen; Params is decoded
// over that kind's defaults.
type Job struct {
	Name     string    `yaml:"name"`
	Cron     string    `yaml:"cron"`
	Type     string    `yaml:"type"`
	Kind     string    `yaml:"kind"`
	Period   string    `yaml:"period"`
	Interval string    `yaml:"interval"`
	Notify   bool      `yaml:"notify"`
	Params   yaml.Node `yaml:"params"`
}

func (j Job) decoder() func(v any) error {
	if j.Params.Kind == 0 {
		return nil
	}
	return j.Params.Decode
}

// Label describes the job for listings.
func (j Job) Label() string {
	switch j.Type {
	case JobScoring:
		return "scoring"
	case JobScreen:
		return "screen " + j.Kind
	}
	return j.Kind
}
