package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

var validPolicies = map[string]bool{"pass": true, "strict": true}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Table) == "" {
		return fmt.Errorf("table is required")
	}
	if !validPolicies[strings.ToLower(c.Malformed)] {
		return fmt.Errorf("malformed must be pass or strict, got %q", c.Malformed)
	}
	if c.Parallel < 0 {
		return fmt.Errorf("parallel must not be negative, got %d", c.Parallel)
	}
	names := make(map[string]int, len(c.Jobs))
	outputs := make(map[string]int, len(c.Jobs))
	for i, job := range c.Jobs {
		if job.Input == "" {
			return fmt.Errorf("jobs[%d]: input is required", i)
		}
		if job.Malformed != "" && !validPolicies[strings.ToLower(job.Malformed)] {
			return fmt.Errorf("jobs[%d]: malformed must be pass or strict, got %q", i, job.Malformed)
		}
		if job.Name != "" {
			if prev, ok := names[job.Name]; ok {
				return fmt.Errorf("jobs[%d]: name %q is already used by jobs[%d]", i, job.Name, prev)
			}
			names[job.Name] = i
		}
		// Jobs run concurrently, so two of them must never write one file.
		if job.Output != "" {
			out := filepath.Clean(job.Output)
			if prev, ok := outputs[out]; ok {
				return fmt.Errorf("jobs[%d]: output %s is already written by jobs[%d]", i, job.Output, prev)
			}
			outputs[out] = i
		}
	}
	return nil
}

// ValidateTarget checks that a load target is configured.
func (c *Config) ValidateTarget() error {
	if c.Target == nil {
		return fmt.Errorf("no target configured\nHint: add a target: section to dumpconv.yaml or set DUMPCONV_TARGET_DSN")
	}
	if c.Target.DSN == "" && c.Target.Database == "" {
		return fmt.Errorf("target database is required")
	}
	return nil
}
