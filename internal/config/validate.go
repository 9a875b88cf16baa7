package config

import (
	"errors"
	"fmt"
	"strings"
)

var validFluxModes = map[string]struct{}{
	"":     {},
	"none": {},
	"peak": {},
	"area": {},
}

// Validate checks configuration invariants after normalization. It collects
// every problem rather than stopping at the first so a bad config file can be
// fixed in one pass.
func (c *Config) Validate() error {
	var problems []string

	require := func(value, name string) {
		if strings.TrimSpace(value) == "" {
			problems = append(problems, fmt.Sprintf("%s must not be empty", name))
		}
	}
	require(c.Paths.IncomingDir, "paths.incoming_dir")
	require(c.Paths.StagingDir, "paths.staging_dir")
	require(c.Paths.LibraryDir, "paths.library_dir")
	require(c.Paths.LogDir, "paths.log_dir")

	positive := func(value int, name string) {
		if value <= 0 {
			problems = append(problems, fmt.Sprintf("%s must be positive", name))
		}
	}
	positive(c.Workflow.QueuePollInterval, "workflow.queue_poll_interval")
	positive(c.Workflow.ErrorRetryInterval, "workflow.error_retry_interval")
	positive(c.Workflow.HeartbeatInterval, "workflow.heartbeat_interval")
	positive(c.Workflow.HeartbeatTimeout, "workflow.heartbeat_timeout")
	positive(c.Archives.RequestTimeout, "archives.request_timeout")

	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}

	if _, ok := validFluxModes[c.Normalize.FluxMode]; !ok {
		problems = append(problems, fmt.Sprintf("normalize.flux_mode %q is not one of none, peak, area", c.Normalize.FluxMode))
	}
	if c.Normalize.ResamplePoints < 0 {
		problems = append(problems, "normalize.resample_points must not be negative")
	}
	if c.Normalize.SmoothWindow < 0 {
		problems = append(problems, "normalize.smooth_window must not be negative")
	}

	if c.FetchCache.Enabled {
		require(c.FetchCache.Dir, "fetch_cache.dir")
		positive(c.FetchCache.MaxMiB, "fetch_cache.max_mib")
	}

	if len(c.Ingest.Extensions) == 0 {
		problems = append(problems, "ingest.extensions must list at least one extension")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
