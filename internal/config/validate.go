package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

var knownBackends = map[string]bool{
	"ddup": true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous zero-values that would break the pipeline are clamped to safe
// defaults; everything else is logged as a warning and does not prevent
// startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.SlotCount < 1 {
		errs = append(errs, fmt.Errorf("slot_count %d is below minimum 1, clamping", c.SlotCount))
		c.SlotCount = 1
	} else if c.SlotCount > 32 {
		errs = append(errs, fmt.Errorf("slot_count %d exceeds maximum 32, clamping", c.SlotCount))
		c.SlotCount = 32
	}

	// The GPU heap import requires a 64KiB-aligned region; keep the mapping
	// a whole number of MiB so slot offsets always round cleanly.
	if c.SharedMemorySizeMB < 16 {
		errs = append(errs, fmt.Errorf("shared_memory_size_mb %d is below minimum 16, clamping", c.SharedMemorySizeMB))
		c.SharedMemorySizeMB = 16
	} else if c.SharedMemorySizeMB > 2048 {
		errs = append(errs, fmt.Errorf("shared_memory_size_mb %d exceeds maximum 2048, clamping", c.SharedMemorySizeMB))
		c.SharedMemorySizeMB = 2048
	}

	if c.PointerBufferKB < 4 {
		errs = append(errs, fmt.Errorf("pointer_buffer_kb %d is below minimum 4, clamping", c.PointerBufferKB))
		c.PointerBufferKB = 4
	} else if c.PointerBufferKB > 1024 {
		errs = append(errs, fmt.Errorf("pointer_buffer_kb %d exceeds maximum 1024, clamping", c.PointerBufferKB))
		c.PointerBufferKB = 1024
	}

	if c.SharedMemoryName == "" {
		errs = append(errs, fmt.Errorf("shared_memory_name must not be empty"))
	}

	if c.CaptureBackend != "" && !knownBackends[strings.ToLower(c.CaptureBackend)] {
		errs = append(errs, fmt.Errorf("unknown capture backend %q", c.CaptureBackend))
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
