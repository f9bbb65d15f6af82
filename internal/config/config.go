package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	// Shared memory region the consumer maps. Either a named mapping
	// (e.g. "Global\\FrameLink") or a path to a file-backed mapping.
	SharedMemoryName   string `mapstructure:"shared_memory_name" yaml:"shared_memory_name"`
	SharedMemorySizeMB int    `mapstructure:"shared_memory_size_mb" yaml:"shared_memory_size_mb"`

	// Frame export pipeline.
	SlotCount      int    `mapstructure:"slot_count" yaml:"slot_count"`
	CaptureBackend string `mapstructure:"capture_backend" yaml:"capture_backend"`
	GPUDebug       bool   `mapstructure:"gpu_debug" yaml:"gpu_debug"`

	// Cursor shape channel buffer size.
	PointerBufferKB int `mapstructure:"pointer_buffer_kb" yaml:"pointer_buffer_kb"`

	// Control endpoint (named pipe on Windows, unix socket elsewhere).
	ControlPath string `mapstructure:"control_path" yaml:"control_path"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
	LogFile   string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

func Default() *Config {
	return &Config{
		SharedMemoryName:   defaultSharedMemoryName(),
		SharedMemorySizeMB: 128,
		SlotCount:          2,
		CaptureBackend:     "ddup",
		PointerBufferKB:    48,
		ControlPath:        defaultControlPath(),
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("host")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("FRAMELINK")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "FrameLink")
	case "darwin":
		return "/Library/Application Support/FrameLink"
	default:
		return "/etc/framelink"
	}
}

func defaultSharedMemoryName() string {
	if runtime.GOOS == "windows" {
		return "Global\\FrameLink"
	}
	return "/dev/shm/framelink"
}

func defaultControlPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\framelink-host`
	}
	return "/run/framelink/host.sock"
}
