package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/framelink/host/internal/config"
	"github.com/framelink/host/internal/control"
)

var (
	version = "0.1.0"
	cfgFile string
	backend string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "framelink-host",
	Short: "FrameLink capture host",
	Long:  `FrameLink Host - captures desktop frames on the GPU and exports them through shared memory`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the capture host",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runHost(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("FrameLink Host v%s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query a running host",
	Run: func(cmd *cobra.Command, args []string) {
		checkStatus()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		showConfig()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running host to shut down",
	Run: func(cmd *cobra.Command, args []string) {
		stopHost()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is host.yaml in the platform config dir)")
	runCmd.Flags().StringVar(&backend, "backend", "", "capture backend override")
	runCmd.Flags().BoolVar(&debug, "gpu-debug", false, "enable the GPU debug layer")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if backend != "" {
		cfg.CaptureBackend = backend
	}
	if debug {
		cfg.GPUDebug = true
	}
	cfg.Validate()
	return cfg, nil
}

func checkStatus() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	client, err := control.Dial(cfg.ControlPath)
	if err != nil {
		fmt.Println("Status: not running")
		return
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		fmt.Fprintf(os.Stderr, "status query failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Status: running")
	fmt.Printf("Version:          %s\n", status.Version)
	fmt.Printf("Backend:          %s\n", status.Backend)
	fmt.Printf("Uptime:           %s\n", time.Duration(status.UptimeSeconds*float64(time.Second)).Round(time.Second))
	fmt.Printf("Slots:            %d\n", status.Slots)
	fmt.Printf("Frames published: %d\n", status.FramesPublished)
	fmt.Printf("Frames truncated: %d\n", status.FramesTruncated)
	fmt.Printf("Timeouts:         %d\n", status.Timeouts)
	fmt.Printf("Reinits:          %d\n", status.Reinits)
	fmt.Printf("Errors:           %d\n", status.Errors)
	fmt.Printf("Format version:   %d\n", status.FormatVersion)
}

func showConfig() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal config: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

func stopHost() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	client, err := control.Dial(cfg.ControlPath)
	if err != nil {
		fmt.Println("Host is not running")
		return
	}
	defer client.Close()

	if err := client.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "stop request failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Stop requested")
}
