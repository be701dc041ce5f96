package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/meetscribe/capture-sdk-go/pkg/capture"
)

var (
	verbose  bool
	duration time.Duration
	endpoint string
	userID   string
	title    string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "capture",
		Short: "Meetscribe capture CLI",
		Long:  "A command-line interface for the Meetscribe capture SDK",
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "WebSocket endpoint URL")
	rootCmd.PersistentFlags().StringVar(&userID, "user-id", "", "User ID for the session")

	rootCmd.AddCommand(recordCmd())
	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(devicesCmd())

	if err := rootCmd.Execute(); err != nil {
		capture.GetGlobalLogger().WithError(err).Fatalf("CLI execution failed")
	}
}

func loadConfig() *capture.Config {
	cfg := capture.NewConfig()
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}
	if userID != "" {
		cfg.UserID = userID
	}
	if verbose {
		capture.SetGlobalLogger(capture.NewLogger(&capture.LogConfig{
			Level:  capture.DebugLevel,
			Pretty: true,
			Output: os.Stderr,
		}))
		cfg.DebugTransport = true
		cfg.DebugAudio = true
	}
	return cfg
}

func recordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record and stream audio",
		Long:  "Capture microphone (and system audio where available) and stream it to the processing service until interrupted or the duration elapses",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			if issues := cfg.Validate(); len(issues) > 0 {
				for _, issue := range issues {
					fmt.Fprintf(os.Stderr, "config: %s\n", issue)
				}
				os.Exit(1)
			}

			coord := capture.NewRuntimeCoordinator()
			controller := capture.NewSessionController(
				capture.NewPortAudioProvider(cfg),
				func() capture.Transport { return capture.NewWSTransport(cfg) },
				coord,
				capture.NewLoggingSink(),
				cfg,
			)
			defer controller.Close()

			report := controller.Capabilities()
			if !report.Supported() {
				for _, issue := range report.Issues() {
					fmt.Fprintf(os.Stderr, "doctor: %s\n", issue)
				}
				os.Exit(1)
			}

			controller.Start()

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			if duration > 0 {
				select {
				case <-time.After(duration):
				case <-sig:
				}
			} else {
				<-sig
			}

			controller.Stop()
			// Give the teardown sequence a moment to report back.
			deadline := time.Now().Add(3 * time.Second)
			for controller.Status().State != capture.StateIdle && time.Now().Before(deadline) {
				time.Sleep(50 * time.Millisecond)
			}

			status := controller.Status()
			fmt.Printf("Session finished: %d chunks sent, %d dropped\n", status.ChunksSent, status.ChunksDropped)
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "Recording duration (default: until interrupted)")
	return cmd
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <file.wav>",
		Short: "Submit a whole recording for processing",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()

			transport := capture.NewWSTransport(cfg)
			transport.OnMessage(capture.CreateLoggingMessageHandler(verbose))

			sessionID, cerr := capture.ProcessAudioFile(cmd.Context(), transport, cfg, args[0], title)
			if cerr != nil {
				capture.GetGlobalLogger().LogError(cerr)
				os.Exit(1)
			}
			fmt.Printf("Submitted %s as session %s\n", args[0], sessionID)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Meeting title")
	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check capture prerequisites",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			cfg.PrintConfig()
			fmt.Println()

			for _, issue := range cfg.Validate() {
				fmt.Printf("config: %s\n", issue)
			}

			coord := capture.NewRuntimeCoordinator()
			if cerr := coord.EnsureContext(); cerr != nil {
				fmt.Printf("audio: %s\n", cerr.Error())
				os.Exit(1)
			}
			defer coord.DestroyContext()

			report := capture.NewPortAudioProvider(cfg).Capabilities()
			fmt.Printf("Capabilities: %s\n", report)
			for _, issue := range report.Issues() {
				fmt.Printf("doctor: %s\n", issue)
			}
			if report.Supported() {
				fmt.Println("Ready to record.")
			} else {
				os.Exit(1)
			}
		},
	}
}

func devicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			coord := capture.NewRuntimeCoordinator()
			if cerr := coord.EnsureContext(); cerr != nil {
				capture.GetGlobalLogger().LogError(cerr)
				os.Exit(1)
			}
			defer coord.DestroyContext()

			devices, err := capture.ListDevices()
			if err != nil {
				capture.GetGlobalLogger().WithError(err).Fatalf("Failed to list devices")
			}

			for _, dev := range devices {
				fmt.Printf("[%d] %s (in=%d out=%d rate=%.0f api=%s)\n",
					dev.ID, dev.Name, dev.MaxInputChannels, dev.MaxOutputChannels,
					dev.DefaultSampleRate, dev.HostAPI)
			}
		},
	}
}
