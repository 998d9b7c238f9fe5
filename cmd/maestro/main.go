package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/maestrohq/maestro-sdk-go/pkg/maestro"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	endpoint   string
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "maestro",
		Short: "Maestro SDK Go CLI",
		Long:  "A command-line interface for the Maestro music-practice assistant SDK",
	}

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "WebSocket endpoint URL")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file")

	// Add subcommands
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(demoCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(devicesCmd())

	if err := rootCmd.Execute(); err != nil {
		maestro.GetGlobalLogger().WithError(err).Fatal("CLI execution failed")
	}
}

func loadConfig() *maestro.ClientConfig {
	config, err := maestro.LoadConfig(configFile)
	if err != nil {
		maestro.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}
	if endpoint != "" {
		config.WsEndpoint = endpoint
	}
	if verbose {
		config.DebugWebsocket = true
	}
	if problems := config.Validate(); len(problems) > 0 {
		for _, p := range problems {
			fmt.Printf("config: %s\n", p)
		}
		os.Exit(1)
	}
	return config
}

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive practice session",
		Long:  "Connect to the assistant and chat; server tool calls spawn practice widgets",
		Run: func(cmd *cobra.Command, args []string) {
			config := loadConfig()

			uploader := maestro.NewHTTPUploader(config.UploadEndpoint, config.Headers)
			dispatcher := maestro.NewDispatcher(nil, nil, uploader)
			client := maestro.NewStreamClient(config, nil, dispatcher)

			transcript := maestro.NewTranscript(0)
			client.AddEventHandler(transcript.Observe())
			client.AddErrorHandler(maestro.CreateErrorLoggingHandler("chat"))
			client.AddConnectionHandler(maestro.CreateConnectionStatusHandler(nil))

			if err := client.Connect(); err != nil {
				maestro.GetGlobalLogger().WithError(err).Fatal("Connection failed")
			}
			defer func() {
				dispatcher.StopAll()
				client.Disconnect()
			}()

			fmt.Println("Connected. Type a message, /stop to tear down widgets, /quit to exit.")

			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return
				}
				line := strings.TrimSpace(scanner.Text())
				switch {
				case line == "":
					continue
				case line == "/quit":
					return
				case line == "/stop":
					dispatcher.StopAll()
					fmt.Println("All widgets stopped.")
					continue
				}

				if err := client.SendMessage(line); err != nil {
					fmt.Printf("send rejected: %v\n", err)
					continue
				}
				transcript.AddUserMessage(line)
			}
		},
	}

	return cmd
}

func demoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run widget demos",
		Long:  "Run practice widgets standalone, without a server connection",
	}

	cmd.AddCommand(demoMetronomeCmd())
	cmd.AddCommand(demoTunerCmd())
	cmd.AddCommand(demoTrainerCmd())

	return cmd
}

func demoMetronomeCmd() *cobra.Command {
	var bpm float64
	var timeSignature string
	var seconds float64

	cmd := &cobra.Command{
		Use:   "metronome",
		Short: "Demo the metronome",
		Run: func(cmd *cobra.Command, args []string) {
			m := maestro.NewMetronome("demo", maestro.MetronomeConfig{
				BPM:           bpm,
				TimeSignature: timeSignature,
			}, nil)

			fmt.Printf("Metronome at %.0f bpm (%s) for %.0f seconds...\n", bpm, timeSignature, seconds)
			if err := m.Play(); err != nil {
				maestro.GetGlobalLogger().WithError(err).Fatal("Metronome failed to start")
			}
			time.Sleep(time.Duration(seconds * float64(time.Second)))
			m.Stop()
			fmt.Println("Done.")
		},
	}

	cmd.Flags().Float64Var(&bpm, "bpm", 120, "Beats per minute")
	cmd.Flags().StringVar(&timeSignature, "time-signature", "4/4", "Time signature")
	cmd.Flags().Float64VarP(&seconds, "duration", "d", 10, "Demo duration in seconds")
	return cmd
}

func demoTunerCmd() *cobra.Command {
	var note string
	var seconds float64

	cmd := &cobra.Command{
		Use:   "tuner",
		Short: "Demo the tuner",
		Run: func(cmd *cobra.Command, args []string) {
			t := maestro.NewTuner("demo", maestro.TunerConfig{Note: note}, nil)
			t.OnReading(func(freq, cents float64) {
				fmt.Printf("\r%.1f Hz  %+.0f cents   ", freq, cents)
			})

			fmt.Printf("Listening for %.0f seconds (reference %s)...\n", seconds, note)
			if err := t.Play(); err != nil {
				maestro.GetGlobalLogger().WithError(err).Fatal("Tuner failed to start")
			}
			time.Sleep(time.Duration(seconds * float64(time.Second)))
			t.Stop()
			fmt.Println("\nDone.")
		},
	}

	cmd.Flags().StringVar(&note, "note", "A", "Reference note")
	cmd.Flags().Float64VarP(&seconds, "duration", "d", 15, "Demo duration in seconds")
	return cmd
}

func demoTrainerCmd() *cobra.Command {
	var startBPM, endBPM, minutes float64
	var rampType string

	cmd := &cobra.Command{
		Use:   "trainer",
		Short: "Demo the tempo trainer",
		Run: func(cmd *cobra.Command, args []string) {
			tt := maestro.NewTempoTrainer("demo", maestro.TempoTrainerConfig{
				StartBPM:        startBPM,
				EndBPM:          endBPM,
				DurationMinutes: minutes,
				RampType:        rampType,
			}, nil)

			done := make(chan struct{})
			tt.OnComplete(func() { close(done) })

			fmt.Printf("Ramping %.0f -> %.0f bpm over %.1f minutes (%s)...\n", startBPM, endBPM, minutes, rampType)
			if err := tt.Play(); err != nil {
				maestro.GetGlobalLogger().WithError(err).Fatal("Tempo trainer failed to start")
			}
			<-done
			fmt.Println("Ramp complete.")
		},
	}

	cmd.Flags().Float64Var(&startBPM, "start-bpm", 60, "Starting tempo")
	cmd.Flags().Float64Var(&endBPM, "end-bpm", 120, "Ending tempo")
	cmd.Flags().Float64Var(&minutes, "minutes", 5, "Ramp duration in minutes")
	cmd.Flags().StringVar(&rampType, "ramp", "linear", "Ramp type (linear or exponential)")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		Long:  "Display current configuration settings",
		Run: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()

			actualEndpoint := endpoint
			if actualEndpoint == "" {
				actualEndpoint = os.Getenv("MAESTRO_WS_ENDPOINT")
			}

			fmt.Println("Current Configuration:")
			fmt.Printf("Endpoint: %s\n", actualEndpoint)
			fmt.Printf("Verbose: %v\n", verbose)

			config := maestro.NewClientConfig()
			audioConfig := maestro.NewAudioConfig()

			fmt.Println("\nDefault Client Config:")
			fmt.Printf("  Auto Connect: %v\n", config.AutoConnect)
			fmt.Printf("  Max Reconnect Attempts: %d\n", config.MaxReconnectAttempts)
			fmt.Printf("  Reconnect Base Delay: %s\n", config.ReconnectBaseDelay)
			fmt.Printf("  Reconnect Max Delay: %s\n", config.ReconnectMaxDelay)

			fmt.Println("\nDefault Audio Config:")
			fmt.Printf("  Sample Rate: %d Hz\n", audioConfig.SampleRate)
			fmt.Printf("  Channels: %d\n", audioConfig.Channels)
			fmt.Printf("  Buffer Size: %d samples\n", audioConfig.BufferSize)
			fmt.Printf("  Format: %s\n", audioConfig.Format)
		},
	}

	return cmd
}

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Audio device management",
		Long:  "Commands for managing and listing audio devices",
	}

	cmd.AddCommand(devicesListCmd())

	return cmd
}

func devicesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Long:  "List all available audio input and output devices",
		Run: func(cmd *cobra.Command, args []string) {
			devices, err := maestro.ListAudioDevices()
			if err != nil {
				maestro.GetGlobalLogger().WithError(err).Error("Failed to list audio devices")
				fmt.Printf("Error listing devices: %v\n", err)
				return
			}

			fmt.Println("Available Audio Devices:")
			for _, device := range devices {
				marker := ""
				if device.IsDefault {
					marker = " (Default)"
				}

				capabilities := ""
				if device.IsInput && device.IsOutput {
					capabilities = "Input/Output"
				} else if device.IsInput {
					capabilities = "Input"
				} else if device.IsOutput {
					capabilities = "Output"
				}

				fmt.Printf("  %d: %s%s - %s (%.0f Hz)\n",
					device.ID, device.Name, marker, capabilities, device.DefaultSampleRate)
			}
		},
	}

	return cmd
}
