package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jagan969646/My-Jarvis-Assistant/capture"
	"github.com/jagan969646/My-Jarvis-Assistant/config"
	"github.com/jagan969646/My-Jarvis-Assistant/device"
	"github.com/jagan969646/My-Jarvis-Assistant/functions"
	"github.com/jagan969646/My-Jarvis-Assistant/gemini"
	"github.com/jagan969646/My-Jarvis-Assistant/hud"
	"github.com/jagan969646/My-Jarvis-Assistant/metrics"
	"github.com/jagan969646/My-Jarvis-Assistant/playback"
	"github.com/jagan969646/My-Jarvis-Assistant/server"
	"github.com/jagan969646/My-Jarvis-Assistant/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jarvis",
		Short:         "JARVIS voice and vision HUD for Gemini Live",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runTUI(cfg)
		},
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newDevicesCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var startLink bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run headless and stream the HUD over websocket",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return runServe(cfg, startLink)
		},
	}
	cmd.Flags().BoolVar(&startLink, "start", false, "initialize the neural link at launch")
	return cmd
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			infos, err := device.List()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, d := range infos {
				mark := " "
				switch {
				case d.DefaultInput && d.DefaultOutput:
					mark = "*"
				case d.DefaultInput:
					mark = "<"
				case d.DefaultOutput:
					mark = ">"
				}
				fmt.Fprintf(out, "%s %-40s in=%d out=%d %.0fHz (%s)\n",
					mark, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.SampleRate, d.HostAPI)
			}
			return nil
		},
	}
}

// newManager wires the real devices and the Live API into a session manager.
func newManager(cfg *config.Config, m *metrics.Collector) *session.Manager {
	devices := session.Devices{
		OpenOutput: func() (playback.Output, error) {
			spk, err := device.OpenSpeaker(cfg.OutputSampleRate, 1, float32(cfg.OutputGain))
			if err != nil {
				return nil, err
			}
			return spk, nil
		},
		OpenMicrophone: func() (session.Microphone, error) {
			mic, err := device.OpenMicrophone(cfg.InputSampleRate, cfg.MicBlockSize)
			if err != nil {
				return nil, err
			}
			return mic, nil
		},
		Dial: func(ctx context.Context) (session.Link, error) {
			p, err := gemini.Dial(ctx, gemini.Options{
				APIKey:          cfg.GeminiAPIKey,
				Model:           cfg.Model,
				Voice:           cfg.VoiceName,
				SystemPrompt:    session.DefaultSystemPrompt,
				Tools:           functions.Tools(),
				InputSampleRate: cfg.InputSampleRate,
			})
			if err != nil {
				return nil, err
			}
			return p, nil
		},
	}
	if cfg.CameraEnabled {
		devices.OpenCamera = func() (capture.Camera, error) {
			cam, err := capture.OpenFFmpegCamera(capture.CameraOptions{
				FFmpegPath: cfg.FFmpegPath,
				Format:     cfg.CameraFormat,
				Device:     cfg.CameraDevice,
				Width:      cfg.CameraWidth,
				Height:     cfg.CameraHeight,
			})
			if err != nil {
				return nil, err
			}
			return cam, nil
		}
	}

	// Journal is optional
	var journal session.Journal
	if cfg.RedisURL != "" {
		j, err := session.NewRedisJournal(context.Background(), cfg.RedisURL, cfg.RedisPassword, cfg.SessionTimeout, cfg.LogCapacity)
		if err != nil {
			log.Printf("⚠️ Redis journal disabled: %v", err)
		} else {
			journal = j
		}
	}

	return session.NewManager(session.Options{
		Devices:          devices,
		OutputSampleRate: cfg.OutputSampleRate,
		FrameInterval:    capture.FrameInterval(cfg.FrameRate),
		JPEGQuality:      cfg.JPEGQuality,
		Metrics:          m,
	}, cfg.LogCapacity, journal)
}

func startFeed(srv *server.Server) {
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ HUD feed error: %v", err)
		}
	}()
}

func shutdownFeed(srv *server.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HUD feed shutdown error: %v", err)
	}
}

func runTUI(cfg *config.Config) error {
	// The terminal belongs to the HUD; logs go to a file.
	f, err := tea.LogToFile(cfg.LogFile, "jarvis")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	m := metrics.New()
	manager := newManager(cfg, m)
	defer manager.Shutdown()

	if cfg.HUDPort > 0 {
		srv := server.NewServerWebsocket(cfg, manager, m)
		startFeed(srv)
		defer shutdownFeed(srv)
	}

	model := hud.NewModel(manager, m, cfg.LogCapacity)
	defer model.Close()

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("HUD error: %w", err)
	}
	return nil
}

func runServe(cfg *config.Config, startLink bool) error {
	if cfg.HUDPort == 0 {
		return errors.New("serve needs HUD_PORT > 0")
	}

	m := metrics.New()
	manager := newManager(cfg, m)
	srv := server.NewServerWebsocket(cfg, manager, m)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\nReceived shutdown signal...")
		manager.Shutdown()
		shutdownFeed(srv)
	}()

	if startLink {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := manager.Start(ctx); err != nil {
				log.Printf("❌ Failed to start link: %v", err)
			}
		}()
	}

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HUD feed error: %w", err)
	}

	log.Println("HUD feed stopped")
	return nil
}
