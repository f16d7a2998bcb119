package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/satindergrewal/soundscape/internal/config"
	"github.com/satindergrewal/soundscape/internal/spectrum"
)

type flags struct {
	files      []string
	configPath string
	demo       bool
	port       int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("soundscape: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "soundscape [audio files...]",
		Short: "Game of Life driven by live audio",
		Long: `soundscape plays a playlist, analyzes it into bass, mid and treble
energy, and lets that energy steer a Game of Life grid served to browsers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f, args, cmd.Flags().Changed("port"))
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, f.demo)
		},
	}
	cmd.Flags().StringArrayVarP(&f.files, "file", "f", nil, "audio file to play (repeatable)")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML config file")
	cmd.Flags().BoolVar(&f.demo, "demo", false, "drive the grid with synthetic audio when no files are given")
	cmd.Flags().IntVar(&f.port, "port", 0, "HTTP port (overrides config)")
	return cmd
}

// loadConfig layers defaults, the config file, the environment and flags.
func loadConfig(f flags, args []string, portSet bool) (config.Config, error) {
	cfg := config.Load()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath); err != nil {
			return cfg, err
		}
	}
	if files := append(f.files, args...); len(files) > 0 {
		cfg.Playlist.Files = files
	}
	if portSet {
		cfg.Server.Port = f.port
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg config.Config, demo bool) error {
	log.Println("soundscape starting up...")

	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if len(cfg.Playlist.Files) > 0 {
		if demo {
			log.Println("Playlist given, ignoring --demo")
		}
		a.enqueuePlaylist()
		tap := a.broadcaster.SubscribeN(4)
		g.Go(func() error {
			a.analyzer.Consume(ctx, tap.C, a.format.Channels)
			return nil
		})
	} else if demo {
		log.Println("Demo mode: synthetic audio")
		g.Go(func() error {
			runDemo(ctx, a.feed, time.Second/time.Duration(cfg.Visual.FPS))
			return nil
		})
	} else {
		log.Println("No audio configured, running the standard rules")
	}

	g.Go(func() error {
		a.pipeline.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.broadcaster.Run(ctx, a.pipeline.Frames())
		return nil
	})
	g.Go(func() error {
		a.driver.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.pilot.Run(ctx)
		return nil
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{Addr: addr, Handler: a.routes()}

	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		a.hub.Close()
		a.webrtc.Close()
		// Close rather than Shutdown: /stream responses never go idle.
		return server.Close()
	})
	g.Go(func() error {
		log.Printf("soundscape live on %s", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// runDemo feeds synthetic frames until ctx is cancelled.
func runDemo(ctx context.Context, feed *spectrum.Feed, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			feed.Send(spectrum.Synthetic(now.Sub(start).Seconds()))
		}
	}
}
