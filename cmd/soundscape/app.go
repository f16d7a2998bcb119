package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satindergrewal/soundscape/internal/audio"
	"github.com/satindergrewal/soundscape/internal/autopilot"
	"github.com/satindergrewal/soundscape/internal/config"
	"github.com/satindergrewal/soundscape/internal/display"
	"github.com/satindergrewal/soundscape/internal/life"
	"github.com/satindergrewal/soundscape/internal/palette"
	"github.com/satindergrewal/soundscape/internal/spectrum"
	"github.com/satindergrewal/soundscape/internal/stream"
	"github.com/satindergrewal/soundscape/internal/web"
)

// app holds every long-lived component.
type app struct {
	cfg    config.Config
	format audio.Format

	engine   *life.Engine
	feed     *spectrum.Feed
	analyzer *spectrum.Analyzer
	driver   *display.Driver
	hub      *display.Hub
	pilot    *autopilot.Scheduler

	pipeline    *audio.Pipeline
	broadcaster *stream.Broadcaster
	webrtc      *stream.WebRTCHandler
}

func newApp(cfg config.Config) (*app, error) {
	format := audio.Format{SampleRate: cfg.Audio.SampleRate, Channels: audio.DefaultChannels}

	engine, err := life.New(cfg.Simulation.Width, cfg.Simulation.Height, cfg.Simulation.InitialSeed,
		life.WithBoundary(cfg.Simulation.Boundary))
	if err != nil {
		return nil, fmt.Errorf("%w: create grid: %w", config.ErrInvalid, err)
	}

	feed := spectrum.NewFeed(cfg.Audio.FeedCapacity)
	analyzer, err := spectrum.NewAnalyzer(cfg.Audio.Spectrum(), feed)
	if err != nil {
		return nil, fmt.Errorf("%w: create analyzer: %w", config.ErrInvalid, err)
	}

	hub := display.NewHub()
	renderer := display.NewRenderer(palette.New(cfg.Visual.Scheme), cfg.Visual.CellSize)
	driver := display.NewDriver(engine, feed, renderer, hub, display.Options{
		FPS:         cfg.Visual.FPS,
		UpdateRate:  cfg.Simulation.UpdateRate,
		SeedDensity: cfg.Simulation.InitialSeed,
	})

	broadcaster := stream.NewBroadcaster()
	a := &app{
		cfg:         cfg,
		format:      format,
		engine:      engine,
		feed:        feed,
		analyzer:    analyzer,
		driver:      driver,
		hub:         hub,
		pipeline:    audio.NewPipeline(format, cfg.Playlist.Crossfade),
		broadcaster: broadcaster,
		webrtc:      stream.NewWebRTCHandler(broadcaster, format, "soundscape"),
	}
	a.pipeline.Loop(cfg.Playlist.Loop)

	a.pilot = autopilot.NewScheduler(autopilot.Config{
		Start:        cfg.Visual.Scheme,
		DwellMin:     cfg.Autopilot.DwellMin,
		DwellMax:     cfg.Autopilot.DwellMax,
		ExtinctTicks: cfg.Autopilot.ExtinctTicks,
	})
	a.pilot.SetSchemeFunc(func(s palette.Scheme) error {
		return driver.Submit(display.Command{Op: display.OpScheme, Scheme: s.String()})
	})
	a.pilot.SetReseedFunc(func() error {
		return driver.Submit(display.Command{Op: display.OpRandomize})
	})
	a.pilot.SetPopulationFunc(func() int {
		return driver.Status().Population
	})
	if cfg.Autopilot.Enabled {
		a.pilot.SetEnabled(true)
	}

	hub.HandleCommands(a.submit)
	return a, nil
}

func (a *app) enqueuePlaylist() {
	for _, path := range a.cfg.Playlist.Files {
		a.pipeline.Enqueue(audio.NewTrack(path))
	}
	log.Printf("Playlist: %d tracks (loop: %v)", len(a.cfg.Playlist.Files), a.cfg.Playlist.Loop)
}

// submit forwards a command to the driver and lets the autopilot know about
// manual scheme changes.
func (a *app) submit(c display.Command) error {
	if err := a.driver.Submit(c); err != nil {
		return err
	}
	if c.Op == display.OpScheme {
		if s, err := palette.ParseScheme(c.Scheme); err == nil {
			a.pilot.Observe(s)
		}
	}
	return nil
}

func (a *app) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})
	mux.Handle("/ws", a.hub)
	mux.HandleFunc("/frame.png", func(w http.ResponseWriter, r *http.Request) {
		png := a.driver.Snapshot()
		if png == nil {
			http.Error(w, "no frame rendered yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(png)
	})

	// Audio streams
	mux.Handle("/stream", stream.NewHTTPHandler(a.broadcaster, a.format, "soundscape"))
	mux.Handle("/offer", a.webrtc)

	mux.Handle("/metrics", promhttp.Handler())

	// API endpoints
	mux.HandleFunc("/api/status", a.handleStatus)

	mux.HandleFunc("/api/randomize", a.command(func(r *http.Request) (display.Command, error) {
		var req struct {
			Density *float32 `json:"density"`
		}
		if err := decodeOptional(r, &req); err != nil {
			return display.Command{}, err
		}
		return display.Command{Op: display.OpRandomize, Density: req.Density}, nil
	}))

	mux.HandleFunc("/api/clear", a.command(func(r *http.Request) (display.Command, error) {
		return display.Command{Op: display.OpClear}, nil
	}))

	mux.HandleFunc("/api/scheme", a.command(func(r *http.Request) (display.Command, error) {
		var req struct {
			Scheme string `json:"scheme"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return display.Command{}, err
		}
		return display.Command{Op: display.OpScheme, Scheme: req.Scheme}, nil
	}))

	mux.HandleFunc("/api/boundary", a.command(func(r *http.Request) (display.Command, error) {
		var req struct {
			Boundary string `json:"boundary"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return display.Command{}, err
		}
		return display.Command{Op: display.OpBoundary, Boundary: req.Boundary}, nil
	}))

	mux.HandleFunc("/api/cell", a.command(func(r *http.Request) (display.Command, error) {
		var req struct {
			X     int  `json:"x"`
			Y     int  `json:"y"`
			Alive bool `json:"alive"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return display.Command{}, err
		}
		return display.Command{Op: display.OpCell, X: req.X, Y: req.Y, Alive: req.Alive}, nil
	}))

	mux.HandleFunc("/api/skip", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		a.pipeline.Skip()
		writeJSON(w, map[string]any{"ok": true})
	})

	mux.HandleFunc("/api/autopilot", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		a.pilot.SetEnabled(req.Enabled)
		writeJSON(w, map[string]any{"ok": true, "autopilot": a.pilot.Status()})
	})

	return mux
}

func (a *app) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := a.driver.Status()
	track, pos, dur := a.pipeline.Status()

	w.Header().Set("Access-Control-Allow-Origin", "*")
	writeJSON(w, map[string]any{
		"generation":       st.Generation,
		"population":       st.Population,
		"births":           st.Births,
		"deaths":           st.Deaths,
		"mutations":        st.Mutations,
		"width":            st.Width,
		"height":           st.Height,
		"policy":           st.Policy,
		"boundary":         st.Boundary,
		"scheme":           st.Scheme,
		"paused":           st.Paused,
		"audio":            st.Audio,
		"heard":            st.Heard,
		"track":            track.Name,
		"track_id":         track.ID,
		"position":         pos.Seconds(),
		"duration":         dur.Seconds(),
		"queue_size":       a.pipeline.QueueSize(),
		"feed_dropped":     a.feed.Dropped(),
		"viewers":          a.hub.Count(),
		"http_listeners":   a.broadcaster.ListenerCount(),
		"webrtc_listeners": a.webrtc.PeerCount(),
		"autopilot":        a.pilot.Status(),
	})
}

// command wraps a POST endpoint that turns its body into a driver command.
func (a *app) command(parse func(*http.Request) (display.Command, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		c, err := parse(r)
		if err != nil {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		if err := a.submit(c); err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, display.ErrBusy) {
				code = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), code)
			return
		}
		writeJSON(w, map[string]any{"ok": true, "op": c.Op})
	}
}

// decodeOptional decodes a JSON body, treating an empty one as {}.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
