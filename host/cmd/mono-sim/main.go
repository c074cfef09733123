// Command mono-sim runs the controller firmware against a simulated board,
// serving the line protocol on stdin/stdout, a serial device, or a
// WebSocket bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"

	"monoctl/config"
	"monoctl/controller"
	"monoctl/core"
	"monoctl/host/bridge"
	"monoctl/host/logging"
	"monoctl/host/mono"
	"monoctl/host/serial"
	"monoctl/sim"
)

var (
	machineFile = flag.String("config", "", "Machine table (TOML or JSON); default is the stock board")
	device      = flag.String("device", "", "Serve on this serial device instead of stdin/stdout")
	baud        = flag.Int("baud", 9600, "Baud rate of -device")
	wsAddr      = flag.String("ws", "", "Serve a WebSocket bridge on this address instead")
	distance    = flag.Int64("distance", 1000, "Starting distance of every carriage from its switch, in steps")
	stuck       = flag.String("stuck", "", "Axis whose limit switch never triggers")
	virtual     = flag.Bool("virtual", false, "Use a virtual clock so pulse trains take no wall time")
	strict      = flag.Bool("strict", false, "Reject malformed MOVE arguments")
	status      = flag.Duration("status", 0, "Log a machine snapshot at this interval")
	logLevel    = flag.String("log", os.Getenv("MONO_LOG_LEVEL"), "Log level")
)

func main() {
	flag.Parse()

	log, err := logging.InitLogger("mono-sim", *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("simulator stopped")
	}
}

func run(log zerolog.Logger) error {
	table := config.Default()
	if *machineFile != "" {
		loaded, err := config.LoadMachine(*machineFile)
		if err != nil {
			return err
		}
		table = loaded
	}
	cfg, err := table.ToCore()
	if err != nil {
		return err
	}

	distances := make(map[string]int64, len(cfg.Axes))
	for _, axis := range cfg.Axes {
		distances[axis.Name] = *distance
	}
	board := sim.NewMachineBoard(cfg, distances)
	if *stuck != "" {
		c, ok := board.Carriage(*stuck)
		if !ok {
			return fmt.Errorf("no axis %q to jam", *stuck)
		}
		c.Stuck = true
	}

	var clock core.Clock = core.NewHostClock()
	if *virtual {
		clock = sim.NewClock()
	}

	machine, err := core.NewMachine(cfg, board, clock, core.WithLogger(log.With().Str("component", "core").Logger()))
	if err != nil {
		return err
	}
	mgr := controller.NewManager(machine,
		controller.WithLogger(log.With().Str("component", "controller").Logger()),
		controller.WithStrictArguments(*strict || table.StrictArguments),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *status > 0 {
		go reportStatus(ctx, log, mgr, *status)
	}

	if *wsAddr != "" {
		return serveBridge(ctx, log, mgr)
	}

	var rw io.ReadWriteCloser = stdio{}
	if *device != "" {
		port, err := serial.Open(&serial.Config{Device: *device, Baud: *baud})
		if err != nil {
			return err
		}
		rw = port
		log.Info().Str("device", *device).Msg("serving serial device")
	} else {
		log.Info().Msg("serving stdin/stdout")
	}
	defer rw.Close()

	go func() {
		<-ctx.Done()
		mgr.Stop()
		rw.Close()
	}()

	err = mgr.Serve(ctx, rw)
	mgr.Stop()
	handled, rejected := mgr.Stats()
	log.Info().Uint64("handled", handled).Uint64("rejected", rejected).Msg("controller stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// stdio serves the protocol on the process streams
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return os.Stdin.Close() }

// serveBridge connects a host client to the controller through an
// in-memory port and exposes it over WebSocket.
func serveBridge(ctx context.Context, log zerolog.Logger, mgr *controller.Manager) error {
	hostEnd, boardEnd := serial.Pipe()
	go func() {
		if err := mgr.Serve(ctx, boardEnd); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("controller loop stopped")
		}
	}()

	client := mono.NewClient(hostEnd, mono.WithLogger(log.With().Str("component", "client").Logger()))
	defer client.Close()

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.WaitReady(readyCtx); err != nil {
		return err
	}

	server := &http.Server{
		Addr:    *wsAddr,
		Handler: bridge.NewServer(client, config.DefaultInitTimeout, log.With().Str("component", "bridge").Logger()),
	}
	go func() {
		<-ctx.Done()
		mgr.Stop()
		server.Close()
		boardEnd.Close()
	}()

	log.Info().Str("addr", *wsAddr).Msg("serving websocket bridge")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func reportStatus(ctx context.Context, log zerolog.Logger, mgr *controller.Manager, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap := mgr.Snapshot()
		for _, axis := range snap.Axes {
			log.Info().
				Str("axis", axis.Name).
				Int64("position", axis.Position).
				Bool("homed", axis.Homed).
				Bool("at_zero", axis.AtZero).
				Msg("axis")
		}
		log.Info().
			Bool("drivers", snap.DriversEnabled).
			Bool("shutter", snap.ShutterOpen).
			Stringer("mode", snap.Mode).
			Msg("machine")
	}
}
