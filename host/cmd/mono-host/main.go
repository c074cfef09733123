// Command mono-host is an operator shell for one monochromator unit.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell/v2"
	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog"

	"monoctl/config"
	"monoctl/host/bridge"
	"monoctl/host/logging"
	"monoctl/host/mono"
	"monoctl/host/serial"
)

// EnvConfig holds the environment overrides. Flags win over the
// environment, which wins over the instrument profile.
type EnvConfig struct {
	Device       string        `env:"MONO_DEVICE"`
	Baud         int           `env:"MONO_BAUD"`
	Profile      string        `env:"MONO_PROFILE"`
	Unit         string        `env:"MONO_UNIT"`
	ReplyTimeout time.Duration `env:"MONO_REPLY_TIMEOUT"`
	LogLevel     string        `env:"MONO_LOG_LEVEL" envDefault:"info"`
	WSAddr       string        `env:"MONO_WS_ADDR"`
}

func main() {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	flag.StringVar(&cfg.Device, "device", cfg.Device, "Serial device path")
	flag.IntVar(&cfg.Baud, "baud", cfg.Baud, "Baud rate (ignored for USB CDC)")
	flag.StringVar(&cfg.Profile, "profile", cfg.Profile, "Instrument profile (TOML)")
	flag.StringVar(&cfg.Unit, "unit", cfg.Unit, "Monochromator name in the profile")
	flag.DurationVar(&cfg.ReplyTimeout, "timeout", cfg.ReplyTimeout, "Reply timeout for ordinary commands")
	flag.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "Log level")
	flag.StringVar(&cfg.WSAddr, "ws", cfg.WSAddr, "Also serve a WebSocket bridge on this address")
	flag.Parse()

	log, err := logging.InitLogger("mono-host", cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("mono-host failed")
	}
}

func run(cfg EnvConfig, log zerolog.Logger) error {
	inst := config.DefaultInstrument()
	if cfg.Profile != "" {
		loaded, err := config.LoadInstrument(cfg.Profile)
		if err != nil {
			return err
		}
		inst = loaded
	}
	unit, err := inst.Unit(cfg.Unit)
	if err != nil {
		return err
	}
	if cfg.Device != "" {
		unit.Device = cfg.Device
	}
	if cfg.Baud != 0 {
		unit.Baud = cfg.Baud
	}
	if unit.Device == "" {
		unit.Device = "/dev/ttyACM0"
	}
	if cfg.ReplyTimeout > 0 {
		inst.ReplyTimeout = cfg.ReplyTimeout
	}

	serialCfg := serial.DefaultConfig(unit.Device)
	serialCfg.Baud = unit.Baud
	log.Info().Str("device", unit.Device).Int("baud", unit.Baud).Str("unit", unit.Name).Msg("connecting")

	client, err := mono.Dial(serialCfg, mono.WithLogger(log.With().Str("component", "client").Logger()))
	if err != nil {
		return err
	}
	defer client.Close()

	timeouts := mono.Timeouts{Reply: inst.ReplyTimeout, Init: inst.InitTimeout}
	m, err := mono.NewMonochromator(client, *unit, timeouts)
	if err != nil {
		return err
	}

	if cfg.WSAddr != "" {
		server := &http.Server{
			Addr:    cfg.WSAddr,
			Handler: bridge.NewServer(client, inst.InitTimeout, log.With().Str("component", "bridge").Logger()),
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error().Err(err).Msg("websocket bridge stopped")
			}
		}()
		defer server.Close()
		log.Info().Str("addr", cfg.WSAddr).Msg("serving websocket bridge")
	}

	shell := newShell(m, client, timeouts)
	shell.Println("Monochromator shell, unit " + unit.Name + " on " + unit.Device)
	shell.Run()
	return nil
}

func newShell(m *mono.Monochromator, client *mono.Client, timeouts mono.Timeouts) *ishell.Shell {
	shell := ishell.New()

	withTimeout := func(d time.Duration) (context.Context, context.CancelFunc) {
		if d <= 0 {
			return context.WithCancel(context.Background())
		}
		return context.WithTimeout(context.Background(), d)
	}

	// run executes fn and reports its outcome
	run := func(c *ishell.Context, d time.Duration, fn func(ctx context.Context) error) {
		ctx, cancel := withTimeout(d)
		defer cancel()
		if err := fn(ctx); err != nil {
			c.Err(err)
			return
		}
		c.Printf("ok  step=%d  wavelength=%.3f nm\n", m.Step(), m.Wavelength())
	}

	shell.AddCmd(&ishell.Cmd{
		Name: "init",
		Help: "init - wait for the board, then zero the grating and slits",
		Func: func(c *ishell.Context) {
			run(c, 0, m.Init)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "zero",
		Help: "zero - home the grating",
		Func: func(c *ishell.Context) {
			run(c, 0, m.FindZero)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "wl",
		Help: "wl <nm> - move the grating to a wavelength",
		Func: func(c *ishell.Context) {
			value, err := floatArg(c, 0)
			if err != nil {
				c.Err(err)
				return
			}
			run(c, timeouts.Reply, func(ctx context.Context) error {
				return m.MoveToWavelength(ctx, value)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "step",
		Help: "step <n> - move the grating to an absolute step",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: step <n>"))
				return
			}
			target, err := strconv.ParseInt(c.Args[0], 10, 64)
			if err != nil {
				c.Err(err)
				return
			}
			run(c, timeouts.Reply, func(ctx context.Context) error {
				return m.MoveToStep(ctx, target)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "speed",
		Help: "speed high|low - select the move cadence",
		Func: func(c *ishell.Context) {
			high := len(c.Args) > 0 && strings.EqualFold(c.Args[0], "high")
			run(c, timeouts.Reply, func(ctx context.Context) error {
				return m.SetSpeed(ctx, high)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "shutter",
		Help: "shutter open|close",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("usage: shutter open|close"))
				return
			}
			open := strings.EqualFold(c.Args[0], "open")
			run(c, timeouts.Reply, func(ctx context.Context) error {
				if open {
					return m.OpenShutter(ctx)
				}
				return m.CloseShutter(ctx)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "slits",
		Help: "slits <bandwidth> | slits <percent>% - set the slit opening",
		Func: func(c *ishell.Context) {
			slits := m.Slits()
			if slits == nil {
				c.Err(fmt.Errorf("unit %s has no slits", m.Name()))
				return
			}
			if len(c.Args) < 1 {
				c.Printf("slits %v  step=%d  value=%.3f  homed=%v\n", slits.Names(), slits.Step(), slits.Value(), slits.Homed())
				return
			}
			arg := c.Args[0]
			pct := strings.HasSuffix(arg, "%")
			value, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
			if err != nil {
				c.Err(err)
				return
			}
			run(c, timeouts.Reply, func(ctx context.Context) error {
				if pct {
					return slits.MoveToPercentage(ctx, value)
				}
				return slits.MoveToValue(ctx, value)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "status - show the tracked position",
		Func: func(c *ishell.Context) {
			lo, hi := m.Range()
			c.Printf("unit=%s homed=%v step=%d wavelength=%.3f nm range=[%.3f, %.3f] nm\n",
				m.Name(), m.Homed(), m.Step(), m.Wavelength(), lo, hi)
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "raw",
		Help: "raw <line> - send a protocol line as is",
		Func: func(c *ishell.Context) {
			line := strings.Join(c.Args, " ")
			ctx, cancel := withTimeout(timeouts.Init)
			defer cancel()
			reply, err := client.Command(ctx, line)
			for _, info := range reply.Info {
				c.Println(info)
			}
			if reply.Status != "" {
				c.Println(reply.Status)
			}
			if err != nil && reply.Status == "" {
				c.Err(err)
			}
		},
	})

	return shell
}

func floatArg(c *ishell.Context, idx int) (float64, error) {
	if len(c.Args) <= idx {
		return 0, fmt.Errorf("missing argument %d", idx+1)
	}
	return strconv.ParseFloat(c.Args[idx], 64)
}
