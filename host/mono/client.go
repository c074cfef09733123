// Package mono is the host side of the line protocol: a client that waits
// for terminal replies, and the monochromator and slit models built on it.
package mono

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"monoctl/host/serial"
	"monoctl/protocol"
)

// Device reported errors, matched with errors.Is against a *DeviceError
var (
	ErrTimeout         = errors.New("homing timed out")
	ErrUnknownMotor    = errors.New("unknown motor")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrHardware        = errors.New("hardware fault")
	ErrClosed          = errors.New("connection closed")
)

// Reply is the answer to one command line
type Reply struct {
	Info   []string
	Status string
}

// DeviceError is an ERROR,... reply
type DeviceError struct {
	Command string
	Reply   string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: device replied %s", e.Command, e.Reply)
}

// Is maps the reply onto the package sentinels
func (e *DeviceError) Is(target error) bool {
	switch e.Reply {
	case protocol.ReplyTimeout:
		return target == ErrTimeout
	case protocol.ReplyUnknownMotor:
		return target == ErrUnknownMotor
	case protocol.ReplyUnknownCommand:
		return target == ErrUnknownCommand
	case protocol.ReplyInvalidArgument:
		return target == ErrInvalidArgument
	case protocol.ReplyHardware:
		return target == ErrHardware
	}
	return false
}

// Client talks to one controller board. Commands are serialised: each waits
// for its terminal line before the next is written.
type Client struct {
	port serial.Port
	log  zerolog.Logger

	lines chan string
	done  chan struct{}

	mu        sync.Mutex // held for a whole command exchange
	closeOnce sync.Once
	readErr   error

	// abandoned counts commands whose terminal line has not arrived yet
	// because their caller gave up. The board answers in order, so that
	// many terminal lines are late replies.
	abandoned int
}

// Option customises a Client
type Option func(*Client)

// WithLogger sets the logger used for protocol tracing
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient starts reading lines from port
func NewClient(port serial.Port, opts ...Option) *Client {
	c := &Client{
		port:  port,
		log:   zerolog.Nop(),
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop()
	return c
}

// Dial opens the serial device described by cfg
func Dial(cfg *serial.Config, opts ...Option) (*Client, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	return NewClient(port, opts...), nil
}

// Close stops the reader and closes the port
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.port.Close()
	})
	return err
}

// readLoop splits the port stream into lines. A serial read timeout shows
// up as io.EOF with no data, so EOF is only final once the client closes.
func (c *Client) readLoop() {
	defer close(c.lines)

	buf := make([]byte, 256)
	var partial []byte
	for {
		n, err := c.port.Read(buf)
		for _, b := range buf[:n] {
			if b != '\n' {
				partial = append(partial, b)
				continue
			}
			line := strings.TrimSpace(string(partial))
			partial = partial[:0]
			if line == "" {
				continue
			}
			select {
			case c.lines <- line:
			case <-c.done:
				return
			}
		}

		if err == nil {
			continue
		}
		select {
		case <-c.done:
			return
		default:
		}
		if errors.Is(err, io.EOF) && n == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		if n == 0 {
			c.readErr = err
			c.log.Error().Err(err).Msg("serial read failed")
			return
		}
	}
}

// next returns the next line from the device
func (c *Client) next(ctx context.Context) (string, error) {
	select {
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				return "", fmt.Errorf("%w: %v", ErrClosed, c.readErr)
			}
			return "", ErrClosed
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// WaitReady blocks until the board announces itself
func (c *Client) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		line, err := c.next(ctx)
		if err != nil {
			return fmt.Errorf("wait for banner: %w", err)
		}
		c.log.Trace().Str("line", line).Msg("rx")
		if line == protocol.Banner {
			return nil
		}
	}
}

// Command writes one command line and collects lines until its terminal
// reply. ERROR replies come back as a *DeviceError alongside the Reply.
// Terminal lines for another verb are logged and skipped. If ctx ends first,
// the late reply is discarded by a later Command.
func (c *Client) Command(ctx context.Context, line string) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var reply Reply
	want := expectedHead(line)
	c.log.Debug().Str("cmd", line).Msg("tx")
	if _, err := io.WriteString(c.port, line+"\n"); err != nil {
		return reply, fmt.Errorf("write %q: %w", line, err)
	}

	for {
		rx, err := c.next(ctx)
		if err != nil {
			// A blank line gets no reply from the board
			if want != "" && !errors.Is(err, ErrClosed) {
				c.abandoned++
			}
			return reply, fmt.Errorf("%s: %w", line, err)
		}
		c.log.Trace().Str("line", rx).Msg("rx")

		if rx == protocol.Banner {
			c.log.Warn().Msg("board restarted during command")
			c.abandoned = 0
			continue
		}
		if c.abandoned > 0 {
			if protocol.IsTerminal(rx) {
				c.abandoned--
				c.log.Debug().Str("line", rx).Msg("discarded late reply")
			}
			continue
		}
		if !protocol.IsTerminal(rx) {
			reply.Info = append(reply.Info, rx)
			continue
		}
		if !protocol.IsError(rx) && replyHead(rx) != want {
			c.log.Warn().Str("cmd", line).Str("line", rx).Msg("unexpected reply")
			reply.Info = nil
			continue
		}

		reply.Status = rx
		if protocol.IsError(rx) {
			return reply, &DeviceError{Command: line, Reply: rx}
		}
		return reply, nil
	}
}

// expectedHead returns the first field of a successful reply to line
func expectedHead(line string) string {
	verb := replyHead(strings.TrimSpace(line))
	if verb == protocol.VerbSpeed {
		return protocol.SpeedReplyHead
	}
	return verb
}

func replyHead(line string) string {
	head, _, _ := strings.Cut(line, string(protocol.Separator))
	return head
}

// commandWithin runs Command under a timeout
func (c *Client) commandWithin(ctx context.Context, timeout time.Duration, line string) (Reply, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return c.Command(ctx, line)
}
