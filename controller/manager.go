// Package controller runs the command loop of the instrument: it splits the
// input stream into lines, dispatches each line against a core.Machine and
// queues the reply lines for the host.
package controller

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"monoctl/core"
	"monoctl/protocol"
)

// Reply is everything one command line produced. Info lines precede the
// terminal Status line on the wire. A blank line yields an empty Reply.
type Reply struct {
	Info   []string
	Status string
}

// Lines returns the reply in wire order
func (r Reply) Lines() []string {
	if r.Status == "" {
		return r.Info
	}
	return append(append([]string(nil), r.Info...), r.Status)
}

// Empty reports whether the reply carries no output
func (r Reply) Empty() bool {
	return r.Status == "" && len(r.Info) == 0
}

// Manager coordinates parsing, dispatch and output for one machine. Its
// methods may be called from several goroutines; commands still run one at a
// time.
type Manager struct {
	mu sync.Mutex

	machine *core.Machine
	parser  *protocol.Parser
	lines   *protocol.LineBuffer
	log     zerolog.Logger

	outputBuffer []byte

	running  bool
	handled  uint64
	rejected uint64
}

// Option customises a Manager
type Option func(*Manager)

// WithLogger sets the logger used for command tracing
func WithLogger(log zerolog.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

// WithStrictArguments makes malformed MOVE arguments an error instead of
// reading them leniently.
func WithStrictArguments(strict bool) Option {
	return func(m *Manager) {
		m.parser.Strict = strict
	}
}

// NewManager creates a manager driving machine
func NewManager(machine *core.Machine, opts ...Option) *Manager {
	mgr := &Manager{
		machine:      machine,
		parser:       protocol.NewParser(),
		lines:        protocol.NewLineBuffer(),
		log:          zerolog.Nop(),
		outputBuffer: make([]byte, 0, 256),
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

// Machine returns the machine under control
func (m *Manager) Machine() *core.Machine {
	return m.machine
}

// Start queues the ready banner. Calling it again has no effect.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true
	m.sendResponse(protocol.Banner)
	m.log.Info().
		Int("axes", m.machine.Registry().Len()).
		Bool("strict", m.parser.Strict).
		Msg("controller ready")
}

// Stop marks the manager as no longer running. Serve returns after the
// read in progress completes.
func (m *Manager) Stop() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

// IsRunning reports whether the manager is between Start and Stop
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Snapshot returns the machine diagnostics between commands
func (m *Manager) Snapshot() core.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Snapshot()
}

// Write feeds raw input bytes and processes every complete line. It always
// consumes all of data, so a Manager can sit behind an io.Writer.
func (m *Manager) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := len(data)
	for len(data) > 0 {
		n := m.lines.Write(data)
		data = data[n:]
		m.drainLines()
		if n == 0 && len(data) > 0 {
			m.log.Warn().Int("dropped", len(data)).Msg("input overflow")
			break
		}
	}
	return total, nil
}

// ProcessByte feeds a single byte of input
func (m *Manager) ProcessByte(b byte) {
	m.Write([]byte{b})
}

func (m *Manager) drainLines() {
	for {
		line, ok := m.lines.NextLine()
		if !ok {
			return
		}
		m.processLine(line)
	}
}

// ProcessLine executes one command line and queues its reply
func (m *Manager) ProcessLine(line string) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.processLine(line)
}

func (m *Manager) processLine(line string) Reply {
	reply := m.dispatch(line)
	for _, l := range reply.Lines() {
		m.sendResponse(l)
	}
	return reply
}

// Dispatch executes one command line and returns its reply without queueing
// it.
func (m *Manager) Dispatch(line string) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dispatch(line)
}

func (m *Manager) dispatch(line string) Reply {
	line = strings.TrimSpace(line)

	cmd, err := m.parser.ParseLine(line)
	if err != nil {
		m.rejected++
		m.log.Debug().Err(err).Str("line", line).Msg("rejected")
		return rejectReply(line, err)
	}
	if cmd == nil {
		return Reply{}
	}

	m.handled++
	reply := m.execute(cmd)
	m.log.Debug().Str("line", line).Str("reply", reply.Status).Msg("handled")
	return reply
}

func (m *Manager) sendResponse(line string) {
	m.outputBuffer = append(m.outputBuffer, line...)
	m.outputBuffer = append(m.outputBuffer, '\n')
}

// GetOutput returns any pending output and clears the buffer
func (m *Manager) GetOutput() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.outputBuffer) == 0 {
		return nil
	}

	output := make([]byte, len(m.outputBuffer))
	copy(output, m.outputBuffer)
	m.outputBuffer = m.outputBuffer[:0]
	return output
}

// Stats returns the number of executed and rejected lines
func (m *Manager) Stats() (handled, rejected uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handled, m.rejected
}
