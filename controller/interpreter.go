package controller

import (
	"errors"

	"monoctl/core"
	"monoctl/protocol"
)

// execute runs a parsed command against the machine. Every path leaves the
// drivers disabled.
func (m *Manager) execute(cmd protocol.Command) Reply {
	switch c := cmd.(type) {
	case protocol.Init:
		return m.doInit()
	case protocol.Zero:
		return m.doZero(c)
	case protocol.Speed:
		return m.doSpeed(c)
	case protocol.Move:
		return m.doMove(c)
	case protocol.Shutter:
		return m.doShutter(c)
	}
	return Reply{Status: protocol.ReplyUnknownCommand}
}

// doInit homes every axis in registry order
func (m *Manager) doInit() Reply {
	var reply Reply
	reg := m.machine.Registry()

	for idx := 0; idx < reg.Len(); idx++ {
		axis, _ := reg.Axis(idx)
		reply.Info = append(reply.Info, protocol.InfoLine("HOMING", axis.Name))

		if _, err := m.machine.Home(idx); err != nil {
			if errors.Is(err, core.ErrTimeout) {
				reply.Info = append(reply.Info, protocol.InfoLine("TIMEOUT", axis.Name))
			}
			reply.Status = protocol.ReplyInitFailed
			return reply
		}
	}

	reply.Status = protocol.ReplyInitDone
	return reply
}

// doZero homes one axis
func (m *Manager) doZero(c protocol.Zero) Reply {
	if _, err := m.machine.HomeAxis(c.Axis); err != nil {
		return Reply{Status: errorReply(err)}
	}
	return Reply{Status: protocol.ReplyZeroDone}
}

// doSpeed selects the cadence of later moves
func (m *Manager) doSpeed(c protocol.Speed) Reply {
	if c.High {
		m.machine.SetMode(core.SpeedFast)
		return Reply{Status: protocol.ReplySpeedHigh}
	}
	m.machine.SetMode(core.SpeedSlow)
	return Reply{Status: protocol.ReplySpeedLow}
}

// doMove performs a relative move
func (m *Manager) doMove(c protocol.Move) Reply {
	if err := m.machine.MoveAxis(c.Axis, c.Steps, c.Forward); err != nil {
		return Reply{Status: errorReply(err)}
	}
	return Reply{Status: protocol.ReplyMoveDone}
}

// doShutter drives the shutter output
func (m *Manager) doShutter(c protocol.Shutter) Reply {
	if err := m.machine.Shutter().Set(c.Open); err != nil {
		m.log.Warn().Err(err).Bool("open", c.Open).Msg("shutter write failed")
		return Reply{Status: protocol.ReplyHardware}
	}
	if c.Open {
		return Reply{Status: protocol.ReplyShutterOpened}
	}
	return Reply{Status: protocol.ReplyShutterClosed}
}

// errorReply maps an engine error to its status line
func errorReply(err error) string {
	switch {
	case errors.Is(err, core.ErrUnknownMotor):
		return protocol.ReplyUnknownMotor
	case errors.Is(err, core.ErrTimeout):
		return protocol.ReplyTimeout
	default:
		return protocol.ReplyHardware
	}
}

// rejectReply maps a parse error to its reply
func rejectReply(line string, err error) Reply {
	if errors.Is(err, protocol.ErrInvalidArgument) {
		return Reply{Status: protocol.ReplyInvalidArgument}
	}
	return Reply{
		Info:   []string{protocol.EchoLine(line)},
		Status: protocol.ReplyUnknownCommand,
	}
}
