package controller

import (
	"context"
	"errors"
	"io"
)

// Serve queues the banner and runs the command loop over rw until rw
// reaches EOF, a read or write fails, Stop is called, or ctx is done. A Read blocked on rw
// is only interrupted by closing rw.
func (m *Manager) Serve(ctx context.Context, rw io.ReadWriter) error {
	m.Start()
	if err := m.flush(rw); err != nil {
		return err
	}

	buf := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !m.IsRunning() {
			return nil
		}

		n, err := rw.Read(buf)
		if n > 0 {
			m.Write(buf[:n])
			if werr := m.flush(rw); werr != nil {
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (m *Manager) flush(w io.Writer) error {
	out := m.GetOutput()
	if len(out) == 0 {
		return nil
	}
	_, err := w.Write(out)
	return err
}
