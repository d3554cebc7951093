package indicator

import (
	"errors"

	"github.com/rs/zerolog"
)

// CommandDispatcher turns colour changes and pulses into device commands.
// It drops repeated colours, retries failed writes a bounded number of
// times and hands link failures to the ConnectionManager.
type CommandDispatcher struct {
	conn *ConnectionManager
	sess *session
	cfg  Config
	log  zerolog.Logger
}

func newCommandDispatcher(conn *ConnectionManager, sess *session, cfg Config, log zerolog.Logger) *CommandDispatcher {
	return &CommandDispatcher{
		conn: conn,
		sess: sess,
		cfg:  cfg,
		log:  log,
	}
}

// SetColor switches the light to c. A colour equal to the last one
// delivered on the current connection returns nil without touching the
// device.
func (d *CommandDispatcher) SetColor(c Color) error {
	cmd := SetColorCommand(c)
	if !d.cfg.Mode.Supports(cmd) {
		return d.unsupported(cmd)
	}

	d.sess.mu.Lock()
	if d.sess.closed {
		d.sess.mu.Unlock()
		return ErrSessionClosed
	}
	if d.sess.colorSynced && d.sess.lastSentColor == c {
		d.sess.mu.Unlock()
		return nil
	}
	d.sess.mu.Unlock()

	if err := d.deliver(cmd); err != nil {
		return err
	}

	d.sess.mu.Lock()
	d.sess.lastSentColor = c
	d.sess.colorSynced = true
	d.sess.mu.Unlock()
	return nil
}

// Pulse triggers the pulse effect. It is never deduplicated and leaves
// the remembered colour alone.
func (d *CommandDispatcher) Pulse() error {
	cmd := PulseCommand()
	if !d.cfg.Mode.Supports(cmd) {
		return d.unsupported(cmd)
	}
	return d.deliver(cmd)
}

func (d *CommandDispatcher) unsupported(cmd Command) error {
	d.log.Warn().Stringer("command", cmd).Stringer("mode", d.cfg.Mode).Msg("command not supported by firmware mode")
	return ErrUnsupportedCommand
}

// deliver writes cmd with at most MaxRetries write attempts. A missing
// link is checked before each attempt and does not use up a retry.
func (d *CommandDispatcher) deliver(cmd Command) error {
	payload := cmd.Payload()
	attempt := 0

	for {
		if !d.conn.IsConnected() && !d.conn.CheckLiveness() {
			err := d.conn.notConnectedErr()
			d.log.Warn().Err(err).Stringer("command", cmd).Msg("dropping command; indicator not connected")
			return err
		}

		attempt++
		d.log.Debug().Stringer("command", cmd).Int("attempt", attempt).Msg("sending command")

		gen, err := d.conn.writeLine(payload)
		if err == nil {
			d.conn.sleep(d.cfg.CommandSettle)
			return nil
		}

		var ioErr *IoError
		if !errors.As(err, &ioErr) {
			// Link went away between the check and the write; nothing was sent.
			if errors.Is(err, ErrSessionClosed) {
				return err
			}
			attempt--
			continue
		}

		d.log.Warn().Err(err).Stringer("command", cmd).Int("attempt", attempt).Int("max", d.cfg.MaxRetries).Msg("write failed")
		d.conn.recoverLink(gen, err)

		if attempt >= d.cfg.MaxRetries {
			d.log.Error().Err(err).Stringer("command", cmd).Msg("giving up on command")
			return err
		}
		d.conn.sleep(d.cfg.RetryBackoff)
	}
}
