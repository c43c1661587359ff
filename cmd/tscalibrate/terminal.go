//go:build linux

package main

import (
	"os"

	"golang.org/x/sys/unix"
)

// This module targets Linux evdev touch devices exclusively, matching
// tslib's own platform scope; the termios ioctl numbers below are the
// Linux (TCGETS/TCSETS) ones, not the BSD/macOS TIOCGETA/TIOCSETA pair.
const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

// rawTerminal puts the controlling terminal into raw mode for the
// duration of the calibration session (no line buffering, no local
// echo) so a stray keypress during tap collection doesn't land on
// stdout, and restores the original termios on exit.
type rawTerminal struct {
	out     *os.File
	fd      int
	saved   unix.Termios
	changed bool
}

func openRawTerminal() (*rawTerminal, error) {
	fd := int(os.Stdout.Fd())
	t := &rawTerminal{out: os.Stdout, fd: fd}

	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		// Not a terminal (e.g. output redirected to a file): proceed
		// without raw mode rather than failing the whole session.
		return t, nil
	}
	t.saved = *saved

	raw := *saved
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &raw); err != nil {
		return t, nil
	}
	t.changed = true
	return t, nil
}

func (t *rawTerminal) restore() {
	if !t.changed {
		return
	}
	_ = unix.IoctlSetTermios(t.fd, ioctlSetTermios, &t.saved)
}
