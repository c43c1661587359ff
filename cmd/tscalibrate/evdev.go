package main

import (
	"bufio"
	"encoding/binary"
	"io"
)

// Linux input_event layout on a 64-bit kernel: a 16-byte struct timeval
// (two 8-byte longs) followed by a 2-byte type, a 2-byte code, and a
// 4-byte signed value — 24 bytes total, no trailing padding.
const inputEventSize = 24

const (
	evAbs     = 0x03
	evSyn     = 0x00
	absX      = 0x00
	absY      = 0x01
	synReport = 0x00
)

type inputEvent struct {
	evType uint16
	code   uint16
	value  int
}

// readEvent reads and decodes one input_event record, skipping anything
// whose type is neither EV_ABS nor EV_SYN (key, relative, and misc
// events are irrelevant to crosshair capture). Other EV_ABS codes, such
// as pressure, are returned; waitForTap ignores them.
func readEvent(r *bufio.Reader) (inputEvent, error) {
	var buf [inputEventSize]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return inputEvent{}, err
		}
		t := binary.LittleEndian.Uint16(buf[16:18])
		if t != evAbs && t != evSyn {
			continue
		}
		code := binary.LittleEndian.Uint16(buf[18:20])
		value := int(int32(binary.LittleEndian.Uint32(buf[20:24])))
		return inputEvent{evType: t, code: code, value: value}, nil
	}
}
