package bitview

import (
	"fmt"
	"math"

	"github.com/gogpu/dxbc/bitstream"
)

// Probe reports the primitive interpretations of the bytes at one offset,
// the decode behind hover tooltips in hex views. Wider interpretations are
// nil when fewer bytes remain than they need.
type Probe struct {
	// Offset is the byte offset the probe was taken at.
	Offset int

	// Byte is the value of the byte itself.
	Byte uint8

	// Uint16, Uint32 and Float32 are the little-endian interpretations
	// starting at Offset.
	Uint16  *uint16
	Uint32  *uint32
	Float32 *float32

	// ASCII is the printable run starting at Offset, at most 16 bytes.
	ASCII string
}

// ProbeAt decodes the primitive interpretations at a byte offset.
func ProbeAt(data []byte, offset int) (*Probe, error) {
	if offset < 0 || offset >= len(data) {
		return nil, fmt.Errorf("byte offset %d outside buffer of %d bytes", offset, len(data))
	}

	r := bitstream.NewReader(data)
	p := &Probe{Offset: offset}

	if err := r.SeekBit(uint64(offset) * 8); err != nil {
		return nil, err
	}
	b, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	p.Byte = b

	if err := r.SeekBit(uint64(offset) * 8); err != nil {
		return nil, err
	}
	if v16, err := r.ReadUint16(); err == nil {
		p.Uint16 = &v16
	}

	if err := r.SeekBit(uint64(offset) * 8); err != nil {
		return nil, err
	}
	if v32, err := r.ReadUint32(); err == nil {
		p.Uint32 = &v32
		f := math.Float32frombits(v32)
		p.Float32 = &f
	}

	run := data[offset:]
	n := 0
	for n < len(run) && n < 16 && run[n] >= 0x20 && run[n] < 0x7F {
		n++
	}
	p.ASCII = string(run[:n])
	return p, nil
}

// String formats the probe as a single tooltip-style line.
func (p *Probe) String() string {
	s := fmt.Sprintf("byte %d: u8=%d (0x%02X)", p.Offset, p.Byte, p.Byte)
	if p.Uint16 != nil {
		s += fmt.Sprintf(" u16=%d", *p.Uint16)
	}
	if p.Uint32 != nil {
		s += fmt.Sprintf(" u32=%d (0x%08X)", *p.Uint32, *p.Uint32)
	}
	if p.Float32 != nil {
		s += fmt.Sprintf(" f32=%g", *p.Float32)
	}
	if p.ASCII != "" {
		s += fmt.Sprintf(" ascii=%q", p.ASCII)
	}
	return s
}
