// Package bitstream provides a bit-granular cursor over in-memory binary data.
//
// The cursor addresses positions in bits rather than bytes, which lets the
// same primitive set walk byte-aligned container structures and the packed
// bit-level encodings embedded inside them. Multi-byte integers are read in
// little-endian byte order. Sub-byte reads consume bits least-significant
// first within each byte, the convention used by LLVM-style bitstreams.
//
// Every read validates its preconditions before consuming anything: a failed
// operation returns a typed *Error and leaves the cursor position unchanged,
// so a caller can recover, reposition, or report the exact failure offset.
package bitstream

import "encoding/binary"

// Reader is a cursor over an immutable byte buffer with bit granularity.
//
// The buffer is borrowed, never copied or modified. A Reader must not be
// shared between goroutines, but any number of Readers may traverse the same
// buffer concurrently.
type Reader struct {
	data []byte
	off  uint64 // position in bits from the start of data
}

// NewReader creates a reader positioned at bit offset zero.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// BitLen returns the total number of bits in the buffer.
func (r *Reader) BitLen() uint64 {
	return uint64(len(r.data)) * 8
}

// Offset returns the current cursor position in bits.
func (r *Reader) Offset() uint64 {
	return r.off
}

// Remaining returns the number of bits between the cursor and the end.
func (r *Reader) Remaining() uint64 {
	return r.BitLen() - r.off
}

// AtEnd reports whether the cursor has consumed the entire buffer.
func (r *Reader) AtEnd() bool {
	return r.off == r.BitLen()
}

// requireBytes validates a byte-oriented read of n bytes at the cursor.
func (r *Reader) requireBytes(n int) error {
	if r.off%8 != 0 {
		return NewError(ErrMisaligned, r.off, "byte read at non-byte-aligned offset")
	}
	if need := uint64(n) * 8; need > r.Remaining() {
		return NewError(ErrOutOfBounds, r.off, "%d bytes requested, %d bits remain", n, r.Remaining())
	}
	return nil
}

// ReadUint8 reads one byte. The cursor must be byte-aligned.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.requireBytes(1); err != nil {
		return 0, err
	}
	v := r.data[r.off/8]
	r.off += 8
	return v, nil
}

// ReadUint16 reads a little-endian 16-bit integer. The cursor must be
// byte-aligned.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.requireBytes(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.data[r.off/8:])
	r.off += 16
	return v, nil
}

// ReadUint32 reads a little-endian 32-bit integer. The cursor must be
// byte-aligned.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.requireBytes(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.data[r.off/8:])
	r.off += 32
	return v, nil
}

// ReadBytes reads n raw bytes. The cursor must be byte-aligned. The returned
// slice aliases the underlying buffer and must not be modified.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, NewError(ErrOutOfBounds, r.off, "negative byte count %d", n)
	}
	if err := r.requireBytes(n); err != nil {
		return nil, err
	}
	start := r.off / 8
	r.off += uint64(n) * 8
	return r.data[start : start+uint64(n)], nil
}

// ReadASCII reads a run of n bytes and returns it as a string. The cursor
// must be byte-aligned. The bytes are not validated or transformed; callers
// that display the result are responsible for escaping non-printable bytes.
func (r *Reader) ReadASCII(n int) (string, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBits reads n bits (0 <= n <= 32) at any bit offset, with no alignment
// requirement. Bits are consumed least-significant-first within each byte and
// compose across byte boundaries, so reading 8k bits at a byte-aligned offset
// yields the same value as the corresponding little-endian integer read.
func (r *Reader) ReadBits(n int) (uint32, error) {
	if n < 0 || n > 32 {
		return 0, NewError(ErrUnsupported, r.off, "bit count %d outside [0, 32]", n)
	}
	if uint64(n) > r.Remaining() {
		return 0, NewError(ErrOutOfBounds, r.off, "%d bits requested, %d remain", n, r.Remaining())
	}
	var v uint32
	for i := 0; i < n; i++ {
		pos := r.off + uint64(i)
		if r.data[pos/8]&(1<<(pos%8)) != 0 {
			v |= 1 << i
		}
	}
	r.off += uint64(n)
	return v, nil
}

// ReadVBR reads a single chunk of an n-bit variable bit-rate value
// (2 <= n <= 32). The chunk's highest bit is a continuation flag; the
// remaining n-1 bits carry the value. Continuation chunks are not
// implemented: a set flag fails with ErrUnsupported and the cursor stays at
// the chunk start, rather than silently returning a truncated value.
func (r *Reader) ReadVBR(n int) (uint32, error) {
	if n < 2 || n > 32 {
		return 0, NewError(ErrUnsupported, r.off, "vbr chunk width %d outside [2, 32]", n)
	}
	start := r.off
	chunk, err := r.ReadBits(n)
	if err != nil {
		return 0, err
	}
	if chunk&(1<<(n-1)) != 0 {
		r.off = start
		return 0, NewError(ErrUnsupported, start, "vbr%d continuation chunks are not implemented", n)
	}
	return chunk, nil
}

// SkipBits advances the cursor by n bits without decoding them.
func (r *Reader) SkipBits(n uint64) error {
	if n > r.Remaining() {
		return NewError(ErrOutOfBounds, r.off, "skip of %d bits, %d remain", n, r.Remaining())
	}
	r.off += n
	return nil
}

// SeekBit moves the cursor to an absolute bit offset. Seeking to BitLen
// positions the cursor at the end of the buffer.
func (r *Reader) SeekBit(offset uint64) error {
	if offset > r.BitLen() {
		return NewError(ErrOutOfBounds, r.off, "seek to bit %d beyond end %d", offset, r.BitLen())
	}
	r.off = offset
	return nil
}

// Align32 advances the cursor to the next 32-bit boundary. Bitstream block
// encodings pad to word boundaries before length-prefixed regions.
func (r *Reader) Align32() error {
	rem := r.off % 32
	if rem == 0 {
		return nil
	}
	return r.SkipBits(32 - rem)
}
