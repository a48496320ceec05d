package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	codecMagic   = "PQIX"
	codecVersion = uint32(1)
)

var ErrCorrupt = errors.New("corrupt index data")

// MarshalBinary encodes the index as magic, version, dim, count followed by
// little-endian float32 values.
func (f *Flat) MarshalBinary() ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, 16+4*len(f.data)))
	buf.WriteString(codecMagic)
	hdr := []uint32{codecVersion, uint32(f.dim), uint32(f.Len())}
	if err := binary.Write(buf, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	if err := binary.Write(buf, binary.LittleEndian, f.data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Flat) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	magic := make([]byte, len(codecMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != codecMagic {
		return fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	hdr := make([]uint32, 3)
	if err := binary.Read(r, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if hdr[0] != codecVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrCorrupt, hdr[0])
	}
	dim, count := int(hdr[1]), int(hdr[2])
	if dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrCorrupt, dim)
	}
	if r.Len() != dim*count*4 {
		return fmt.Errorf("%w: expected %d vectors of %d values, payload is %d bytes", ErrCorrupt, count, dim, r.Len())
	}
	values := make([]float32, dim*count)
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if !finite(values) {
		return fmt.Errorf("%w: %w", ErrCorrupt, ErrNonFinite)
	}
	f.dim = dim
	f.data = values
	return nil
}
