package volume

import (
	"encoding/binary"
	"fmt"
	"math"
)

const headerSize = 12

// MarshalBinary encodes the volume as three little-endian uint32 dimensions
// followed by the float32 samples in storage order.
func (v *Volume) MarshalBinary() ([]byte, error) {
	buf := make([]byte, headerSize+4*len(v.Data))
	binary.LittleEndian.PutUint32(buf[0:], uint32(v.NX))
	binary.LittleEndian.PutUint32(buf[4:], uint32(v.NY))
	binary.LittleEndian.PutUint32(buf[8:], uint32(v.NT))
	for i, x := range v.Data {
		binary.LittleEndian.PutUint32(buf[headerSize+4*i:], math.Float32bits(x))
	}
	return buf, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (v *Volume) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return fmt.Errorf("volume payload too short: %d bytes", len(data))
	}
	nx := int(binary.LittleEndian.Uint32(data[0:]))
	ny := int(binary.LittleEndian.Uint32(data[4:]))
	nt := int(binary.LittleEndian.Uint32(data[8:]))
	n := nx * ny * nt
	if len(data) != headerSize+4*n {
		return fmt.Errorf("volume payload is %d bytes, want %d for %dx%dx%d", len(data), headerSize+4*n, nx, ny, nt)
	}
	v.NX, v.NY, v.NT = nx, ny, nt
	v.Data = make([]float32, n)
	for i := range v.Data {
		v.Data[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[headerSize+4*i:]))
	}
	return nil
}
