package chgraph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"unsafe"
)

// Binary format: magic, version, then a fixed sequence of length-prefixed
// uint32/float64/int32 slices, trailed by a CRC32 of everything preceding
// it. unsafe.Slice reinterprets each slice's backing array as bytes so
// writes/reads are a single syscall per field instead of per-element
// encoding — the overlay for a full metro extract is tens of millions of
// edges, and per-element encoding/binary calls dominate preprocessing time
// at that scale.
const (
	magicBytes   = "CHOL"
	formatVerion = uint32(1)
)

// WriteBinary serializes an Overlay to w in the format ReadBinary expects.
func WriteBinary(w io.Writer, o *Overlay) error {
	cw := &crcWriter{w: w, crc: crc32.NewIEEE()}

	if _, err := cw.Write([]byte(magicBytes)); err != nil {
		return err
	}
	if err := writeU32(cw, formatVerion); err != nil {
		return err
	}
	if err := writeU32(cw, o.NumNodes); err != nil {
		return err
	}

	for _, s := range []writeField{
		{"nodeLat", f64Bytes(o.NodeLat)},
		{"nodeLon", f64Bytes(o.NodeLon)},
		{"rank", u32Bytes(o.Rank)},
		{"fwdFirstOut", u32Bytes(o.FwdFirstOut)},
		{"fwdHead", u32Bytes(o.FwdHead)},
		{"fwdWeight", u32Bytes(o.FwdWeight)},
		{"fwdMiddle", i32Bytes(o.FwdMiddle)},
		{"bwdFirstOut", u32Bytes(o.BwdFirstOut)},
		{"bwdHead", u32Bytes(o.BwdHead)},
		{"bwdWeight", u32Bytes(o.BwdWeight)},
		{"bwdMiddle", i32Bytes(o.BwdMiddle)},
		{"origFirstOut", u32Bytes(o.OrigFirstOut)},
		{"origHead", u32Bytes(o.OrigHead)},
		{"origWeight", u32Bytes(o.OrigWeight)},
		{"geoFirstOut", u32Bytes(o.GeoFirstOut)},
		{"geoShapeLat", f64Bytes(o.GeoShapeLat)},
		{"geoShapeLon", f64Bytes(o.GeoShapeLon)},
	} {
		if err := writeLenPrefixed(cw, s.bytes); err != nil {
			return fmt.Errorf("chgraph: writing %s: %w", s.name, err)
		}
	}

	sum := cw.crc.Sum32()
	return binary.Write(w, binary.LittleEndian, sum)
}

// ReadBinary deserializes an Overlay previously written by WriteBinary, and
// validates the CSR structure is internally consistent so a corrupted file
// fails loudly instead of producing silently wrong routes.
func ReadBinary(r io.Reader) (*Overlay, error) {
	all, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("chgraph: read: %w", err)
	}
	if len(all) < len(magicBytes)+4+4 {
		return nil, fmt.Errorf("chgraph: truncated file")
	}

	trailer := all[len(all)-4:]
	body := all[:len(all)-4]
	wantCRC := binary.LittleEndian.Uint32(trailer)
	gotCRC := crc32.ChecksumIEEE(body)
	if wantCRC != gotCRC {
		return nil, fmt.Errorf("chgraph: checksum mismatch (corrupt file)")
	}

	cursor := body
	if string(cursor[:len(magicBytes)]) != magicBytes {
		return nil, fmt.Errorf("chgraph: bad magic bytes")
	}
	cursor = cursor[len(magicBytes):]

	ver := binary.LittleEndian.Uint32(cursor)
	cursor = cursor[4:]
	if ver != formatVerion {
		return nil, fmt.Errorf("chgraph: unsupported format version %d", ver)
	}

	numNodes := binary.LittleEndian.Uint32(cursor)
	cursor = cursor[4:]

	o := &Overlay{NumNodes: numNodes}

	next := func() ([]byte, error) {
		if len(cursor) < 4 {
			return nil, fmt.Errorf("chgraph: truncated length prefix")
		}
		n := binary.LittleEndian.Uint32(cursor)
		cursor = cursor[4:]
		if uint64(len(cursor)) < uint64(n) {
			return nil, fmt.Errorf("chgraph: truncated field body")
		}
		buf := cursor[:n]
		cursor = cursor[n:]
		return buf, nil
	}

	var err error
	readF64 := func(dst *[]float64) {
		if err != nil {
			return
		}
		var b []byte
		if b, err = next(); err == nil {
			*dst = bytesToF64(b)
		}
	}
	readU32 := func(dst *[]uint32) {
		if err != nil {
			return
		}
		var b []byte
		if b, err = next(); err == nil {
			*dst = bytesToU32(b)
		}
	}
	readI32 := func(dst *[]int32) {
		if err != nil {
			return
		}
		var b []byte
		if b, err = next(); err == nil {
			*dst = bytesToI32(b)
		}
	}

	readF64(&o.NodeLat)
	readF64(&o.NodeLon)
	readU32(&o.Rank)
	readU32(&o.FwdFirstOut)
	readU32(&o.FwdHead)
	readU32(&o.FwdWeight)
	readI32(&o.FwdMiddle)
	readU32(&o.BwdFirstOut)
	readU32(&o.BwdHead)
	readU32(&o.BwdWeight)
	readI32(&o.BwdMiddle)
	readU32(&o.OrigFirstOut)
	readU32(&o.OrigHead)
	readU32(&o.OrigWeight)
	readU32(&o.GeoFirstOut)
	readF64(&o.GeoShapeLat)
	readF64(&o.GeoShapeLon)
	if err != nil {
		return nil, err
	}

	if err := validateCSR(o); err != nil {
		return nil, err
	}
	return o, nil
}

// validateCSR checks that the CSR tables are internally consistent: every
// FirstOut array is non-decreasing, ends at the matching Head length, and
// every head index is in range. Catches truncation or tampering that the
// CRC trailer alone (format-level corruption) would also catch, but cheaply
// double-checks the structural invariant every overlay must hold regardless
// of how it was produced.
func validateCSR(o *Overlay) error {
	check := func(name string, firstOut, head []uint32) error {
		if uint32(len(firstOut)) != o.NumNodes+1 {
			return fmt.Errorf("chgraph: %s firstOut has wrong length", name)
		}
		if firstOut[0] != 0 {
			return fmt.Errorf("chgraph: %s firstOut[0] != 0", name)
		}
		if firstOut[o.NumNodes] != uint32(len(head)) {
			return fmt.Errorf("chgraph: %s firstOut tail does not match head length", name)
		}
		for i := uint32(1); i <= o.NumNodes; i++ {
			if firstOut[i] < firstOut[i-1] {
				return fmt.Errorf("chgraph: %s firstOut is not non-decreasing", name)
			}
		}
		for _, h := range head {
			if h >= o.NumNodes {
				return fmt.Errorf("chgraph: %s head index %d out of range", name, h)
			}
		}
		return nil
	}
	if err := check("fwd", o.FwdFirstOut, o.FwdHead); err != nil {
		return err
	}
	if err := check("bwd", o.BwdFirstOut, o.BwdHead); err != nil {
		return err
	}
	if err := check("orig", o.OrigFirstOut, o.OrigHead); err != nil {
		return err
	}
	return nil
}

type writeField struct {
	name  string
	bytes []byte
}

type crcWriter struct {
	w   io.Writer
	crc interface {
		Write([]byte) (int, error)
		Sum32() uint32
	}
}

func (c *crcWriter) Write(p []byte) (int, error) {
	c.crc.Write(p)
	return c.w.Write(p)
}

func writeU32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func writeLenPrefixed(w io.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func f64Bytes(s []float64) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
}

func u32Bytes(s []uint32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func i32Bytes(s []int32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

func bytesToF64(b []byte) []float64 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 8
	src := unsafe.Slice((*float64)(unsafe.Pointer(&b[0])), n)
	dst := make([]float64, n)
	copy(dst, src)
	return dst
}

func bytesToU32(b []byte) []uint32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	src := unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n)
	dst := make([]uint32, n)
	copy(dst, src)
	return dst
}

func bytesToI32(b []byte) []int32 {
	if len(b) == 0 {
		return nil
	}
	n := len(b) / 4
	src := unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), n)
	dst := make([]int32, n)
	copy(dst, src)
	return dst
}
