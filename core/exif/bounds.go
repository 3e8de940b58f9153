package exif

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// typeSizes holds the byte size of one value of each TIFF field type.
// Index 0 and anything past DOUBLE (12) are not valid types.
var typeSizes = [...]uint64{1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8}

// maxDirs bounds how many IFDs one block may hold.
const maxDirs = 32

// readHeader returns the byte order and IFD0 offset of TIFF data.
func readHeader(data []byte) (binary.ByteOrder, uint32, error) {
	if len(data) < tiffHeaderSize {
		return nil, 0, fmt.Errorf("%w: short header", ErrMalformed)
	}
	var order binary.ByteOrder
	switch string(data[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: bad byte order %q", ErrMalformed, data[:2])
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, 0, fmt.Errorf("%w: bad TIFF magic", ErrMalformed)
	}
	return order, order.Uint32(data[4:8]), nil
}

// checkDir verifies that the IFD at off and every value it references lie
// inside data, and that every entry has a known type. It returns the offset
// of the next IFD in the chain and the offsets named by sub-IFD pointers.
func checkDir(data []byte, order binary.ByteOrder, off uint32) (next uint32, subs []uint32, err error) {
	size := uint64(len(data))
	if uint64(off)+2 > size {
		return 0, nil, fmt.Errorf("%w: IFD offset %d past end of block", ErrMalformed, off)
	}
	n := uint64(order.Uint16(data[off:]))
	end := uint64(off) + 2 + n*entrySize + 4
	if end > size {
		return 0, nil, fmt.Errorf("%w: IFD at %d overruns block", ErrMalformed, off)
	}

	for i := uint64(0); i < n; i++ {
		e := data[uint64(off)+2+i*entrySize:]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := order.Uint32(e[4:8])
		if typ == 0 || int(typ) >= len(typeSizes) {
			return 0, nil, fmt.Errorf("%w: tag 0x%04X has unknown type %d", ErrMalformed, tag, typ)
		}
		length := typeSizes[typ] * uint64(count)
		if length > size {
			return 0, nil, fmt.Errorf("%w: tag 0x%04X claims %d values", ErrMalformed, tag, count)
		}
		if length > 4 && uint64(order.Uint32(e[8:12]))+length > size {
			return 0, nil, fmt.Errorf("%w: tag 0x%04X value overruns block", ErrMalformed, tag)
		}

		switch tag {
		case tagExifPointer, tagGPSPointer, tagInteropPointer:
			switch typ {
			case 3:
				subs = append(subs, uint32(order.Uint16(e[8:10])))
			case 4:
				subs = append(subs, order.Uint32(e[8:12]))
			}
		}
	}
	return order.Uint32(data[end-4 : end]), subs, nil
}

// checkChain verifies the IFD0 -> IFD1 -> ... chain that tiff.Decode walks.
// A loop in the chain is malformed.
func checkChain(data []byte, order binary.ByteOrder, first uint32) error {
	seen := make(map[uint32]bool)
	for off := first; off != 0; {
		if seen[off] {
			return fmt.Errorf("%w: IFD chain loops at %d", ErrMalformed, off)
		}
		if len(seen) == maxDirs {
			return fmt.Errorf("%w: more than %d IFDs", ErrMalformed, maxDirs)
		}
		seen[off] = true
		next, _, err := checkDir(data, order, off)
		if err != nil {
			return err
		}
		off = next
	}
	return nil
}

// CheckBounds verifies every IFD reachable from the header of an EXIF block,
// with or without the "Exif\0\0" header: the chain and the Exif, GPS and
// Interop sub-IFDs. Data that passes can be handed to goexif whole without
// it allocating more than the block could hold.
func CheckBounds(data []byte) error {
	data = bytes.TrimPrefix(data, Header)
	order, first, err := readHeader(data)
	if err != nil {
		return err
	}
	if err := checkChain(data, order, first); err != nil {
		return err
	}

	seen := make(map[uint32]bool)
	queue := []uint32{first}
	for len(queue) > 0 {
		off := queue[0]
		queue = queue[1:]
		if off == 0 || seen[off] {
			continue
		}
		if len(seen) == maxDirs {
			return fmt.Errorf("%w: more than %d IFDs", ErrMalformed, maxDirs)
		}
		seen[off] = true
		next, subs, err := checkDir(data, order, off)
		if err != nil {
			return err
		}
		queue = append(queue, next)
		queue = append(queue, subs...)
	}
	return nil
}
