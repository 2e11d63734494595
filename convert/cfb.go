package convert

import (
	"encoding/binary"
	"errors"
	"unicode/utf16"
)

// Microsoft Compound File Binary (structured storage) reader, per
// MS-CFB. No suitable Go library surfaced for this format, so this is
// a from-scratch minimal reader: enough to enumerate storages/streams
// and read a stream's bytes, which is all the Outlook MSG handler
// needs. It supports the common case of a DIFAT that fits in the
// header (no DIFAT sector chain), true of essentially every
// real-world .msg file.

const (
	cfbSignature = uint64(0xE11AB1A1E011CFD0)

	cfbFreeSect     = 0xFFFFFFFF
	cfbEndOfChain   = 0xFFFFFFFE
	cfbFATSect      = 0xFFFFFFFD
	cfbDIFSect      = 0xFFFFFFFC

	cfbEntryUnknown = 0
	cfbEntryStorage = 1
	cfbEntryStream  = 2
	cfbEntryRoot    = 5
)

type cfbEntry struct {
	name          string
	entryType     byte
	leftSibID     uint32
	rightSibID    uint32
	childID       uint32
	startSector   uint32
	size          uint64
}

type cfbReader struct {
	data            []byte
	sectorSize      int
	miniSectorSize  int
	miniCutoff      uint32
	fat             []uint32
	miniFAT         []uint32
	entries         []cfbEntry
	miniStreamBytes []byte
}

var errNotCFB = errors.New("not a compound file binary document")

func openCFB(data []byte) (*cfbReader, error) {
	if len(data) < 512 {
		return nil, errNotCFB
	}
	if binary.LittleEndian.Uint64(data[0:8]) != cfbSignature {
		return nil, errNotCFB
	}

	sectorShift := binary.LittleEndian.Uint16(data[30:32])
	miniSectorShift := binary.LittleEndian.Uint16(data[32:34])
	numFATSectors := binary.LittleEndian.Uint32(data[44:48])
	firstDirSector := binary.LittleEndian.Uint32(data[48:52])
	miniCutoff := binary.LittleEndian.Uint32(data[56:60])
	firstMiniFATSector := binary.LittleEndian.Uint32(data[60:64])
	numMiniFATSectors := binary.LittleEndian.Uint32(data[64:68])

	r := &cfbReader{
		data:           data,
		sectorSize:     1 << sectorShift,
		miniSectorSize: 1 << miniSectorShift,
		miniCutoff:     miniCutoff,
	}

	var difat []uint32
	for i := 0; i < 109 && len(difat) < int(numFATSectors); i++ {
		off := 76 + i*4
		sec := binary.LittleEndian.Uint32(data[off : off+4])
		if sec == cfbFreeSect {
			break
		}
		difat = append(difat, sec)
	}

	for _, sec := range difat {
		r.fat = append(r.fat, r.readSectorUint32s(sec)...)
	}

	dirBytes := r.readChain(firstDirSector, 0, true)
	const entrySize = 128
	for off := 0; off+entrySize <= len(dirBytes); off += entrySize {
		r.entries = append(r.entries, parseCFBEntry(dirBytes[off:off+entrySize]))
	}
	if len(r.entries) == 0 {
		return nil, errNotCFB
	}

	if firstMiniFATSector != cfbEndOfChain && numMiniFATSectors > 0 {
		r.miniFAT = r.readChainUint32s(firstMiniFATSector)
	}

	root := r.entries[0]
	if root.entryType == cfbEntryRoot && root.size > 0 {
		r.miniStreamBytes = r.readChain(root.startSector, root.size, false)
	}

	return r, nil
}

func (r *cfbReader) sectorOffset(sec uint32) int {
	return r.sectorSize + int(sec)*r.sectorSize
}

func (r *cfbReader) readSectorUint32s(sec uint32) []uint32 {
	off := r.sectorOffset(sec)
	if off < 0 || off+r.sectorSize > len(r.data) {
		return nil
	}
	chunk := r.data[off : off+r.sectorSize]
	out := make([]uint32, len(chunk)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(chunk[i*4 : i*4+4])
	}
	return out
}

// readChain follows the regular (sectorSize-granularity) FAT chain
// starting at startSector, concatenating sector contents. If
// sizeHint > 0 the result is truncated to it; a zero hint reads the
// whole chain (used for the directory stream, whose size isn't known
// up front).
func (r *cfbReader) readChain(startSector uint32, sizeHint uint64, wholeChain bool) []byte {
	var out []byte
	sec := startSector
	seen := make(map[uint32]bool)
	for sec != cfbEndOfChain && sec != cfbFreeSect {
		if seen[sec] || int(sec) >= len(r.fat) {
			break
		}
		seen[sec] = true
		off := r.sectorOffset(sec)
		if off < 0 || off+r.sectorSize > len(r.data) {
			break
		}
		out = append(out, r.data[off:off+r.sectorSize]...)
		if !wholeChain && sizeHint > 0 && uint64(len(out)) >= sizeHint {
			break
		}
		sec = r.fat[sec]
	}
	if sizeHint > 0 && uint64(len(out)) > sizeHint {
		out = out[:sizeHint]
	}
	return out
}

func (r *cfbReader) readChainUint32s(startSector uint32) []uint32 {
	raw := r.readChain(startSector, 0, true)
	out := make([]uint32, len(raw)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return out
}

// readMiniChain follows the mini-FAT chain within the root's mini
// stream, at miniSectorSize granularity.
func (r *cfbReader) readMiniChain(startSector uint32, size uint64) []byte {
	var out []byte
	sec := startSector
	seen := make(map[uint32]bool)
	for sec != cfbEndOfChain && sec != cfbFreeSect {
		if seen[sec] || int(sec) >= len(r.miniFAT) {
			break
		}
		seen[sec] = true
		off := int(sec) * r.miniSectorSize
		if off < 0 || off+r.miniSectorSize > len(r.miniStreamBytes) {
			break
		}
		out = append(out, r.miniStreamBytes[off:off+r.miniSectorSize]...)
		if uint64(len(out)) >= size {
			break
		}
		sec = r.miniFAT[sec]
	}
	if uint64(len(out)) > size {
		out = out[:size]
	}
	return out
}

func (r *cfbReader) readStream(e cfbEntry) []byte {
	if e.size == 0 {
		return nil
	}
	if e.size < uint64(r.miniCutoff) {
		return r.readMiniChain(e.startSector, e.size)
	}
	return r.readChain(e.startSector, e.size, false)
}

func parseCFBEntry(raw []byte) cfbEntry {
	nameLen := binary.LittleEndian.Uint16(raw[64:66])
	var name string
	if nameLen >= 2 {
		codeUnits := make([]uint16, (nameLen-2)/2)
		for i := range codeUnits {
			codeUnits[i] = binary.LittleEndian.Uint16(raw[i*2 : i*2+2])
		}
		name = string(utf16.Decode(codeUnits))
	}

	return cfbEntry{
		name:        name,
		entryType:   raw[66],
		leftSibID:   binary.LittleEndian.Uint32(raw[68:72]),
		rightSibID:  binary.LittleEndian.Uint32(raw[72:76]),
		childID:     binary.LittleEndian.Uint32(raw[76:80]),
		startSector: binary.LittleEndian.Uint32(raw[116:120]),
		size:        binary.LittleEndian.Uint64(raw[120:128]),
	}
}

// childrenOf returns the immediate children of entry index parentIdx
// by walking its child's in-order binary tree of siblings.
func (r *cfbReader) childrenOf(parentIdx uint32) []uint32 {
	if int(parentIdx) >= len(r.entries) {
		return nil
	}
	root := r.entries[parentIdx].childID
	var out []uint32
	var walk func(idx uint32)
	walk = func(idx uint32) {
		if idx == cfbFreeSect || int(idx) >= len(r.entries) {
			return
		}
		e := r.entries[idx]
		walk(e.leftSibID)
		out = append(out, idx)
		walk(e.rightSibID)
	}
	walk(root)
	return out
}

// findByPath resolves a storage/stream path, given as its name segments
// (e.g. {"storageName", "__substg1.0_3707001F"}), relative to the root entry.
func (r *cfbReader) findByPath(segments []string) (cfbEntry, bool) {
	cur := uint32(0)
	for _, seg := range segments {
		found := false
		for _, childIdx := range r.childrenOf(cur) {
			if r.entries[childIdx].name == seg {
				cur = childIdx
				found = true
				break
			}
		}
		if !found {
			return cfbEntry{}, false
		}
	}
	return r.entries[cur], true
}
