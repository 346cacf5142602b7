package journal

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
	"time"
)

// Op says why a revision was recorded
type Op byte

const (
	// OpReplaced records the content a write is about to overwrite
	OpReplaced Op = 1
)

const (
	// HeaderSize is the fixed size of a revision header
	// Layout: LSN(8) + Op(1) + Reserved(3) + PathLen(4) + ContentLen(4) + Reserved(4) + Timestamp(8)
	HeaderSize = 32

	crcSize = 4
)

// Revision is one recorded version of an annotation file
type Revision struct {
	LSN       uint64    // Sequence number, increasing across the whole journal
	Op        Op        // Why the revision was recorded
	Path      string    // Absolute path of the annotation file
	Content   []byte    // File content
	Timestamp time.Time // When the revision was recorded
}

// Encode serializes the revision followed by a CRC32 of everything before it
// Format: [Header(32)] [Path] [Content] [CRC32(4)]
func (r *Revision) Encode() ([]byte, error) {
	if uint64(len(r.Path)) > math.MaxUint32 || uint64(len(r.Content)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	buf := make([]byte, r.Size())
	binary.LittleEndian.PutUint64(buf[0:8], r.LSN)
	buf[8] = byte(r.Op)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(len(r.Path)))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(len(r.Content)))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(r.Timestamp.UnixNano()))

	offset := HeaderSize
	offset += copy(buf[offset:], r.Path)
	offset += copy(buf[offset:], r.Content)

	crc := crc32.ChecksumIEEE(buf[:offset])
	binary.LittleEndian.PutUint32(buf[offset:], crc)
	return buf, nil
}

// bodyLen returns the length of path, content and checksum announced by a header
func bodyLen(header []byte) int {
	pathLen := binary.LittleEndian.Uint32(header[12:16])
	contentLen := binary.LittleEndian.Uint32(header[16:20])
	return int(pathLen) + int(contentLen) + crcSize
}

// DecodeRevision deserializes one encoded revision
func DecodeRevision(data []byte) (*Revision, error) {
	if len(data) < HeaderSize+crcSize {
		return nil, ErrTruncated
	}
	if len(data) < HeaderSize+bodyLen(data[:HeaderSize]) {
		return nil, ErrTruncated
	}
	data = data[:HeaderSize+bodyLen(data[:HeaderSize])]

	stored := binary.LittleEndian.Uint32(data[len(data)-crcSize:])
	if stored != crc32.ChecksumIEEE(data[:len(data)-crcSize]) {
		return nil, ErrCorrupted
	}

	pathLen := int(binary.LittleEndian.Uint32(data[12:16]))
	contentLen := int(binary.LittleEndian.Uint32(data[16:20]))

	r := &Revision{
		LSN:       binary.LittleEndian.Uint64(data[0:8]),
		Op:        Op(data[8]),
		Timestamp: time.Unix(0, int64(binary.LittleEndian.Uint64(data[24:32]))),
	}
	offset := HeaderSize
	r.Path = string(data[offset : offset+pathLen])
	offset += pathLen
	r.Content = make([]byte, contentLen)
	copy(r.Content, data[offset:offset+contentLen])

	return r, nil
}

// Size returns the encoded size of the revision
func (r *Revision) Size() int {
	return HeaderSize + len(r.Path) + len(r.Content) + crcSize
}

func (r *Revision) String() string {
	op := "UNKNOWN"
	if r.Op == OpReplaced {
		op = "REPLACED"
	}
	return fmt.Sprintf("REV[LSN=%d Op=%s Path=%s Bytes=%d At=%s]",
		r.LSN, op, r.Path, len(r.Content), r.Timestamp.Format(time.RFC3339))
}
