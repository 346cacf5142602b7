package journal

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// Reader reads revisions from one journal file
type Reader struct {
	fd        *os.File
	r         *bufio.Reader
	remaining int64
}

func openReader(path string) (*Reader, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	return &Reader{fd: fd, r: bufio.NewReader(fd), remaining: stat.Size()}, nil
}

// Next returns the next intact revision. A revision with a bad checksum is
// skipped; a revision cut short at the end of the file ends the file.
func (r *Reader) Next() (*Revision, error) {
	for {
		header := make([]byte, HeaderSize)
		if _, err := io.ReadFull(r.r, header); err != nil {
			if err == io.ErrUnexpectedEOF {
				return nil, io.EOF
			}
			return nil, err
		}
		r.remaining -= HeaderSize

		n := int64(bodyLen(header))
		if n > r.remaining {
			// torn write at the tail
			return nil, io.EOF
		}

		data := make([]byte, HeaderSize+int(n))
		copy(data, header)
		if _, err := io.ReadFull(r.r, data[HeaderSize:]); err != nil {
			return nil, io.EOF
		}
		r.remaining -= n

		rev, err := DecodeRevision(data)
		if errors.Is(err, ErrCorrupted) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return rev, nil
	}
}

// Close closes the underlying file
func (r *Reader) Close() error {
	return r.fd.Close()
}
