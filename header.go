package flate

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Header is a collection of fields which may be present in the headers of a
// gzip or zlib stream.
type Header struct {
	FileName      string
	Comment       string
	LastModified  time.Time
	DataType      DataType
	OSType        OSType
	ExtraData     ExtraData
	WindowBits    WindowBits
	CompressLevel CompressLevel
}

// ExtraData represents a collection of records in a gzip ExtraData header.
type ExtraData struct {
	Records []ExtraDataRecord
}

// ExtraDataRecord represents a single record in a gzip ExtraData header.
type ExtraDataRecord struct {
	ID    [2]byte
	Bytes []byte
}

// Parse parses the given bytes as an ExtraData field.
func (xd *ExtraData) Parse(raw []byte) {
	*xd = ExtraData{}

	index := uint(0)
	length := uint(len(raw))
	for (index + 4) <= length {
		var rec ExtraDataRecord
		rec.ID[0] = raw[index+0]
		rec.ID[1] = raw[index+1]
		recLen := uint(binary.LittleEndian.Uint16(raw[index+2 : index+4]))
		index += 4
		rec.Bytes = raw[index : index+recLen]
		index += recLen
		xd.Records = append(xd.Records, rec)
	}
}

// AsBytes returns the binary representation of this ExtraData field.
func (xd *ExtraData) AsBytes() []byte {
	var length uint
	for _, rec := range xd.Records {
		recLen := uint(len(rec.Bytes))
		length += 4 + recLen
	}

	out := make([]byte, 0, length)
	for _, rec := range xd.Records {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], uint16(len(rec.Bytes)))
		out = append(out, rec.ID[0], rec.ID[1], tmp[0], tmp[1])
		out = append(out, rec.Bytes...)
	}
	return out
}

// Validate checks a Header decoded off the wire for the same well-formedness
// constraints the gzip specification places on FNAME/FCOMMENT/MTIME/OS/
// FEXTRA, plus a defense against a FileName that could be used for path
// traversal if a caller joins it onto an output directory unchecked.
// Callers such as cmd/gunzip should call Validate before trusting
// Header.FileName as a filesystem path.
func (h Header) Validate() error {
	var errlist []error

	errlist = checkHeaderFileName(h, errlist)
	errlist = checkHeaderComment(h, errlist)
	errlist = checkHeaderLastModified(h, errlist)
	errlist = checkHeaderOSType(h, errlist)
	errlist = checkHeaderExtraData(h, errlist)

	if len(errlist) == 0 {
		return nil
	}
	if len(errlist) == 1 {
		return errlist[0]
	}
	return &multierror.Error{Errors: errlist}
}

func checkHeaderFileName(header Header, errlist []error) []error {
	if len(header.FileName) >= 256 {
		errlist = append(errlist, errors.New("Header.FileName is 256 bytes or longer"))
	}
	if index := strings.IndexByte(header.FileName, 0x00); index >= 0 {
		errlist = append(errlist, errors.New("Header.FileName contains embedded NUL byte"))
	}
	if index := strings.IndexByte(header.FileName, 0x2f); index >= 0 {
		errlist = append(errlist, errors.New("Header.FileName contains embedded '/' byte"))
	}
	if index := strings.IndexByte(header.FileName, 0x5c); index >= 0 {
		errlist = append(errlist, errors.New("Header.FileName contains embedded '\\' byte"))
	}
	return errlist
}

func checkHeaderComment(header Header, errlist []error) []error {
	if len(header.Comment) >= 256 {
		errlist = append(errlist, errors.New("Header.Comment is 256 bytes or longer"))
	}
	if index := strings.IndexByte(header.Comment, 0x00); index >= 0 {
		errlist = append(errlist, errors.New("Header.Comment contains embedded NUL byte"))
	}
	return errlist
}

func checkHeaderLastModified(header Header, errlist []error) []error {
	if !header.LastModified.IsZero() {
		s64 := header.LastModified.Unix()
		if s64 < 0 || (s64 >= 0 && uint64(s64) > uint64(math.MaxUint32)) {
			errlist = append(errlist, errors.New("Header.LastModified is out of range for unsigned 32-bit time_t"))
		}
	}
	return errlist
}

func checkHeaderOSType(header Header, errlist []error) []error {
	if !header.OSType.IsValid() {
		errlist = append(errlist, errors.New("Header.OSType is not valid"))
	}
	return errlist
}

func checkHeaderExtraData(header Header, errlist []error) []error {
	for index, rec := range header.ExtraData.Records {
		if recLen := 4 + uint(len(rec.Bytes)); recLen > uint(math.MaxUint16) {
			errlist = append(errlist, fmt.Errorf("Header.ExtraData.Records[%d] encodes to %d bytes, which is beyond uint16_t", index, recLen))
		}
	}
	if xdata := header.ExtraData.AsBytes(); uint(len(xdata)) > uint(math.MaxUint16) {
		errlist = append(errlist, fmt.Errorf("Header.ExtraData encodes to %d bytes, which is beyond uint16_t", uint(len(xdata))))
	}
	return errlist
}
