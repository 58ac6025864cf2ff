package optmap

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"io"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (d DataType) String() string {
	switch d {
	case DataTypeNoCompression:
		return "plain"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "zlib"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType matches the leading bytes of a stream against known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompress peeks at the start of r and, if it carries a known
// compression signature, returns a reader over the decompressed content.
// Uncompressed input is returned buffered but otherwise untouched.
func MaybeDecompress(r io.Reader) (io.Reader, DataType, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return nil, DataTypeInvalid, err
	}

	dt := DetectDataType(head)

	switch dt {
	case DataTypeGzip:
		gz, err := gzip.NewReader(br)
		return gz, dt, err
	case DataTypeZip:
		// Only the first member of an archive is read.
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, dt, err
		}
		return zr, dt, nil
	case DataTypeBZip2:
		return bzip2.NewReader(br), dt, nil
	case DataTypeXZ:
		reader, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, dt, err
		}
		return reader, dt, nil
	case DataTypeZ:
		zr, err := zlib.NewReader(br)
		return zr, dt, err
	}

	return br, dt, nil
}
