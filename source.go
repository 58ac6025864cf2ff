package optmap

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// Source is an opened, possibly decompressed, input file. Closing it closes the
// underlying file or Google Storage reader.
type Source struct {
	io.Reader
	DataType DataType
	Size     int64

	closer io.Closer
}

func (s *Source) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}

	return nil
}

// SplitGSPath splits gs://bucket/path/to/object into its bucket and object
// names.
func SplitGSPath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// Open opens a local path or, when a storage client is provided, a gs:// path.
// Compressed content is transparently decompressed.
func Open(ctx context.Context, path string, client *storage.Client) (*Source, error) {
	if client != nil && strings.HasPrefix(path, "gs://") {
		bucketName, pathName, err := SplitGSPath(path)
		if err != nil {
			return nil, err
		}

		rdr, err := client.Bucket(bucketName).Object(pathName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return wrapSource(rdr, rdr.Attrs.Size)
	}

	if strings.HasPrefix(path, "gs://") {
		return nil, fmt.Errorf("%s: a Google Storage client is required for gs:// paths", path)
	}

	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fstat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return wrapSource(f, fstat.Size())
}

func wrapSource(rc io.ReadCloser, size int64) (*Source, error) {
	r, dt, err := MaybeDecompress(rc)
	if err != nil {
		rc.Close()
		return nil, pfx.Err(err)
	}

	return &Source{Reader: r, DataType: dt, Size: size, closer: rc}, nil
}
