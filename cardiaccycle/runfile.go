package cardiaccycle

import (
	"context"

	"cloud.google.com/go/storage"
	"github.com/carbocation/optmap/voltage"
)

// RunFromFile loads a texture export (local or gs:// when client is non-nil),
// and segments every pixel of it as-is, without normalization or masking.
func RunFromFile(ctx context.Context, path string, client *storage.Client, cfg Config) ([]PixelResult, error) {
	m, err := voltage.Load(ctx, path, client, 0)
	if err != nil {
		return nil, err
	}

	cfg.logf("Loaded %s: %d pixels x %d samples\n", path, m.Pixels(), m.Samples())

	return RunFromSlices(ctx, m, nil, cfg)
}
