package publish

import (
	"context"
	"log/slog"

	"github.com/trendrank/trendrank/pkg/types"
)

// Publisher writes the artifact locally and forwards a copy to the mirror,
// if one is configured.
type Publisher struct {
	file   *FileStore
	mirror Mirror
}

// New returns a Publisher. mirror may be nil.
func New(file *FileStore, mirror Mirror) *Publisher {
	return &Publisher{file: file, mirror: mirror}
}

// Path returns the local artifact path.
func (p *Publisher) Path() string { return p.file.Path() }

// ReadLast returns the currently published records; see FileStore.ReadLast.
func (p *Publisher) ReadLast() []types.RankedRecord { return p.file.ReadLast() }

// Write publishes records. Only a local write failure is returned; a mirror
// failure is logged and the local artifact stays published.
func (p *Publisher) Write(ctx context.Context, records []types.RankedRecord) error {
	data, err := p.file.Write(records)
	if err != nil {
		return err
	}
	if p.mirror == nil {
		return nil
	}
	if err := p.mirror.Put(ctx, data); err != nil {
		slog.Warn("publish: mirror upload failed", "err", err)
	}
	return nil
}
