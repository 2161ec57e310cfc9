package frames

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/okian/rainstream/pkg/logger"
)

// SequenceSource reads an ordered image sequence from a directory, one
// frame per tick. When the sequence is exhausted it reports no data,
// which the pipeline treats as end of input.
type SequenceSource struct {
	paths   []string
	index   int
	convert []ConvertOption
	logger  logger.Logger
}

// NewSequenceSource lists the decodable images under dir in name
// order. Convert options (blur, hue gate) apply to every frame.
func NewSequenceSource(dir string, opts ...ConvertOption) (*SequenceSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no frames in %s", ErrNoFrames, dir)
	}
	sort.Strings(paths)

	return &SequenceSource{
		paths:   paths,
		convert: opts,
		logger:  logger.Get().Named("frames"),
	}, nil
}

// Len returns the number of frames in the sequence.
func (s *SequenceSource) Len() int { return len(s.paths) }

// Snapshot decodes and converts the next frame. An undecodable frame
// is skipped (logged, not fatal), matching the pipeline's
// skip-on-no-data contract.
func (s *SequenceSource) Snapshot(ctx context.Context) (*Grid, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	default:
	}

	if s.index >= len(s.paths) {
		return nil, false
	}

	path := s.paths[s.index]
	s.index++

	img, err := imaging.Open(path)
	if err != nil {
		s.logger.Warn(ctx, "skipping undecodable frame",
			logger.String("path", path),
			logger.Error(err),
		)
		return nil, false
	}
	return FromImage(img, s.convert...), true
}
