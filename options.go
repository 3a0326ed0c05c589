package epub

import (
	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"
)

// maxDecompressSize is the default maximum decompressed size for a single ZIP
// entry. This guards against zip bomb attacks.
const maxDecompressSize int64 = 256 * 1024 * 1024

// Option configures a Document or a Builder.
type Option func(*config)

type config struct {
	logger           *zap.Logger
	maxEntrySize     int64
	workspaceDir     string
	compressionLevel int
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:           zap.NewNop(),
		maxEntrySize:     maxDecompressSize,
		compressionLevel: flate.BestCompression,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets the logger used for warnings and diagnostics. A nil logger
// is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxEntrySize limits the decompressed size of any single archive entry.
// Non-positive values are ignored.
func WithMaxEntrySize(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntrySize = n
		}
	}
}

// WithWorkspaceDir sets the parent directory in which a Builder creates its
// staging workspace. The default is the system temporary directory.
func WithWorkspaceDir(dir string) Option {
	return func(c *config) {
		c.workspaceDir = dir
	}
}

// WithCompressionLevel sets the deflate level used for entries written by a
// Builder. Levels outside flate's range are ignored.
func WithCompressionLevel(level int) Option {
	return func(c *config) {
		if level >= flate.HuffmanOnly && level <= flate.BestCompression {
			c.compressionLevel = level
		}
	}
}
