package chatvault

import (
	"log/slog"

	"github.com/poiesic/chatvault/storage/badger"
)

// Defaults applied when an option is not given.
const (
	DefaultDBName        = "chatvault"
	DefaultStoreName     = "blocks"
	DefaultMetaStoreName = "meta_summaries"
	DefaultVersion       = 2
)

// Option configures a Controller.
type Option func(*options)

type options struct {
	dbName        string
	storeName     string
	metaStoreName string
	version       int
	dir           string
	opener        badger.Opener
	logger        *slog.Logger
}

func defaultOptions() *options {
	return &options{
		dbName:        DefaultDBName,
		storeName:     DefaultStoreName,
		metaStoreName: DefaultMetaStoreName,
		version:       DefaultVersion,
		logger:        slog.Default(),
	}
}

// WithDBName sets the name of the database.
func WithDBName(name string) Option {
	return func(o *options) {
		o.dbName = name
	}
}

// WithStoreName sets the name of the block store.
func WithStoreName(name string) Option {
	return func(o *options) {
		o.storeName = name
	}
}

// WithMetaStoreName sets the name of the meta summary store.
func WithMetaStoreName(name string) Option {
	return func(o *options) {
		o.metaStoreName = name
	}
}

// WithVersion sets the requested schema version. Must be at least 1;
// meta summaries need version 2.
func WithVersion(version int) Option {
	return func(o *options) {
		o.version = version
	}
}

// WithDir keeps the database below dir on disk.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithOpener injects the function that opens the indexed backend.
// It takes precedence over WithDir.
func WithOpener(opener badger.Opener) Option {
	return func(o *options) {
		o.opener = opener
	}
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
