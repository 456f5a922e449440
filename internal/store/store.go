package store

import "context"

// DefaultMappingKey is the key the room -> IRC URL mapping is stored under.
const DefaultMappingKey = "irc_config"

// KV is a small key-value store for JSON-serialisable values.
type KV interface {
	// Load decodes the value saved under key into dst. It reports false,
	// leaving dst untouched, when nothing was saved under key.
	Load(ctx context.Context, key string, dst any) (bool, error)

	// Save replaces the value stored under key.
	Save(ctx context.Context, key string, value any) error

	// Close releases the underlying storage.
	Close() error
}
