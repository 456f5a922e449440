package store

import (
	"context"
	"fmt"
)

// Mappings reads and writes the room -> IRC URL mapping held in a KV.
type Mappings struct {
	kv  KV
	key string
}

// NewMappings binds the mapping to key, or DefaultMappingKey when empty.
func NewMappings(kv KV, key string) *Mappings {
	if key == "" {
		key = DefaultMappingKey
	}
	return &Mappings{kv: kv, key: key}
}

// LoadMappings returns the stored mapping, or an empty one.
func (m *Mappings) LoadMappings(ctx context.Context) (map[string]string, error) {
	mapping := make(map[string]string)
	if _, err := m.kv.Load(ctx, m.key, &mapping); err != nil {
		return nil, fmt.Errorf("load %s: %w", m.key, err)
	}
	if mapping == nil {
		mapping = make(map[string]string)
	}
	return mapping, nil
}

// SaveMappings replaces the stored mapping.
func (m *Mappings) SaveMappings(ctx context.Context, mapping map[string]string) error {
	if err := m.kv.Save(ctx, m.key, mapping); err != nil {
		return fmt.Errorf("save %s: %w", m.key, err)
	}
	return nil
}
