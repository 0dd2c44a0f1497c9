package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter-gate/internal/config"
)

type fakeFactory struct {
	got StorageConfig
}

func (f *fakeFactory) Create(cfg StorageConfig) (Storage, error) {
	f.got = cfg
	return nil, assert.AnError
}

func (f *fakeFactory) GetType() string { return "fake" }

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.False(t, r.IsRegistered("fake"))

	_, err := r.Create("fake", GenericConfig{})
	assert.Error(t, err)

	f := &fakeFactory{}
	r.Register("fake", f)
	r.Register("another", f)
	assert.True(t, r.IsRegistered("fake"))
	assert.Equal(t, []string{"another", "fake"}, r.GetAvailableTypes())

	_, err = r.Create("fake", GenericConfig{"path": "x"})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "x", f.got.(GenericConfig).String("path"))
}

func TestGenericConfig(t *testing.T) {
	gc := GenericConfig{"type": "sqlite", "connection_string": "file:x", "port": 5432}
	assert.NoError(t, gc.Validate())
	assert.Equal(t, "sqlite", gc.GetType())
	assert.Equal(t, "file:x", gc.GetConnectionString())
	assert.Equal(t, "", gc.String("port"), "non-string values read as empty")
	assert.Equal(t, "unknown", GenericConfig{}.GetType())
}

func TestNewStorageRejectsUnknownType(t *testing.T) {
	_, err := NewStorage(&config.Config{DatabaseType: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}
