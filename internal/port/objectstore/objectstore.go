// Package objectstore defines the durable store backend contract. Backends
// persist opaque encoded records addressed by Key; typing, decoding and read
// degradation live one layer up.
package objectstore

import (
	"context"
	"strings"
	"time"
)

// Kind names an entity collection.
type Kind string

const (
	KindRun      Kind = "runs"
	KindPrompt   Kind = "prompts"
	KindProfile  Kind = "profiles"
	KindSettings Kind = "settings"
)

// Key addresses one record. Scope partitions a collection (the role for
// prompts) and is empty otherwise.
type Key struct {
	Kind  Kind
	Scope string
	ID    string
}

const ext = ".json"

// Path returns the slash-separated location of the record, e.g.
// "runs/<id>.json" or "prompts/agentA/<id>.json".
func (k Key) Path() string {
	return CollectionPrefix(k.Kind, k.Scope) + k.ID + ext
}

// CollectionPrefix returns the path prefix shared by every record of a
// collection, ending in a slash.
func CollectionPrefix(kind Kind, scope string) string {
	if scope == "" {
		return string(kind) + "/"
	}
	return string(kind) + "/" + scope + "/"
}

// ParsePath maps a record path back to its key. It reports false for paths
// outside the collection or nested below it.
func ParsePath(kind Kind, scope, path string) (Key, bool) {
	rest, ok := strings.CutPrefix(path, CollectionPrefix(kind, scope))
	if !ok {
		return Key{}, false
	}
	id, ok := strings.CutSuffix(rest, ext)
	if !ok || id == "" || strings.Contains(id, "/") {
		return Key{}, false
	}
	return Key{Kind: kind, Scope: scope, ID: id}, true
}

// Record is one encoded entity. CreatedAt orders collections newest first;
// backends that cannot recover it on List leave it zero.
type Record struct {
	Key       Key
	Data      []byte
	CreatedAt time.Time
}

// Backend is implemented by the local, blob and key-value stores. Each call
// is atomic for a single record; there are no cross-record transactions.
type Backend interface {
	// Put writes the record, replacing any previous version.
	Put(ctx context.Context, rec Record) error
	// Get returns the record data or an error wrapping domain.ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)
	// List returns the records of one collection. Members that cannot be read
	// are skipped rather than failing the call.
	List(ctx context.Context, kind Kind, scope string) ([]Record, error)
	// Delete removes the record and any index entry pointing at it. Deleting
	// an absent record is not an error.
	Delete(ctx context.Context, key Key) error
	// Name identifies the backend in logs.
	Name() string
}
