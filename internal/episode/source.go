package episode

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable marks an episode that cannot be fetched or parsed. The
// quality engine skips such episodes instead of aborting the run.
var ErrUnavailable = errors.New("episode unavailable")

// Source supplies a dataset descriptor and per-episode frame tables. A
// failed Schema call is fatal for an evaluation run; a failed Episode call
// wrapping ErrUnavailable only skips that episode.
type Source interface {
	Schema(ctx context.Context) (*Schema, error)
	Episode(ctx context.Context, index int) (*Table, error)
}

// MemorySource serves a schema and pre-built tables from memory. Episodes
// with a nil table report ErrUnavailable. Used by tests and by callers that
// already hold parsed frame data.
type MemorySource struct {
	Desc   *Schema
	Tables []*Table
}

// Schema implements Source.
func (m *MemorySource) Schema(ctx context.Context) (*Schema, error) {
	if m.Desc == nil {
		return nil, errors.New("no dataset descriptor")
	}
	return m.Desc, nil
}

// Episode implements Source.
func (m *MemorySource) Episode(ctx context.Context, index int) (*Table, error) {
	if index < 0 || index >= len(m.Tables) || m.Tables[index] == nil {
		return nil, fmt.Errorf("episode %d: %w", index, ErrUnavailable)
	}
	return m.Tables[index], nil
}
