package episode

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultFPS is assumed when a dataset descriptor does not declare a rate.
const DefaultFPS = 30.0

// DefaultChunkSize is the fallback episode-chunk size for path templates.
const DefaultChunkSize = 1000

// DefaultDataPath locates an episode file relative to the dataset root.
const DefaultDataPath = "data/chunk-{episode_chunk:03d}/episode_{episode_index:06d}.jsonl"

// Schema is the dataset-level descriptor: sampling rate, episode count and
// the set of declared feature (column) names, kept in declaration order.
type Schema struct {
	FPS           float64
	TotalEpisodes int
	ChunkSize     int
	DataPath      string
	Features      []string
}

// HasFeature reports whether the descriptor declares the named feature.
func (s *Schema) HasFeature(name string) bool {
	for _, f := range s.Features {
		if f == name {
			return true
		}
	}
	return false
}

// EpisodePath resolves the relative path of one episode file from the
// descriptor's data_path template. Supported placeholders are
// {episode_chunk:03d} and {episode_index:06d}.
func (s *Schema) EpisodePath(index int) string {
	tmpl := s.DataPath
	if tmpl == "" {
		tmpl = DefaultDataPath
	}
	chunkSize := s.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	p := strings.ReplaceAll(tmpl, "{episode_chunk:03d}", fmt.Sprintf("%03d", index/chunkSize))
	p = strings.ReplaceAll(p, "{episode_index:06d}", fmt.Sprintf("%06d", index))
	return p
}

// infoFile mirrors the JSON layout of a dataset's meta/info.json.
type infoFile struct {
	FPS           float64                    `json:"fps"`
	TotalEpisodes int                        `json:"total_episodes"`
	ChunksSize    int                        `json:"chunks_size"`
	DataPath      string                     `json:"data_path"`
	Features      map[string]json.RawMessage `json:"features"`
	FeatureOrder  []string                   `json:"feature_order"`
}

// parseSchema decodes a descriptor JSON document. Feature order follows the
// optional feature_order list when present; otherwise names are sorted so
// repeated runs see the same order (JSON objects carry none).
func parseSchema(raw []byte) (*Schema, error) {
	var info infoFile
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("parse dataset descriptor: %w", err)
	}
	s := &Schema{
		FPS:           info.FPS,
		TotalEpisodes: info.TotalEpisodes,
		ChunkSize:     info.ChunksSize,
		DataPath:      info.DataPath,
	}
	if s.FPS <= 0 {
		s.FPS = DefaultFPS
	}
	if len(info.FeatureOrder) > 0 {
		for _, name := range info.FeatureOrder {
			if _, ok := info.Features[name]; ok {
				s.Features = append(s.Features, name)
			}
		}
		return s, nil
	}
	for name := range info.Features {
		s.Features = append(s.Features, name)
	}
	sort.Strings(s.Features)
	return s, nil
}
