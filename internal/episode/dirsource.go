package episode

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed infoschema.json
var infoSchemaJSON string

// DirSource reads a dataset laid out on disk: meta/info.json as the
// descriptor and one JSON-Lines file per episode, located through the
// descriptor's data_path template. Each line is one frame; object key order
// of the first line fixes the column order for the whole episode.
type DirSource struct {
	root   string
	schema *Schema
}

// NewDirSource opens a dataset directory. The descriptor is read and
// validated immediately so a broken dataset fails before any episode work.
func NewDirSource(root string) (*DirSource, error) {
	raw, err := os.ReadFile(filepath.Join(root, "meta", "info.json"))
	if err != nil {
		return nil, fmt.Errorf("read dataset descriptor: %w", err)
	}
	if err := validateInfo(raw); err != nil {
		return nil, fmt.Errorf("invalid dataset descriptor: %w", err)
	}
	schema, err := parseSchema(raw)
	if err != nil {
		return nil, err
	}
	return &DirSource{root: root, schema: schema}, nil
}

func validateInfo(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("info.schema.json", strings.NewReader(infoSchemaJSON)); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile("info.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	return schema.Validate(payload)
}

// Schema implements Source.
func (d *DirSource) Schema(ctx context.Context) (*Schema, error) {
	return d.schema, nil
}

// Episode implements Source. Missing or malformed episode files report
// ErrUnavailable so the evaluation run can skip them.
func (d *DirSource) Episode(ctx context.Context, index int) (*Table, error) {
	path := filepath.Join(d.root, filepath.FromSlash(d.schema.EpisodePath(index)))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("episode %d: %w", index, ErrUnavailable)
	}
	defer f.Close()

	b := NewBuilder()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row map[string]any
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("episode %d: bad frame: %w", index, ErrUnavailable)
		}
		order, err := objectKeyOrder(line)
		if err != nil {
			return nil, fmt.Errorf("episode %d: bad frame: %w", index, ErrUnavailable)
		}
		b.AppendRowOrdered(order, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("episode %d: %w", index, ErrUnavailable)
	}
	return b.Table(), nil
}

// objectKeyOrder returns the top-level keys of a JSON object in document
// order, which json.Unmarshal into a map discards.
func objectKeyOrder(line []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("frame is not a JSON object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		// skip the value, whatever its shape
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
