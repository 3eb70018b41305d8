package episode

import "math"

// SignalKind distinguishes the two column shapes an episode table can hold.
// Classification happens once, when the table is built, so the heuristics
// downstream never have to re-inspect cell types.
type SignalKind int

const (
	// KindScalar is a single numeric value per frame.
	KindScalar SignalKind = iota
	// KindList is a numeric array per frame (for example joint positions).
	KindList
)

// Signal is the column-wise projection of one named field across all frames
// of an episode. Exactly one of Scalar or Rows is populated, according to
// Kind. Missing cells are NaN (scalar) or a nil row (list).
type Signal struct {
	Name string
	Kind SignalKind

	// Scalar holds one value per frame for KindScalar columns.
	Scalar []float64

	// Rows holds one array per frame for KindList columns. Row lengths are
	// not guaranteed to agree; consumers that need a fixed dimension must
	// check (see quality.SelectVectorSignal).
	Rows [][]float64
}

// Len returns the number of frames the signal spans.
func (s *Signal) Len() int {
	if s.Kind == KindList {
		return len(s.Rows)
	}
	return len(s.Scalar)
}

// Table is the classified, read-only view of one episode's frames. Columns
// keep their first-seen order so keyword-based selection downstream is
// reproducible.
type Table struct {
	signals []*Signal
	byName  map[string]*Signal
}

// NumFrames returns the number of rows in the table.
func (t *Table) NumFrames() int {
	if len(t.signals) == 0 {
		return 0
	}
	return t.signals[0].Len()
}

// Signals returns the table's columns in declaration order.
func (t *Table) Signals() []*Signal {
	return t.signals
}

// Signal returns the named column, or nil if the table has no such column.
func (t *Table) Signal(name string) *Signal {
	return t.byName[name]
}

// Builder assembles a Table row by row. The first non-null cell seen for a
// column decides whether it is scalar or list valued; cells that do not fit
// the decided kind are recorded as missing.
type Builder struct {
	names []string
	cols  map[string]*builderColumn
	rows  int
}

type builderColumn struct {
	kind    SignalKind
	decided bool
	scalar  []float64
	rows    [][]float64
}

// NewBuilder returns an empty table builder.
func NewBuilder() *Builder {
	return &Builder{cols: make(map[string]*builderColumn)}
}

// AppendRow adds one frame. Values may be float64, int, []float64, or nil
// for a missing cell. Columns absent from the row are backfilled as missing,
// and columns first seen mid-episode are padded with missing cells for the
// frames already appended.
func (b *Builder) AppendRow(row map[string]any) {
	for _, name := range b.names {
		b.appendCell(name, row[name])
	}
	for name, v := range row {
		if _, ok := b.cols[name]; ok {
			continue
		}
		b.names = append(b.names, name)
		col := &builderColumn{}
		b.cols[name] = col
		// pad frames recorded before this column appeared
		for i := 0; i < b.rows; i++ {
			b.appendCell(name, nil)
		}
		b.appendCell(name, v)
	}
	b.rows++
}

// AppendRowOrdered behaves like AppendRow but registers any new columns in
// the supplied order rather than Go's map iteration order. Sources that know
// the declared column order (for example a JSONL reader that preserves key
// order) should use this to keep selection deterministic.
func (b *Builder) AppendRowOrdered(order []string, row map[string]any) {
	for _, name := range order {
		if _, ok := b.cols[name]; ok {
			continue
		}
		b.names = append(b.names, name)
		b.cols[name] = &builderColumn{}
		for i := 0; i < b.rows; i++ {
			b.appendCell(name, nil)
		}
	}
	for _, name := range b.names {
		b.appendCell(name, row[name])
	}
	b.rows++
}

func (b *Builder) appendCell(name string, v any) {
	col := b.cols[name]

	var f float64
	var list []float64
	var isScalar, isList bool

	switch x := v.(type) {
	case nil:
	case float64:
		f, isScalar = x, true
	case float32:
		f, isScalar = float64(x), true
	case int:
		f, isScalar = float64(x), true
	case int64:
		f, isScalar = float64(x), true
	case []float64:
		list, isList = x, true
	case []any:
		list = make([]float64, 0, len(x))
		isList = true
		for _, e := range x {
			switch n := e.(type) {
			case float64:
				list = append(list, n)
			case int:
				list = append(list, float64(n))
			case nil:
				list = append(list, math.NaN())
			default:
				isList = false
			}
			if !isList {
				break
			}
		}
	}

	if !col.decided && (isScalar || isList) {
		col.decided = true
		if isList {
			col.kind = KindList
		} else {
			col.kind = KindScalar
		}
	}

	switch col.kind {
	case KindList:
		if isList {
			col.rows = append(col.rows, list)
		} else {
			col.rows = append(col.rows, nil)
		}
	default:
		if isScalar {
			col.scalar = append(col.scalar, f)
		} else {
			col.scalar = append(col.scalar, math.NaN())
		}
	}
}

// Table finalizes the builder into an immutable classified table.
func (b *Builder) Table() *Table {
	t := &Table{byName: make(map[string]*Signal, len(b.names))}
	for _, name := range b.names {
		col := b.cols[name]
		sig := &Signal{Name: name, Kind: col.kind}
		if col.kind == KindList {
			// a column decided as list may have scalar-slot placeholders if
			// the first cells were missing; reconcile lengths
			if len(col.rows) < b.rows {
				pad := make([][]float64, b.rows-len(col.rows))
				col.rows = append(pad, col.rows...)
			}
			sig.Rows = col.rows
		} else {
			sig.Scalar = col.scalar
		}
		t.signals = append(t.signals, sig)
		t.byName[name] = sig
	}
	return t
}
