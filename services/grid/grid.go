// Package grid holds the state of an editable, spreadsheet-like table:
// active and edited cells, per-cell overrides and per-cell errors keyed by "row-col".
package grid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Column types
const (
	TypeText   = "text"
	TypeNumber = "number"
	TypeDate   = "date"
	TypeBool   = "bool"
	TypeSelect = "select"
)

// Navigation keys
const (
	KeyUp         = "ArrowUp"
	KeyDown       = "ArrowDown"
	KeyLeft       = "ArrowLeft"
	KeyRight      = "ArrowRight"
	KeyTab        = "Tab"
	KeyShiftTab   = "Shift+Tab"
	KeyEnter      = "Enter"
	KeyShiftEnter = "Shift+Enter"
)

// ErrInvalidCellKey is returned by ParseCellKey for malformed keys
var ErrInvalidCellKey = errors.New("invalid cell key")

// ErrReadOnlyColumn is returned when a hidden or read-only column is written
var ErrReadOnlyColumn = errors.New("column is read-only")

// CellKey builds the "row-col" key of a cell
func CellKey(row, col int) string {
	return strconv.Itoa(row) + "-" + strconv.Itoa(col)
}

// ParseCellKey splits a "row-col" key
func ParseCellKey(key string) (int, int, error) {
	r, c, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, ErrInvalidCellKey
	}
	row, err := strconv.Atoi(r)
	if err != nil || row < 0 {
		return 0, 0, ErrInvalidCellKey
	}
	col, err := strconv.Atoi(c)
	if err != nil || col < 0 {
		return 0, 0, ErrInvalidCellKey
	}
	return row, col, nil
}

// Column describes one column of the grid
type Column struct {
	Key      string   `json:"key"`
	Label    string   `json:"label"`
	Type     string   `json:"type"`
	Required bool     `json:"required,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Options  []string `json:"options,omitempty"`
	ReadOnly bool     `json:"read_only,omitempty"`
	Hidden   bool     `json:"hidden,omitempty"`
}

// Validate checks a raw value against the column and returns a message key, or "" when valid.
// Number, date and bool values are normalized in place.
func (c Column) Validate(value *string) string {
	v := strings.TrimSpace(*value)
	*value = v
	if v == "" {
		if c.Required {
			return "validation.required"
		}
		return ""
	}
	switch c.Type {
	case TypeNumber:
		n, err := strconv.ParseFloat(strings.ReplaceAll(strings.ReplaceAll(v, " ", ""), ",", "."), 64)
		if err != nil {
			return "validation.number"
		}
		if (c.Min != nil && n < *c.Min) || (c.Max != nil && n > *c.Max) {
			return "validation.range"
		}
		*value = strconv.FormatFloat(n, 'f', -1, 64)
	case TypeDate:
		d, err := parseDate(v)
		if err != nil {
			return "validation.date"
		}
		*value = d.Format("2006-01-02")
	case TypeBool:
		b, ok := parseBool(v)
		if !ok {
			return "validation.bool"
		}
		*value = strconv.FormatBool(b)
	case TypeSelect:
		opt, ok := lo.Find(c.Options, func(o string) bool { return strings.EqualFold(o, v) })
		if !ok {
			return "validation.option"
		}
		*value = opt
	}
	return ""
}

func parseDate(v string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "02/01/2006", time.RFC3339} {
		if d, err := time.Parse(layout, v); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", v)
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "1", "yes", "y", "oui", "x":
		return true, true
	case "false", "0", "no", "n", "non":
		return false, true
	}
	return false, false
}

// CellChangeFunc persists one valid cell change
type CellChangeFunc func(row int, colKey, value string) error

// Cell addresses a cell by row and column index
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Key returns the "row-col" key of the cell
func (c Cell) Key() string { return CellKey(c.Row, c.Col) }

// Grid is the editing state of one table
type Grid struct {
	Rows    []map[string]string `json:"rows"`
	Columns []Column            `json:"columns"`

	Active  Cell  `json:"active"`
	Editing *Cell `json:"editing,omitempty"`

	Overrides map[string]string `json:"overrides"`
	Errors    map[string]string `json:"errors"`

	OnCellChange CellChangeFunc `json:"-"`
}

// New creates a grid with the first visible cell active
func New(columns []Column, rows []map[string]string, onChange CellChangeFunc) *Grid {
	g := &Grid{
		Rows:         rows,
		Columns:      columns,
		Overrides:    make(map[string]string),
		Errors:       make(map[string]string),
		OnCellChange: onChange,
	}
	if cols := g.VisibleColumns(); len(cols) > 0 {
		g.Active = Cell{Row: 0, Col: cols[0]}
	}
	return g
}

// VisibleColumns returns the indexes of the columns that are not hidden
func (g *Grid) VisibleColumns() []int {
	var out []int
	for i, c := range g.Columns {
		if !c.Hidden {
			out = append(out, i)
		}
	}
	return out
}

// ColumnIndex returns the index of the column with the given key, or -1
func (g *Grid) ColumnIndex(key string) int {
	_, idx, ok := lo.FindIndexOf(g.Columns, func(c Column) bool { return c.Key == key })
	if !ok {
		return -1
	}
	return idx
}

func (g *Grid) inBounds(c Cell) bool {
	return c.Row >= 0 && c.Row < len(g.Rows) && c.Col >= 0 && c.Col < len(g.Columns)
}

// Value returns the displayed value of a cell: the override when present, else the row value
func (g *Grid) Value(c Cell) string {
	if v, ok := g.Overrides[c.Key()]; ok {
		return v
	}
	if !g.inBounds(c) {
		return ""
	}
	return g.Rows[c.Row][g.Columns[c.Col].Key]
}

// Navigate moves the active cell for a key press and returns the new active cell.
// Arrows stop at the edges, Tab wraps across rows, Enter moves vertically.
// Hidden columns are skipped.
func (g *Grid) Navigate(key string) Cell {
	visible := g.VisibleColumns()
	if len(visible) == 0 || len(g.Rows) == 0 {
		return g.Active
	}
	pos := lo.IndexOf(visible, g.Active.Col)
	if pos < 0 {
		pos = 0
	}
	row, last := g.Active.Row, len(g.Rows)-1

	switch key {
	case KeyUp, KeyShiftEnter:
		if row > 0 {
			row--
		}
	case KeyDown, KeyEnter:
		if row < last {
			row++
		}
	case KeyLeft:
		if pos > 0 {
			pos--
		}
	case KeyRight:
		if pos < len(visible)-1 {
			pos++
		}
	case KeyTab:
		switch {
		case pos < len(visible)-1:
			pos++
		case row < last:
			pos, row = 0, row+1
		}
	case KeyShiftTab:
		switch {
		case pos > 0:
			pos--
		case row > 0:
			pos, row = len(visible)-1, row-1
		}
	}
	g.Active = Cell{Row: row, Col: visible[pos]}
	return g.Active
}

// BeginEdit puts a cell in edit mode. Read-only and hidden cells cannot be edited.
func (g *Grid) BeginEdit(c Cell) bool {
	if !g.inBounds(c) {
		return false
	}
	col := g.Columns[c.Col]
	if col.ReadOnly || col.Hidden {
		return false
	}
	g.Active = c
	g.Editing = &c
	return true
}

// CancelEdit leaves edit mode without touching the stored values
func (g *Grid) CancelEdit() {
	g.Editing = nil
}

// SetValue validates a new cell value. A valid value is stored as an override,
// clears the cell error and is handed to OnCellChange; a callback error becomes
// the cell error. An invalid value records the error and keeps the previous value.
func (g *Grid) SetValue(c Cell, value string) error {
	if !g.inBounds(c) {
		return ErrInvalidCellKey
	}
	col := g.Columns[c.Col]
	if col.ReadOnly || col.Hidden {
		return fmt.Errorf("column %s: %w", col.Key, ErrReadOnlyColumn)
	}
	key := c.Key()
	g.Editing = nil

	if msg := col.Validate(&value); msg != "" {
		g.Errors[key] = msg
		return &CellError{Key: key, Message: msg}
	}
	if g.OnCellChange != nil {
		if err := g.OnCellChange(c.Row, col.Key, value); err != nil {
			g.Errors[key] = err.Error()
			return &CellError{Key: key, Message: err.Error(), Err: err}
		}
	}
	g.Overrides[key] = value
	delete(g.Errors, key)
	return nil
}

// CellError reports a rejected cell value
type CellError struct {
	Key     string
	Message string
	Err     error
}

func (e *CellError) Error() string { return "cell " + e.Key + ": " + e.Message }

func (e *CellError) Unwrap() error { return e.Err }

// Copy serializes the rectangle between two cells as tab/newline text over visible columns
func (g *Grid) Copy(from, to Cell) string {
	r0, r1 := min(from.Row, to.Row), max(from.Row, to.Row)
	c0, c1 := min(from.Col, to.Col), max(from.Col, to.Col)
	r0, r1 = max(r0, 0), min(r1, len(g.Rows)-1)

	cols := lo.Filter(g.VisibleColumns(), func(i int, _ int) bool { return i >= c0 && i <= c1 })
	var lines []string
	for r := r0; r <= r1; r++ {
		values := lo.Map(cols, func(col int, _ int) string {
			return sanitizeClip(g.Value(Cell{Row: r, Col: col}))
		})
		lines = append(lines, strings.Join(values, "\t"))
	}
	return strings.Join(lines, "\n")
}

func sanitizeClip(v string) string {
	return strings.NewReplacer("\t", " ", "\r", "", "\n", " ").Replace(v)
}

// ParseClipboard splits tab/newline text. A trailing newline is ignored and \r is stripped.
func ParseClipboard(text string) [][]string {
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return lo.Map(strings.Split(text, "\n"), func(line string, _ int) []string {
		return strings.Split(line, "\t")
	})
}

// PasteResult lists the cells written by a paste and the cells rejected
type PasteResult struct {
	Changed []string          `json:"changed"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// Paste maps clipboard text onto the visible columns starting at the anchor cell, the way
// Copy lays them out. Values landing on a read-only column are skipped in place.
// Values falling beyond the last row or column are dropped. Each cell goes through SetValue.
func (g *Grid) Paste(at Cell, text string) PasteResult {
	res := PasteResult{Errors: map[string]string{}}
	cols := lo.Filter(g.VisibleColumns(), func(i int, _ int) bool { return i >= at.Col })

	for dr, values := range ParseClipboard(text) {
		row := at.Row + dr
		if row < 0 || row >= len(g.Rows) {
			break
		}
		for dc, value := range values {
			if dc >= len(cols) {
				break
			}
			if g.Columns[cols[dc]].ReadOnly {
				continue
			}
			c := Cell{Row: row, Col: cols[dc]}
			if err := g.SetValue(c, value); err != nil {
				res.Errors[c.Key()] = g.Errors[c.Key()]
				continue
			}
			res.Changed = append(res.Changed, c.Key())
		}
	}
	return res
}
