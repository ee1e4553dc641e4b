package eval

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/wbrown/janus-queryspec/queryspec"
)

// TableFormatter provides utilities for formatting sequences as tables
type TableFormatter[T any] struct {
	// MaxWidth is the maximum width for a column
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter[T any]() *TableFormatter[T] {
	return &TableFormatter[T]{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatSequence formats a sequence as a markdown table with one column per
// schema selector.
func (tf *TableFormatter[T]) FormatSequence(schema *queryspec.Schema[T], seq Sequence[T]) (string, error) {
	if seq == nil {
		return "_Empty sequence_", nil
	}

	items, err := Materialize(seq)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "_Empty sequence_", nil
	}

	return tf.formatTable(schema.Selectors(), items), nil
}

// formatTable formats selectors and items as a markdown table
func (tf *TableFormatter[T]) formatTable(selectors []*queryspec.Selector[T], items []T) string {
	tableString := &strings.Builder{}

	// Create alignment array with all columns using AlignNone for simple separators
	alignment := make([]tw.Align, len(selectors))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	headers := make([]string, len(selectors))
	for i, sel := range selectors {
		headers[i] = sel.Name()
	}
	table.Header(headers)

	for _, item := range items {
		row := make([]string, len(selectors))
		for j, sel := range selectors {
			row[j] = tf.formatValue(sel.Get(item))
		}
		table.Append(row)
	}

	table.Render()

	// Add row count
	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(items)))

	return tableString.String()
}

// formatValue converts a value to a string representation
func (tf *TableFormatter[T]) formatValue(val interface{}) string {
	if val == nil {
		return "nil"
	}

	switch v := val.(type) {
	case string:
		return tf.truncate(v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case bool:
		return fmt.Sprintf("%t", v)
	case time.Time:
		return v.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return tf.truncate(v.String())
	default:
		return tf.truncate(fmt.Sprintf("%v", v))
	}
}

func (tf *TableFormatter[T]) truncate(s string) string {
	if tf.MaxWidth <= 0 || len(s) <= tf.MaxWidth {
		return s
	}
	return s[:tf.MaxWidth] + tf.TruncateString
}

// PrintSequence prints a sequence to stdout
func PrintSequence[T any](schema *queryspec.Schema[T], seq Sequence[T]) error {
	formatter := NewTableFormatter[T]()
	out, err := formatter.FormatSequence(schema, seq)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// SequenceString returns a string representation of a sequence
func SequenceString[T any](schema *queryspec.Schema[T], seq Sequence[T]) (string, error) {
	formatter := NewTableFormatter[T]()
	return formatter.FormatSequence(schema, seq)
}
