package annotations

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// OutputFormatter formats events for human-readable display.
type OutputFormatter struct {
	useColor bool
	writer   io.Writer
}

// NewOutputFormatter creates a formatter with color support detection.
func NewOutputFormatter(w io.Writer) *OutputFormatter {
	if w == nil {
		w = os.Stdout
	}

	// Auto-detect color support
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}

	return &OutputFormatter{
		useColor: useColor,
		writer:   w,
	}
}

// Handle implements the Handler interface - prints events as they occur
func (f *OutputFormatter) Handle(event Event) {
	output := f.Format(event)
	if output != "" {
		fmt.Fprintln(f.writer, output)
	}
}

// Format converts an event to a human-readable string.
func (f *OutputFormatter) Format(event Event) string {
	latency := f.formatLatency(event.Latency)

	switch event.Name {
	case EvaluateInvoked:
		return fmt.Sprintf("%s Evaluate: %s", latency, truncateDetail(stringData(event, "spec")))

	case EvaluateStage:
		stage := stringData(event, "stage")
		in, hasIn := intData(event, "input.count")
		out, hasOut := intData(event, "output.count")

		var stageStr string
		if f.useColor {
			stageStr = fmt.Sprintf("%s%s%s",
				color.BlueString("Stage("),
				color.CyanString(stage),
				color.BlueString(")"))
		} else {
			stageStr = fmt.Sprintf("Stage(%s)", stage)
		}

		if !hasIn || !hasOut {
			return fmt.Sprintf("%s %s", latency, stageStr)
		}
		if f.useColor {
			arrow := color.YellowString(" → ")
			return fmt.Sprintf("%s %s on %s%s%s",
				latency,
				stageStr,
				f.colorizeCount("items", in),
				arrow,
				f.colorizeCount("items", out))
		}
		return fmt.Sprintf("%s %s on %d items → %d items", latency, stageStr, in, out)

	case EvaluateComplete:
		success, _ := event.Data["success"].(bool)
		if !success {
			return fmt.Sprintf("%s %s Evaluation failed: %v",
				latency,
				f.colorize("✗", color.FgRed),
				event.Data["error"])
		}
		count, _ := intData(event, "item.count")
		stages, _ := intData(event, "stage.count")
		return fmt.Sprintf("%s %s Evaluation done with %s across %s.",
			latency,
			f.colorize("===", color.FgGreen),
			f.colorizeCount("items", count),
			f.colorizeCount("stages", stages))

	case SpecDecoded:
		count, _ := intData(event, "criteria.count")
		return fmt.Sprintf("%s Decoded %s", latency, f.colorizeCount("criteria", count))

	case SpecEncoded:
		count, _ := intData(event, "criteria.count")
		return fmt.Sprintf("%s Encoded %s", latency, f.colorizeCount("criteria", count))

	case StoreScan, StoreQuery:
		verb := "Query"
		if event.Name == StoreScan {
			verb = "Scan"
		}
		var scanStr string
		if f.useColor {
			scanStr = fmt.Sprintf("%s%s%s",
				color.BlueString(verb+"("),
				color.CyanString(stringData(event, "entity")),
				color.BlueString(")"))
		} else {
			scanStr = fmt.Sprintf("%s(%s)", verb, stringData(event, "entity"))
		}
		count, hasCount := intData(event, "item.count")
		if !hasCount {
			return fmt.Sprintf("%s %s", latency, scanStr)
		}
		if f.useColor {
			return fmt.Sprintf("%s %s%s%s", latency, scanStr,
				color.YellowString(" → "), f.colorizeCount("items", count))
		}
		return fmt.Sprintf("%s %s → %d items", latency, scanStr, count)

	case SQLCompiled:
		return fmt.Sprintf("%s SQL: %s", latency, truncateDetail(stringData(event, "sql")))

	case SQLExecuted:
		count, _ := intData(event, "row.count")
		return fmt.Sprintf("%s SQL executed with %s", latency, f.colorizeCount("rows", count))

	case ErrorEvaluate, ErrorStore:
		return fmt.Sprintf("%s %s %v",
			latency,
			f.colorize("✗", color.FgRed),
			event.Data["error"])

	default:
		// Generic format for unknown events
		return fmt.Sprintf("%s %s %v", latency, event.Name, event.Data)
	}
}

// formatLatency formats a duration as [XXXms] or [XXXµs] with color coding.
func (f *OutputFormatter) formatLatency(d time.Duration) string {
	// Use microseconds for sub-millisecond durations
	if d < time.Millisecond {
		us := d.Microseconds()
		s := fmt.Sprintf("[%dµs]", us)
		if !f.useColor {
			return s
		}
		return color.GreenString(s)
	}

	// Use floating-point milliseconds to preserve precision
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("[%.1fms]", ms)

	if !f.useColor {
		return s
	}

	switch {
	case ms < 50:
		return color.GreenString(s)
	case ms < 200:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

// colorizeCount formats a count with a label, using color based on the label type.
func (f *OutputFormatter) colorizeCount(label string, count int) string {
	text := fmt.Sprintf("%d %s", count, label)

	if !f.useColor {
		return text
	}

	switch strings.ToLower(label) {
	case "items":
		return color.MagentaString(text)
	case "rows":
		return color.BlueString(text)
	case "stages", "criteria":
		return color.CyanString(text)
	default:
		return text
	}
}

// colorize applies color if enabled.
func (f *OutputFormatter) colorize(text string, attrs ...color.Attribute) string {
	if !f.useColor {
		return text
	}
	return color.New(attrs...).Sprint(text)
}

func stringData(event Event, key string) string {
	s, _ := event.Data[key].(string)
	return s
}

func intData(event Event, key string) (int, bool) {
	n, ok := event.Data[key].(int)
	return n, ok
}

// truncateDetail shortens long detail strings for display.
func truncateDetail(detail string) string {
	detail = strings.Join(strings.Fields(detail), " ")

	const maxLen = 80
	if len(detail) <= maxLen {
		return detail
	}

	return detail[:maxLen-3] + "..."
}

// ConsoleHandler creates a handler that prints formatted events to stdout.
func ConsoleHandler() Handler {
	formatter := NewOutputFormatter(os.Stdout)
	return formatter.Handle
}

// WriterHandler creates a handler that prints formatted events to w.
func WriterHandler(w io.Writer) Handler {
	formatter := NewOutputFormatter(w)
	return formatter.Handle
}

// isTerminal checks if the file descriptor is a terminal.
// This is a simplified version - in production you'd use a proper terminal detection library.
func isTerminal(fd uintptr) bool {
	return fd == uintptr(1) || fd == uintptr(2) // stdout or stderr
}
