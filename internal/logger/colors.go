package logger

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Color printers for consistent output across the application
var (
	SuccessColor = color.New(color.FgGreen, color.Bold)
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarnColor    = color.New(color.FgYellow, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	DebugColor   = color.New(color.FgWhite)

	HighlightColor = color.New(color.FgMagenta, color.Bold)
	DimColor       = color.New(color.FgHiBlack)
)

// CLI output helpers using fatih/color for cross-platform support

// Success prints a success message with green checkmark
func Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = SuccessColor.Fprint(os.Stdout, "✓ ")
	fmt.Println(msg)
}

// Error prints an error message with red X
func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = ErrorColor.Fprint(os.Stderr, "✗ ")
	fmt.Fprintln(os.Stderr, msg)
}

// Warning prints a warning message with yellow exclamation
func Warning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = WarnColor.Fprint(os.Stdout, "⚠ ")
	fmt.Println(msg)
}

// Info prints an info message with blue arrow
func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = InfoColor.Fprint(os.Stdout, "→ ")
	fmt.Println(msg)
}

// Header prints a bold header
func Header(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = HighlightColor.Println(msg)
}

// StatusLine prints a key-value status line
func StatusLine(key, value string) {
	_, _ = DimColor.Printf("  %s: ", key)
	fmt.Println(value)
}

// DisableColors disables all color output (for non-TTY or --no-color flag)
func DisableColors() {
	color.NoColor = true
}

// EnableColors enables color output
func EnableColors() {
	color.NoColor = false
}
