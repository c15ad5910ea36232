// edulearn/utils/color/color.go
package color

import (
	"github.com/fatih/color"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	infoColor      = color.New(color.FgGreen)
	warningColor   = color.New(color.FgYellow, color.Bold)
	errorColor     = color.New(color.FgRed, color.Bold)
	assistantColor = color.New(color.FgHiYellow, color.Bold)
	starColor      = color.New(color.FgMagenta, color.Bold)
	mutedColor     = color.New(color.FgHiBlack)
)

func Prompt(s string) string {
	return promptColor.Sprint(s)
}

func Info(s string) string {
	return infoColor.Sprint(s)
}

func Warning(s string) string {
	return warningColor.Sprint(s)
}

func Error(s string) string {
	return errorColor.Sprint(s)
}

// Assistant colors tutor replies.
func Assistant(s string) string {
	return assistantColor.Sprint(s)
}

func Star(s string) string {
	return starColor.Sprint(s)
}

func Muted(s string) string {
	return mutedColor.Sprint(s)
}

// Disable turns colors off, e.g. when output is piped.
func Disable() {
	color.NoColor = true
}
