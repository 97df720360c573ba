package param

import (
	"fmt"
	"strconv"
	"strings"
)

// Display formatters and parsers shared by the built-in parameter kinds.

// DecibelFormatter formats dB values, collapsing the bottom of the range to -inf.
func DecibelFormatter(db float64) string {
	if db <= -60 {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// DecibelParser parses dB display strings.
func DecibelParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	if strings.Contains(str, "inf") || strings.Contains(str, "∞") {
		return -96.0, nil
	}
	str = strings.TrimSuffix(str, "dB")
	str = strings.TrimSuffix(str, "db")
	return strconv.ParseFloat(strings.TrimSpace(str), 64)
}

// PercentFormatter formats a 0-100 value as a percentage.
func PercentFormatter(value float64) string {
	return fmt.Sprintf("%.0f%%", value)
}

// PercentParser parses percentage display strings.
func PercentParser(str string) (float64, error) {
	str = strings.TrimSuffix(strings.TrimSpace(str), "%")
	return strconv.ParseFloat(str, 64)
}

// TimeFormatter formats a millisecond value with an appropriate unit.
func TimeFormatter(ms float64) string {
	if ms < 1 {
		return fmt.Sprintf("%.2f us", ms*1000)
	}
	if ms < 1000 {
		return fmt.Sprintf("%.1f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// TimeParser parses time display strings back into milliseconds.
func TimeParser(str string) (float64, error) {
	str = strings.TrimSpace(str)
	switch {
	case strings.HasSuffix(str, "us"):
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "us")), 64)
		return v / 1000, err
	case strings.HasSuffix(str, "ms"):
		return strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "ms")), 64)
	case strings.HasSuffix(str, "s"):
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(str, "s")), 64)
		return v * 1000, err
	}
	return strconv.ParseFloat(str, 64)
}

// RatioFormatter formats a multiplier such as a pitch ratio.
func RatioFormatter(ratio float64) string {
	return fmt.Sprintf("%.2fx", ratio)
}

// RatioParser parses multiplier display strings.
func RatioParser(str string) (float64, error) {
	str = strings.TrimSuffix(strings.TrimSpace(str), "x")
	return strconv.ParseFloat(str, 64)
}
