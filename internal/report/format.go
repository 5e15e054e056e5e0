package report

import (
	"fmt"
	"math"
)

// siSuffixes are the scale labels used for the QPS column: Ki/Mi/Gi
// suffixes over a base-1000 scale — note this deliberately borrows
// the binary-prefix letters (Ki/Mi/Gi) over a base-1000 scale rather
// than either pure SI (k/M/G) or pure binary (1024-based Ki/Mi/Gi).
// That combination isn't a convention any example repo or ecosystem
// library implements, so it is hand-rolled here (see SPEC_FULL.md).
var siSuffixes = []string{"", "Ki", "Mi", "Gi", "Ti", "Pi"}

// formatQPS renders v rounded to 3 significant digits with the
// appropriate base-1000 scale suffix.
func formatQPS(v float64) string {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	scale := 0
	for v >= 1000 && scale < len(siSuffixes)-1 {
		v /= 1000
		scale++
	}
	return fmt.Sprintf("%s%s", roundSig(v, 3), siSuffixes[scale])
}

// roundSig formats f to n significant digits, trimming a trailing
// decimal point if rounding lands on an integer.
func roundSig(f float64, n int) string {
	if f == 0 {
		return "0"
	}
	digits := n - 1 - int(math.Floor(math.Log10(math.Abs(f))))
	if digits < 0 {
		digits = 0
	}
	mult := math.Pow(10, float64(digits))
	rounded := math.Round(f*mult) / mult
	s := fmt.Sprintf("%.*f", digits, rounded)
	return trimTrailingZeros(s)
}

func trimTrailingZeros(s string) string {
	dot := -1
	for i, c := range s {
		if c == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return s
	}
	end := len(s)
	for end > dot+1 && s[end-1] == '0' {
		end--
	}
	if end == dot+1 {
		end = dot
	}
	return s[:end]
}

// truncate shortens s to at most n runes, appending an ellipsis
// marker when it does.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
