// Package units contains helpers to convert sizes and counts to human-readable strings.
package units

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

//nolint:gochecknoglobals
var (
	base10UnitPrefixes = []string{"", "K", "M", "G", "T"}
	base2UnitPrefixes  = []string{"", "Ki", "Mi", "Gi", "Ti"}
)

const bytesStringBase2Envar = "TREEDIFF_BYTES_STRING_BASE_2"

func niceNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", f), "0"), ".")
}

func toDecimalUnitString(f, thousand float64, prefixes []string, suffix string) string {
	for i := range prefixes {
		if f < 0.9*thousand {
			return fmt.Sprintf("%v %v%v", niceNumber(f), prefixes[i], suffix)
		}

		f /= thousand
	}

	return fmt.Sprintf("%v %v%v", niceNumber(f), prefixes[len(prefixes)-1], suffix)
}

// BytesString formats the given value as bytes, in base-2 units when TREEDIFF_BYTES_STRING_BASE_2 is set.
func BytesString(b int64) string {
	if v, _ := strconv.ParseBool(os.Getenv(bytesStringBase2Envar)); v {
		//nolint:mnd
		return toDecimalUnitString(float64(b), 1024, base2UnitPrefixes, "B")
	}

	//nolint:mnd
	return toDecimalUnitString(float64(b), 1000, base10UnitPrefixes, "B")
}

// Count returns the given number with the appropriate base-10 suffix (K, M, G, ...).
func Count(v int64) string {
	if v < 1000 { //nolint:mnd
		return strconv.FormatInt(v, 10)
	}

	//nolint:mnd
	return toDecimalUnitString(float64(v), 1000, base10UnitPrefixes, "")
}
