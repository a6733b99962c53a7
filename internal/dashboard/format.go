package dashboard

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is used for every rendered time
const TimestampLayout = "2006-01-02 15:04:05"

// FormatCurrency renders v as dollars with two decimals and thousands separators
func FormatCurrency(v float64) string {
	v = round2(v)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + groupThousands(strconv.FormatFloat(v, 'f', 2, 64))
}

// FormatSignedCurrency is FormatCurrency with an explicit plus for gains
func FormatSignedCurrency(v float64) string {
	v = round2(v)
	if v >= 0 {
		return "+" + FormatCurrency(v)
	}
	return FormatCurrency(v)
}

// FormatPercent renders v with two decimals, a sign and a percent suffix
func FormatPercent(v float64) string {
	v = round2(v)
	s := strconv.FormatFloat(v, 'f', 2, 64)
	if v >= 0 {
		s = "+" + s
	}
	return s + "%"
}

// FormatRate renders a value already expressed in percent, such as a win rate,
// with two decimals and no sign
func FormatRate(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', 2, 64) + "%"
}

// FormatRatio renders a fraction such as a drawdown of 0.05 as "5.00%"
func FormatRatio(v float64) string {
	return FormatRate(v * 100)
}

// round2 rounds to cents and folds negative zero into zero
func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// FormatTimestamp renders t in local time, or "-" when unset
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(TimestampLayout)
}

// ParseTimestamp accepts RFC3339 strings and unix seconds or milliseconds
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	if n > 1e12 {
		return time.UnixMilli(n), true
	}
	return time.Unix(n, 0), true
}

// ShortAddress shortens a wallet address to 0x1234...abcd
func ShortAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func groupThousands(s string) string {
	intPart, frac, _ := strings.Cut(s, ".")
	if len(intPart) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
