package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/statement-ledger/internal/domain"
)

const (
	excelSerialMin = 20000
	excelSerialMax = 80000
)

var excelEpoch = civil.Date{Year: 1899, Month: time.December, Day: 30}

var (
	numericTriple = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4}|\d{2})$`)
	numericOnly   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

var isoLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"2006.01.02",
}

var textualLayouts = []string{
	"02 Jan 2006",
	"2 Jan 2006",
	"02 January 2006",
	"2 January 2006",
	"02 Jan 06",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"January 2 2006",
	"Mon, 02 Jan 2006",
}

// NormalizeDate resolves a date cell to a calendar day. It accepts native time
// values, Excel serial numbers in (20000, 80000), ISO strings and ambiguous
// A/B/Y triples, which are read month-first and then day-first.
func NormalizeDate(raw any) (civil.Date, error) {
	switch v := raw.(type) {
	case civil.Date:
		if !v.IsValid() {
			return civil.Date{}, fmt.Errorf("%w: %v", domain.ErrInvalidDate, v)
		}
		return v, nil
	case time.Time:
		if v.IsZero() {
			return civil.Date{}, fmt.Errorf("%w: zero time", domain.ErrInvalidDate)
		}
		return civil.DateOf(v), nil
	case *time.Time:
		if v == nil {
			return civil.Date{}, fmt.Errorf("%w: empty", domain.ErrInvalidDate)
		}
		return NormalizeDate(*v)
	case float64:
		return fromExcelSerial(v)
	case int:
		return fromExcelSerial(float64(v))
	case int64:
		return fromExcelSerial(float64(v))
	case string:
		return parseDateString(v)
	case nil:
		return civil.Date{}, fmt.Errorf("%w: empty", domain.ErrInvalidDate)
	default:
		return parseDateString(fmt.Sprint(v))
	}
}

func fromExcelSerial(serial float64) (civil.Date, error) {
	if math.IsNaN(serial) || serial <= excelSerialMin || serial >= excelSerialMax {
		return civil.Date{}, fmt.Errorf("%w: serial %v out of range", domain.ErrInvalidDate, serial)
	}
	return excelEpoch.AddDays(int(math.Floor(serial))), nil
}

func parseDateString(raw string) (civil.Date, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return civil.Date{}, fmt.Errorf("%w: empty", domain.ErrInvalidDate)
	}

	if numericOnly.MatchString(s) {
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return fromExcelSerial(serial)
		}
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.DateOf(t), nil
		}
	}

	// Drop a trailing time component ("01/02/2024 10:31").
	datePart := s
	if idx := strings.IndexAny(s, " T"); idx > 0 && numericTriple.MatchString(s[:idx]) {
		datePart = s[:idx]
	}
	if m := numericTriple.FindStringSubmatch(datePart); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		year := expandYear(m[3])

		us := civil.Date{Year: year, Month: time.Month(a), Day: b}
		if a >= 1 && a <= 12 && us.IsValid() {
			return us, nil
		}
		intl := civil.Date{Year: year, Month: time.Month(b), Day: a}
		if b >= 1 && b <= 12 && intl.IsValid() {
			return intl, nil
		}
		return civil.Date{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, raw)
	}

	normalized := strings.Join(strings.Fields(s), " ")
	for _, layout := range textualLayouts {
		// time.Parse matches month names case-insensitively ("05 JAN 2024").
		if t, err := time.Parse(layout, normalized); err == nil {
			return civil.DateOf(t), nil
		}
	}

	return civil.Date{}, fmt.Errorf("%w: %q", domain.ErrInvalidDate, raw)
}

func expandYear(raw string) int {
	year, _ := strconv.Atoi(raw)
	if len(raw) == 2 {
		if year < 70 {
			return 2000 + year
		}
		return 1900 + year
	}
	return year
}

// FormatISO renders d as YYYY-MM-DD.
func FormatISO(d civil.Date) string {
	return d.String()
}
