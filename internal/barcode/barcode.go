// Package barcode decodes the numeric codes printed by in-store scales and
// read by the terminal's scanner.
//
// Codes are told apart by their length in characters only:
//
//	13 digits  weight code          [2 header][5 PLU][5 grams][1 trailer]
//	18 digits  weight+amount code   13-digit layout + [5 amount in cents][1]
//	30 digits  expiry code          18-digit layout (amount in 1/1000) + [12 YYMMDDhhmmss][1]
//	other      plain PLU            the whole input is the lookup code
//
// Decoding never fails with an error value; every outcome is reported
// through Result.Kind so the caller decides how to present it.
package barcode

import (
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// Barcode lengths that select a layout.
const (
	LenWeight       = 13
	LenWeightAmount = 18
	LenExpiry       = 30
)

// DefaultWindow is the maximum age of an expiry code's timestamp.
const DefaultWindow = 10 * time.Second

// Localization keys for the error kinds.
const (
	KeyEmptyBarcode   = "empty_barcode"
	KeyExpiredProduct = "expired_product"
	KeyInvalidBarcode = "invalid_barcode"
)

var (
	ErrEmptyInput = errors.New("empty barcode")
	ErrExpired    = errors.New("product expired")
	ErrMalformed  = errors.New("malformed barcode")
)

type field struct {
	name       string
	start, end int
}

var (
	pluField    = field{"plu", 2, 7}
	weightField = field{"weight", 7, 12}
	amountField = field{"amount", 12, 17}
	stampField  = field{"timestamp", 17, 29}
)

// Decoder decodes barcodes against a clock. The zero value is not usable;
// build one with New.
type Decoder struct {
	now    func() time.Time
	window time.Duration
	loc    *time.Location
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithClock replaces the wall clock used by the expiry check.
func WithClock(now func() time.Time) Option {
	return func(d *Decoder) {
		if now != nil {
			d.now = now
		}
	}
}

// WithWindow overrides DefaultWindow.
func WithWindow(w time.Duration) Option {
	return func(d *Decoder) {
		if w > 0 {
			d.window = w
		}
	}
}

// WithLocation sets the time zone the scale printed its timestamp in.
func WithLocation(loc *time.Location) Option {
	return func(d *Decoder) {
		if loc != nil {
			d.loc = loc
		}
	}
}

func New(opts ...Option) *Decoder {
	d := &Decoder{now: time.Now, window: DefaultWindow, loc: time.Local}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Window reports the freshness window in use.
func (d *Decoder) Window() time.Duration { return d.window }

var std = New()

// Decode decodes input with the wall clock and DefaultWindow.
func Decode(input string) Result { return std.Decode(input) }

// Decode classifies input by its length in characters and extracts its
// fields. Field offsets count characters, not bytes.
func (d *Decoder) Decode(input string) Result {
	if input == "" {
		return Result{Kind: KindEmptyInput}
	}

	var (
		res Result
		err error
	)
	code := []rune(input)
	switch len(code) {
	case LenWeight:
		res, err = decodeWeight(code)
	case LenWeightAmount:
		res, err = decodeWeightAmount(code)
	case LenExpiry:
		res, err = d.decodeExpiry(code)
	default:
		res, err = decodePLU(input)
	}
	if err != nil {
		return Result{Format: res.Format, Kind: KindMalformed, Detail: err.Error()}
	}
	return res
}

func decodeWeight(code []rune) (Result, error) {
	res := Result{Format: FormatWeight}
	plu, err := fieldInt(code, pluField)
	if err != nil {
		return res, err
	}
	grams, err := fieldInt(code, weightField)
	if err != nil {
		return res, err
	}
	res.ProductCode = &plu
	res.Weight = ptr(float64(grams) / 1000)
	return res, nil
}

func decodeWeightAmount(code []rune) (Result, error) {
	res, err := decodeWeight(code)
	res.Format = FormatWeightAmount
	if err != nil {
		return res, err
	}
	cents, err := fieldInt(code, amountField)
	if err != nil {
		return Result{Format: res.Format}, err
	}
	res.Amount = ptr(float64(cents) / 100)
	return res, nil
}

func (d *Decoder) decodeExpiry(code []rune) (Result, error) {
	res, err := decodeWeight(code)
	res.Format = FormatExpiry
	if err != nil {
		return res, err
	}
	// the expiry layout carries the amount in thousandths, not cents
	milli, err := fieldInt(code, amountField)
	if err != nil {
		return Result{Format: res.Format}, err
	}
	stamp, err := parseStamp(code[stampField.start:stampField.end], d.loc)
	if err != nil {
		return Result{Format: res.Format}, fmt.Errorf("%s [%d:%d]: %w", stampField.name, stampField.start, stampField.end, err)
	}
	res.Amount = ptr(float64(milli) / 1000)
	res.Timestamp = &stamp
	if d.now().Sub(stamp) > d.window {
		res.Kind = KindExpired
	}
	return res, nil
}

func decodePLU(s string) (Result, error) {
	res := Result{Format: FormatPLU}
	plu, err := parseDigits(s)
	if err != nil {
		return res, fmt.Errorf("plu: %w", err)
	}
	res.ProductCode = &plu
	res.Weight = ptr(1.0)
	return res, nil
}

func fieldInt(code []rune, f field) (int64, error) {
	n, err := parseDigits(string(code[f.start:f.end]))
	if err != nil {
		return 0, fmt.Errorf("%s [%d:%d]: %w", f.name, f.start, f.end, err)
	}
	return n, nil
}

// parseDigits accepts ASCII digits only: no sign, spaces or separators.
// Offsets in errors count characters.
func parseDigits(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("no digits")
	}
	for i, b := 0, 0; b < len(s); i++ {
		r, size := utf8.DecodeRuneInString(s[b:])
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid character %q at offset %d", r, i)
		}
		b += size
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			return 0, fmt.Errorf("%q: %w", s, numErr.Err)
		}
		return 0, err
	}
	return n, nil
}

// parseStamp reads YYMMDDhhmmss with the year counted from 2000.
func parseStamp(s []rune, loc *time.Location) (time.Time, error) {
	var p [6]int
	for i := range p {
		n, err := parseDigits(string(s[2*i : 2*i+2]))
		if err != nil {
			return time.Time{}, err
		}
		p[i] = int(n)
	}
	year, month, day := 2000+p[0], time.Month(p[1]), p[2]
	hour, minute, sec := p[3], p[4], p[5]

	switch {
	case month < time.January || month > time.December:
		return time.Time{}, fmt.Errorf("month %d out of range", p[1])
	case day < 1 || day > daysIn(year, month):
		return time.Time{}, fmt.Errorf("day %d out of range for %d-%02d", day, year, month)
	case hour > 23:
		return time.Time{}, fmt.Errorf("hour %d out of range", hour)
	case minute > 59:
		return time.Time{}, fmt.Errorf("minute %d out of range", minute)
	case sec > 59:
		return time.Time{}, fmt.Errorf("second %d out of range", sec)
	}
	return time.Date(year, month, day, hour, minute, sec, 0, loc), nil
}

func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func ptr[T any](v T) *T { return &v }
