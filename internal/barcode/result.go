package barcode

import (
	"fmt"
	"time"
)

// ErrorKind classifies the outcome of a decode.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindEmptyInput
	KindExpired
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindEmptyInput:
		return "empty_input"
	case KindExpired:
		return "expired"
	case KindMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

func (k ErrorKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Format is the layout a barcode was decoded with.
type Format string

const (
	FormatPLU          Format = "plu"
	FormatWeight       Format = "weight"
	FormatWeightAmount Format = "weight_amount"
	FormatExpiry       Format = "expiry"
)

// Translator resolves a localization key to display text.
type Translator interface {
	Text(key string) string
}

// Result is the outcome of a single decode. Pointer fields are nil when
// the layout does not carry them or decoding failed.
type Result struct {
	Format      Format     `json:"format,omitempty"`
	ProductCode *int64     `json:"product_code,omitempty"`
	Weight      *float64   `json:"weight,omitempty"`
	Amount      *float64   `json:"amount,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
	Kind        ErrorKind  `json:"error_kind"`
	Detail      string     `json:"detail,omitempty"`
}

// OK reports a successful decode.
func (r Result) OK() bool { return r.Kind == KindNone }

// MessageKey is the localization key describing r.Kind, or "" on success.
func (r Result) MessageKey() string {
	switch r.Kind {
	case KindEmptyInput:
		return KeyEmptyBarcode
	case KindExpired:
		return KeyExpiredProduct
	case KindMalformed:
		return KeyInvalidBarcode
	default:
		return ""
	}
}

// Message renders the error message through t. Malformed results carry
// the underlying reason after the localized text.
func (r Result) Message(t Translator) string {
	key := r.MessageKey()
	if key == "" {
		return ""
	}
	msg := key
	if t != nil {
		msg = t.Text(key)
	}
	if r.Kind == KindMalformed && r.Detail != "" {
		msg += ": " + r.Detail
	}
	return msg
}

// Err converts r.Kind into an error matching one of the package sentinels.
func (r Result) Err() error {
	switch r.Kind {
	case KindEmptyInput:
		return ErrEmptyInput
	case KindExpired:
		return ErrExpired
	case KindMalformed:
		if r.Detail == "" {
			return ErrMalformed
		}
		return fmt.Errorf("%w: %s", ErrMalformed, r.Detail)
	default:
		return nil
	}
}
