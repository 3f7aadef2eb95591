package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"freshpos/internal/barcode"
	"freshpos/internal/domain"
	"freshpos/internal/i18n"
	applog "freshpos/internal/log"
	"freshpos/internal/metrics"
)

var (
	ErrNothingToPay    = errors.New("nothing to pay")
	ErrUnknownLanguage = i18n.ErrUnknownLanguage
)

// Scan outcomes, also used as metric labels.
const (
	OutcomeAdded     = "added"
	OutcomeEmpty     = "empty_input"
	OutcomeMalformed = "malformed"
	OutcomeNotFound  = "not_found"
	OutcomeExpired   = "expired"
)

// ScanError is a rejected scan. Message is already localized for the
// terminal that scanned.
type ScanError struct {
	Outcome string
	Message string
	Result  barcode.Result
	Err     error
}

func (e *ScanError) Error() string { return e.Message }
func (e *ScanError) Unwrap() error { return e.Err }

type TerminalView struct {
	Lines        []domain.Line   `json:"lines"`
	Total        decimal.Decimal `json:"total"`
	TotalText    string          `json:"total_text"`
	Language     string          `json:"language"`
	LanguageName string          `json:"language_name"`
}

type Receipt struct {
	Ref       string          `json:"ref"`
	Items     int             `json:"items"`
	Total     decimal.Decimal `json:"total"`
	TotalText string          `json:"total_text"`
	PaidAt    time.Time       `json:"paid_at"`
}

type TerminalService struct {
	Catalog *CatalogService
	Decoder *barcode.Decoder
	Locales *i18n.Catalog
	Now     func() time.Time

	defaultLang string
	negotiate   bool
	sessions    *sessionStore
}

// NewTerminalService builds the checkout service. An empty defaultLang lets
// new terminals pick their language from Accept-Language; an unknown one
// falls back to the first locale table.
func NewTerminalService(cat *CatalogService, dec *barcode.Decoder, locales *i18n.Catalog, defaultLang string) *TerminalService {
	s := &TerminalService{
		Catalog:     cat,
		Decoder:     dec,
		Locales:     locales,
		Now:         time.Now,
		defaultLang: defaultLang,
		sessions:    newSessionStore(),
	}
	if defaultLang == "" {
		s.negotiate = true
	}
	if !locales.Has(defaultLang) {
		s.defaultLang = locales.DefaultCode()
	}
	return s
}

// Open makes sure sid has a terminal. acceptLanguage only matters for a
// new terminal.
func (s *TerminalService) Open(sid, acceptLanguage string) {
	lang := s.defaultLang
	if s.negotiate && acceptLanguage != "" {
		lang = s.Locales.Match(acceptLanguage)
	}
	s.sessions.with(sid, lang, s.Now(), func(*terminal) {})
	metrics.SetActiveSessions(s.sessions.size())
}

// Language returns the terminal's language code.
func (s *TerminalService) Language(sid string) string {
	if t, ok := s.sessions.snapshot(sid); ok {
		return t.lang
	}
	return s.defaultLang
}

func (s *TerminalService) Translator(sid string) i18n.Translator {
	return s.Locales.Translator(s.Language(sid))
}

// Decode runs the decoder without touching any terminal.
func (s *TerminalService) Decode(code string) barcode.Result {
	return s.Decoder.Decode(code)
}

// Scan decodes code and puts the product on top of the terminal's list.
// Rejections come back as *ScanError; anything else is an internal error.
func (s *TerminalService) Scan(sid, code string) (domain.Line, error) {
	res := s.Decoder.Decode(code)
	tr := s.Translator(sid)

	switch res.Kind {
	case barcode.KindEmptyInput:
		return domain.Line{}, s.reject(sid, OutcomeEmpty, res.Message(tr), res)
	case barcode.KindMalformed:
		return domain.Line{}, s.reject(sid, OutcomeMalformed, res.Message(tr), res)
	}

	plu := *res.ProductCode
	p, err := s.Catalog.Lookup(plu)
	if errors.Is(err, ErrProductNotFound) {
		msg := fmt.Sprintf("%s (%d)", tr.Text(i18n.KeyProductNotFound), plu)
		return domain.Line{}, s.rejectErr(sid, OutcomeNotFound, msg, res, err)
	}
	if err != nil {
		return domain.Line{}, fmt.Errorf("lookup %d: %w", plu, err)
	}
	// freshness is judged only once the product is known
	if res.Kind == barcode.KindExpired {
		return domain.Line{}, s.reject(sid, OutcomeExpired, res.Message(tr), res)
	}

	line := priceLine(p, res, code)
	s.sessions.with(sid, s.defaultLang, s.Now(), func(t *terminal) {
		t.lines = append([]domain.Line{line}, t.lines...)
		t.notice = ""
	})
	metrics.RecordScan(OutcomeAdded, string(res.Format))
	metrics.SetActiveSessions(s.sessions.size())
	return line, nil
}

func (s *TerminalService) reject(sid, outcome, msg string, res barcode.Result) error {
	return s.rejectErr(sid, outcome, msg, res, res.Err())
}

func (s *TerminalService) rejectErr(sid, outcome, msg string, res barcode.Result, err error) error {
	s.sessions.with(sid, s.defaultLang, s.Now(), func(t *terminal) { t.notice = msg })
	metrics.RecordScan(outcome, string(res.Format))
	return &ScanError{Outcome: outcome, Message: msg, Result: res, Err: err}
}

// priceLine prices one scan: quantity is the encoded weight (1 when the
// layout has none) and an encoded amount overrides unit price times
// quantity.
func priceLine(p domain.Product, res barcode.Result, code string) domain.Line {
	qty := decimal.NewFromInt(1)
	if res.Weight != nil {
		qty = decimal.NewFromFloat(*res.Weight)
	}
	unit := p.UnitPrice()
	subtotal := unit.Mul(qty)
	if res.Amount != nil {
		subtotal = decimal.NewFromFloat(*res.Amount)
	}
	return domain.Line{
		PLU:       p.PLU,
		Name:      p.Name,
		Unit:      p.Unit,
		UnitPrice: unit,
		Quantity:  qty,
		Subtotal:  subtotal.Round(2),
		Barcode:   strings.Clone(code),
	}
}

func sum(lines []domain.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

func (s *TerminalService) View(sid string) TerminalView {
	t, ok := s.sessions.snapshot(sid)
	if !ok {
		t = terminal{lang: s.defaultLang}
	}
	tr := s.Locales.Translator(t.lang)
	total := sum(t.lines)
	lines := t.lines
	if lines == nil {
		lines = []domain.Line{}
	}
	return TerminalView{
		Lines:        lines,
		Total:        total,
		TotalText:    tr.Text(i18n.KeyPaymentPrefix) + tr.Money(total),
		Language:     tr.Code(),
		LanguageName: tr.Name(),
	}
}

// TakeNotice returns the last rejected scan's message once.
func (s *TerminalService) TakeNotice(sid string) string {
	var msg string
	if _, ok := s.sessions.snapshot(sid); !ok {
		return ""
	}
	s.sessions.with(sid, s.defaultLang, s.Now(), func(t *terminal) {
		msg, t.notice = t.notice, ""
	})
	return msg
}

// ConfirmPayment settles and clears the terminal's list.
func (s *TerminalService) ConfirmPayment(sid string) (Receipt, error) {
	var lines []domain.Line
	var lang string
	now := s.Now()
	s.sessions.with(sid, s.defaultLang, now, func(t *terminal) {
		lines, t.lines = t.lines, nil
		lang = t.lang
		t.notice = ""
		if len(lines) == 0 {
			t.notice = s.Locales.Text(lang, i18n.KeyNothingToPay)
		}
	})
	if len(lines) == 0 {
		return Receipt{}, ErrNothingToPay
	}
	total := sum(lines)
	tr := s.Locales.Translator(lang)
	f, _ := total.Float64()
	metrics.RecordPayment(len(lines), f)
	return Receipt{
		Ref:       uuid.NewString(),
		Items:     len(lines),
		Total:     total,
		TotalText: tr.Text(i18n.KeyPaymentPrefix) + tr.Money(total),
		PaidAt:    now,
	}, nil
}

// SetLanguage switches by display name ("English") or by code ("en_US").
func (s *TerminalService) SetLanguage(sid, name string) error {
	code := name
	if !s.Locales.Has(code) {
		var err error
		if code, err = s.Locales.CodeByName(name); err != nil {
			return err
		}
	}
	s.sessions.with(sid, code, s.Now(), func(t *terminal) { t.lang = code })
	return nil
}

// Close forgets the terminal.
func (s *TerminalService) Close(sid string) {
	s.sessions.drop(sid)
	metrics.SetActiveSessions(s.sessions.size())
}

// Sweep drops terminals idle for longer than maxIdle.
func (s *TerminalService) Sweep(maxIdle time.Duration) int {
	removed, left := s.sessions.sweep(s.Now().Add(-maxIdle))
	metrics.SetActiveSessions(left)
	return removed
}

// RunJanitor sweeps idle terminals every interval until ctx is done.
func (s *TerminalService) RunJanitor(ctx context.Context, every, maxIdle time.Duration) {
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := s.Sweep(maxIdle); n > 0 {
				applog.Info(nil, "terminal.sweep", map[string]any{"removed": n})
			}
		}
	}
}
