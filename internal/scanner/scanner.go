// Package scanner reads the printed barcode out of a picture so camera
// terminals and uploads can feed the same checkout path as a hand scanner.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	_ "golang.org/x/image/bmp"
)

// DefaultMaxSide bounds the longer image side before decoding.
const DefaultMaxSide = 1600

var (
	ErrNoBarcode = errors.New("no barcode found")
	ErrBadImage  = errors.New("unsupported or corrupt image")
)

// Result is the decoded barcode text and the symbology it was read as.
type Result struct {
	Text   string `json:"text"`
	Format string `json:"format"`
}

type Scanner struct {
	maxSide int
}

type Option func(*Scanner)

func WithMaxSide(px int) Option {
	return func(s *Scanner) {
		if px > 0 {
			s.maxSide = px
		}
	}
}

func New(opts ...Option) *Scanner {
	s := &Scanner{maxSide: DefaultMaxSide}
	for _, o := range opts {
		o(s)
	}
	return s
}

// readers are built per call; gozxing readers keep scratch state.
func readers() []gozxing.Reader {
	return []gozxing.Reader{
		oned.NewCode128Reader(),
		oned.NewEAN13Reader(),
		oned.NewITFReader(),
	}
}

// Decode looks for a Code 128, EAN-13 or ITF barcode, upright first and
// then turned a quarter.
func (s *Scanner) Decode(ctx context.Context, img image.Image) (Result, error) {
	if img == nil || img.Bounds().Empty() {
		return Result{}, ErrBadImage
	}
	gray := imaging.Grayscale(s.bound(img))

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER: true,
	}
	for _, candidate := range []image.Image{gray, imaging.Rotate90(gray)} {
		bmp, err := gozxing.NewBinaryBitmapFromImage(candidate)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrBadImage, err)
		}
		for _, r := range readers() {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			res, err := r.Decode(bmp, hints)
			if err != nil {
				continue
			}
			return Result{Text: res.GetText(), Format: res.GetBarcodeFormat().String()}, nil
		}
	}
	return Result{}, ErrNoBarcode
}

// DecodeReader decodes a PNG, JPEG, GIF or BMP stream and scans it. EXIF
// orientation from phone cameras is applied first.
func (s *Scanner) DecodeReader(ctx context.Context, r io.Reader) (Result, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return s.Decode(ctx, img)
}

func (s *Scanner) bound(img image.Image) image.Image {
	b := img.Bounds()
	if b.Dx() <= s.maxSide && b.Dy() <= s.maxSide {
		return img
	}
	return imaging.Fit(img, s.maxSide, s.maxSide, imaging.Lanczos)
}
