package log

import (
	"io"
	"os"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(New(os.Stdout, zapcore.InfoLevel))
}

// New builds a JSON logger writing to w.
func New(w io.Writer, level zapcore.Level) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core)
}

// Setup replaces the process logger. When file is non-empty entries go to
// stdout and the file; a file that cannot be opened is reported and skipped.
func Setup(file, level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	var w io.Writer = os.Stdout
	var openErr error
	if file != "" {
		f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			openErr = err
		} else {
			w = io.MultiWriter(os.Stdout, f)
		}
	}
	l := New(w, lvl)
	Use(l)
	if openErr != nil {
		l.Warn("log.file.open", zap.String("file", file), zap.Error(openErr))
	}
	return l, openErr
}

// Use installs l as the process logger and returns the previous one.
func Use(l *zap.Logger) *zap.Logger { return logger.Swap(l) }

// L returns the process logger.
func L() *zap.Logger { return logger.Load() }

func write(level zapcore.Level, c *fiber.Ctx, action string, err error, fields map[string]any) {
	l := L()
	ce := l.Check(level, action)
	if ce == nil {
		return
	}
	zf := make([]zap.Field, 0, 8)
	zf = append(zf, zap.String("action", action))
	// no status: handlers log before they pick one; the access log has it
	if c != nil {
		zf = append(zf,
			zap.String("ip", c.IP()),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
		)
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			zf = append(zf, zap.String("req_id", rid))
		}
	}
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	if len(fields) > 0 {
		zf = append(zf, zap.Any("fields", fields))
	}
	ce.Write(zf...)
}

func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.InfoLevel, c, action, nil, fields)
}

// Audit records a state change the shop may need to reconstruct later
// (payments, catalog edits).
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["audit"] = true
	write(zapcore.InfoLevel, c, action, nil, fields)
}

func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(zapcore.WarnLevel, c, action, nil, fields)
}

func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(zapcore.ErrorLevel, c, action, err, fields)
}
