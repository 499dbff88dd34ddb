package assets

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/skip2/go-qrcode"
)

// QREncoder turns arbitrary text into an encoded image payload.
type QREncoder interface {
	Encode(data string) ([]byte, error)
}

// WebPQREncoder renders QR codes as lossless WebP images.
type WebPQREncoder struct {
	Level        qrcode.RecoveryLevel
	ModulePixels int
}

// NewWebPQREncoder returns an encoder for the named recovery level
// ("low", "medium", "high", "highest").
func NewWebPQREncoder(level string, modulePixels int) (*WebPQREncoder, error) {
	var lvl qrcode.RecoveryLevel
	switch strings.ToLower(level) {
	case "low":
		lvl = qrcode.Low
	case "", "medium":
		lvl = qrcode.Medium
	case "high":
		lvl = qrcode.High
	case "highest":
		lvl = qrcode.Highest
	default:
		return nil, fmt.Errorf("assets: unknown QR recovery level %q", level)
	}
	if modulePixels <= 0 {
		return nil, fmt.Errorf("assets: QR module size must be positive, got %d", modulePixels)
	}
	return &WebPQREncoder{Level: lvl, ModulePixels: modulePixels}, nil
}

// Encode implements QREncoder.
func (e *WebPQREncoder) Encode(data string) ([]byte, error) {
	q, err := qrcode.New(data, e.Level)
	if err != nil {
		return nil, fmt.Errorf("assets: build QR matrix: %w", err)
	}
	// A negative size is interpreted by go-qrcode as pixels per module.
	img := q.Image(-e.ModulePixels)

	var buf bytes.Buffer
	if err := nativewebp.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("assets: encode QR as webp: %w", err)
	}
	return buf.Bytes(), nil
}
