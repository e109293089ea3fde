// Package panel serves a QR code operators scan to open the gateway status
// page on a phone at the machine.
package panel

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length in pixels.
const DefaultSize = 256

// Service generates QR codes for a fixed target URL
type Service struct {
	target string
}

// NewService creates a QR service for target
func NewService(target string) *Service {
	return &Service{target: target}
}

// Target returns the URL encoded in the QR code
func (s *Service) Target() string {
	return s.target
}

// PNG renders the target as a QR code image of size pixels
func (s *Service) PNG(size int) ([]byte, error) {
	if s.target == "" {
		return nil, fmt.Errorf("no public URL configured")
	}
	qr, err := qrcode.New(s.target, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %v", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PNG: %v", err)
	}
	return png, nil
}

// DataURL renders the target as a base64 PNG data URL
func (s *Service) DataURL(size int) (string, error) {
	png, err := s.PNG(size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
