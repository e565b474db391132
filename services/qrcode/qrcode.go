// Package qrsvc renders payment links as QR code images.
package qrsvc

import (
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 256

type Generator struct {
	size int
}

func NewGenerator() *Generator {
	return &Generator{size: defaultSize}
}

// Encode returns content as a PNG QR code.
func (g *Generator) Encode(content string) ([]byte, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, g.size)
	if err != nil {
		return nil, errors.Wrap(err, "encoding QR code")
	}
	return png, nil
}
