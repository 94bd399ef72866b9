// Package qr renders issuance deep links as PNG QR codes.
package qr

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"

	vcerrors "github.com/YannMSFT/VID-Issuing-Tool/pkg/errors"
)

// DefaultSize is the rendered image width and height in pixels.
const DefaultSize = 300

const dataURIPrefix = "data:image/png;base64,"

// PNG encodes content as a QR code image of size x size pixels.
func PNG(content string, size int) ([]byte, error) {
	if content == "" {
		return nil, vcerrors.NewInvalidArgumentError("cannot encode an empty QR payload", nil)
	}
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, vcerrors.NewInternalError("failed to encode QR code", err)
	}
	return png, nil
}

// DataURI returns content as an inline PNG data URI suitable for an img src.
func DataURI(content string) (string, error) {
	png, err := PNG(content, DefaultSize)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}
