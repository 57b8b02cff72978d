package utils

import (
	"bytes"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// SellerQRCode renders the seller id as a size x size PNG QR code.
func SellerQRCode(sellerID string, size int) ([]byte, error) {
	code, err := qr.Encode(sellerID, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}

	code, err = barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, code); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
