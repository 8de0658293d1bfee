package qr

import (
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// PNG renders the content as a QR code image.
func PNG(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}

// AssetName derives a blob name for a code's QR image. The timestamp
// suffix keeps re-uploads of the same code from colliding.
func AssetName(code string) string {
	return fmt.Sprintf("qr-%s-%d", code, time.Now().UnixNano())
}
