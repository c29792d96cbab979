package notify

import qrcode "github.com/skip2/go-qrcode"

// QRSize is the rendered QR edge length in pixels.
const QRSize = 300

// RenderQR encodes the token string into a PNG. High error correction
// keeps codes scannable from printed invites and phone screens.
func RenderQR(token string) ([]byte, error) {
	return qrcode.Encode(token, qrcode.High, QRSize)
}
