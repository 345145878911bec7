package orders

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// QRLength is 6 random hex characters plus the color and duplex digits.
const QRLength = 8

// Identity is the QR code and blob key of a new order.
type Identity struct {
	QRCode   string
	FileName string
}

// Mint draws 3 bytes from rand for the QR prefix. The two trailing digits
// tell the kiosk operator the print mode: 1 is color/duplex, 0 is mono/single.
// The millisecond suffix keeps file names unique even if two QR codes collide.
func Mint(rand io.Reader, now time.Time, isColor, isDuplex bool) (Identity, error) {
	var b [3]byte
	if _, err := io.ReadFull(rand, b[:]); err != nil {
		return Identity{}, fmt.Errorf("read random bytes: %w", err)
	}
	qr := strings.ToUpper(hex.EncodeToString(b[:])) + flag(isColor) + flag(isDuplex)
	return Identity{
		QRCode:   qr,
		FileName: fmt.Sprintf("%s_%d.pdf", qr, now.UnixMilli()),
	}, nil
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
