package gateway

import (
	"io"

	"github.com/mdp/qrterminal/v3"
)

// RenderPairingToken draws the pairing payload as a terminal QR code so the
// operator can scan it from the phone.
func RenderPairingToken(w io.Writer, code string) {
	qrterminal.GenerateWithConfig(code, qrterminal.Config{
		Level:     qrterminal.L,
		Writer:    w,
		BlackChar: qrterminal.BLACK,
		WhiteChar: qrterminal.WHITE,
		QuietZone: 1,
	})
}
