package codegen

import "crypto/rand"

const (
	// Prefix identifies gift voucher codes across the site and emails.
	Prefix = "ALPACA"

	// alphabet drops the visually ambiguous 0, O, I and 1 so codes
	// survive being read over the phone or typed from a printed PDF.
	alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	codeLen = 6
)

// New returns a fresh voucher code of the form ALPACA-XXXXXX.
// It makes no uniqueness guarantee; the persistence layer checks for
// collisions and the caller regenerates on a duplicate.
func New() string {
	b := make([]byte, codeLen)
	// rand.Read never fails as of Go 1.24.
	_, _ = rand.Read(b)
	for i, c := range b {
		// len(alphabet) is 32, which divides 256, so the modulo
		// keeps the draw uniform.
		b[i] = alphabet[int(c)%len(alphabet)]
	}
	return Prefix + "-" + string(b)
}
