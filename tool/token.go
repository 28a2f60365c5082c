package tool

import "fmt"

const (
	tokenHashModulo     = 9973
	tokenHashMultiplier = 31
)

// FourDigitToken turns the raw connection auth token into the four digit
// string both devices display for manual comparison.
func FourDigitToken(raw []byte) string {
	hash := 0
	multiplier := 1
	for _, b := range raw {
		hash = (hash + int(int8(b))*multiplier) % tokenHashModulo
		multiplier = (multiplier * tokenHashMultiplier) % tokenHashModulo
	}
	if hash < 0 {
		hash = -hash
	}
	return fmt.Sprintf("%04d", hash)
}
