package common

import (
	"encoding/hex"
	"fmt"
)

//EncodeToString returns the UPPERCASE hex representation of hexBytes
func EncodeToString(hexBytes []byte) string {
	return fmt.Sprintf("%X", hexBytes)
}

//DecodeFromString converts an uppercase hex string to a byte slice
func DecodeFromString(hexString string) ([]byte, error) {
	return hex.DecodeString(hexString)
}
