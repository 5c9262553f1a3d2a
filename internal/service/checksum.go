package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// URLChecksum возвращает SHA-256 от байт URL в нижнем регистре hex (64 символа).
func URLChecksum(fileURL string) string {
	sum := sha256.Sum256([]byte(fileURL))
	return hex.EncodeToString(sum[:])
}
