package jwtutil

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// Sha256Hex is the at-rest form of a refresh token, so a database dump
// never exposes a usable credential.
func Sha256Hex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func NewJTI() string {
	return uuid.NewString()
}
