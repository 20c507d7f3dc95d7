package game

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

const nonceSize = 32

// Commitment is a hiding, binding commitment to a move: the hex SHA-256 of
// "MOVE:nonce".
func Commitment(move Move, nonce string) string {
	sum := sha256.Sum256([]byte(string(move) + ":" + nonce))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether commitment opens to move and nonce.
func Verify(move Move, nonce, commitment string) bool {
	want := Commitment(move, nonce)
	return subtle.ConstantTimeCompare([]byte(want), []byte(commitment)) == 1
}

func newNonce(r io.Reader) (string, error) {
	b := make([]byte, nonceSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func randomMove(r io.Reader) (Move, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", fmt.Errorf("read move: %w", err)
	}
	if b[0]&1 == 0 {
		return Cooperate, nil
	}
	return Defect, nil
}

var defaultRand io.Reader = rand.Reader
