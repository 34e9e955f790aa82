// Package id generates identifiers for objects that live outside the
// relational store, such as snapshot files.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// fileSafeAlphabet avoids '-' and '_' so generated tokens can be embedded in
// dash-separated file names and still be split back out.
const fileSafeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// Token returns a lowercase alphanumeric token of the given length.
func Token(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}
	tok, err := gonanoid.Generate(fileSafeAlphabet, size)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return tok, nil
}
