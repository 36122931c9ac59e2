package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("converting: %w", NewError(CodeWriteFailed, "write input.png", errors.New("disk full")))

	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.NotErrorIs(t, err, ErrReadFailed)

	code, ok := CodeOf(err)
	assert.True(t, ok)
	assert.Equal(t, CodeWriteFailed, code)
}

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(CodeEngineInitFailed, "load engine", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "EngineInitFailed: load engine: boom", err.Error())
}

func TestUnsupportedMessage(t *testing.T) {
	err := Unsupported(PDF, TXT, ReasonUnimplemented)
	assert.Equal(t, "UnsupportedConversion: cannot convert pdf to txt (unimplemented)", err.Error())
	assert.Equal(t, PDF, err.From)
	assert.Equal(t, TXT, err.To)

	assert.Contains(t, Unsupported("", PNG, ReasonImpossible).Error(), "unknown to png")
}

func TestConversionFailedCarriesDiagnostic(t *testing.T) {
	err := ConversionFailed("execute", "Invalid data found when processing input\n", nil)
	assert.Equal(t, "ConversionFailed: execute: Invalid data found when processing input", err.Error())
}

func TestTooLarge(t *testing.T) {
	err := TooLarge(15<<20, 10<<20)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Contains(t, err.Error(), "15728640 bytes exceeds the 10485760 byte limit")
}
