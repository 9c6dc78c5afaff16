package main

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	first, err := generate()
	require.NoError(t, err)
	second, err := generate()
	require.NoError(t, err)

	b, err := hex.DecodeString(first)
	require.NoError(t, err, "secret has to be hex encoded")
	require.Len(t, b, SecretKeyBytesLen)
	require.NotEqual(t, first, second, "secrets must be random")
}
