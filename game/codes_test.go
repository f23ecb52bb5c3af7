package game

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomCode(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code := RandomCode(length)
		assert.Len(t, code, length)
		for _, r := range code {
			assert.Contains(t, codeAlphabet, string(r))
		}
	}
}

func TestCodeAlphabetSkipsConfusables(t *testing.T) {
	for _, r := range "01ILO" {
		assert.NotContains(t, codeAlphabet, string(r))
	}
}

func TestAllocateReturnsFreeCode(t *testing.T) {
	a := NewCodeAllocator(4, func(string) (bool, error) {
		return false, nil
	})

	code, err := a.Allocate()
	require.NoError(t, err)
	assert.Len(t, code, 4)
}

func TestAllocateRetriesCollisions(t *testing.T) {
	seen := 0
	a := NewCodeAllocator(4, func(string) (bool, error) {
		seen++
		return seen < 3, nil
	})

	code, err := a.Allocate()
	require.NoError(t, err)
	assert.Len(t, code, 4)
	assert.Equal(t, 3, seen)
}

func TestAllocateGivesUpWhenSpaceIsFull(t *testing.T) {
	tries := 0
	a := NewCodeAllocator(4, func(string) (bool, error) {
		tries++
		return true, nil
	})

	_, err := a.Allocate()
	assert.ErrorIs(t, err, ErrNoFreeCode)
	assert.Equal(t, defaultCodeAttempts, tries)
}

func TestAllocatePropagatesLookupErrors(t *testing.T) {
	boom := fmt.Errorf("%w: redis: connection refused", ErrStorage)
	a := NewCodeAllocator(4, func(string) (bool, error) {
		return false, boom
	})

	_, err := a.Allocate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStorage))
	assert.False(t, errors.Is(err, ErrNoFreeCode), "a lookup failure is not exhaustion")
}

func TestRandomCodeVaries(t *testing.T) {
	codes := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		codes[RandomCode(8)] = struct{}{}
	}
	// 31^8 possibilities make a repeat across 32 draws vanishingly unlikely.
	assert.Greater(t, len(codes), 30)

	var sb strings.Builder
	for code := range codes {
		sb.WriteString(code)
	}
	for _, r := range sb.String() {
		assert.Contains(t, codeAlphabet, string(r))
	}
}
