package game

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet excludes 0, 1, I, L, and O, which are easy to misread when
// a code is shouted across a room or copied from someone's screen.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const defaultCodeAttempts = 10

// RandomCode returns a random room code of length n drawn uniformly from
// the code alphabet. Uniqueness is the allocator's problem, not this
// function's.
func RandomCode(n int) string {
	// Rejection sampling keeps the distribution uniform; bytes above max
	// would favor the start of the alphabet under plain modulo.
	const max = byte(255 - (256 % len(codeAlphabet)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// CodeAllocator hands out room codes that are unused according to the
// taken callback, retrying a bounded number of times before giving up
// with ErrNoFreeCode.
type CodeAllocator struct {
	length   int
	attempts int
	taken    func(code string) (bool, error)
}

// NewCodeAllocator returns an allocator producing codes of the given
// length. taken reports whether a candidate code is already in use and may
// return a storage error, which aborts the allocation immediately.
func NewCodeAllocator(length int, taken func(code string) (bool, error)) *CodeAllocator {
	return &CodeAllocator{
		length:   length,
		attempts: defaultCodeAttempts,
		taken:    taken,
	}
}

// Allocate returns an unused room code.
func (a *CodeAllocator) Allocate() (string, error) {
	for attempt := 0; attempt < a.attempts; attempt++ {
		code := RandomCode(a.length)

		inUse, err := a.taken(code)
		if err != nil {
			return "", err
		}
		if !inUse {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", ErrNoFreeCode, a.attempts)
}
