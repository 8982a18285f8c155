package vouchers

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// look-alike characters (0/O, 1/I) are left out so codes survive being read aloud
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	DefaultPrefix  = "WIFI"
	codeRandLength = 8
	MaxBatch       = 1000
)

// GenerateCode returns PREFIX-XXXXXXXX.
func GenerateCode(prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}

	buf := make([]byte, codeRandLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	out := make([]byte, codeRandLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + "-" + string(out), nil
}

// GenerateCodes returns count distinct codes.
func GenerateCodes(prefix string, count int) ([]string, error) {
	if count <= 0 || count > MaxBatch {
		return nil, fmt.Errorf("count must be between 1 and %d", MaxBatch)
	}

	seen := make(map[string]struct{}, count)
	codes := make([]string, 0, count)
	for len(codes) < count {
		code, err := GenerateCode(prefix)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes, nil
}

// NormalizeCodes trims, upper-cases and de-duplicates pasted codes, dropping blanks.
func NormalizeCodes(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
