package similarity

import (
	"hash/fnv"
	"strings"
)

// Tokenize splits normalized text into lowercased words.
// Whitespace is the only separator; punctuation handling belongs to the
// upstream normalization step.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	for i, f := range fields {
		fields[i] = strings.ToLower(f)
	}
	return fields
}

// ShingleHashes returns the FNV-1a 64 hash of every contiguous word
// n-gram of length size. Returns nil when the text has fewer than size
// words; callers must treat that as the degenerate too-short case.
func ShingleHashes(words []string, size int) []uint64 {
	if size <= 0 || len(words) < size {
		return nil
	}
	hashes := make([]uint64, 0, len(words)-size+1)
	for i := 0; i+size <= len(words); i++ {
		h := fnv.New64a()
		for j, w := range words[i : i+size] {
			if j > 0 {
				h.Write([]byte{' '})
			}
			h.Write([]byte(w))
		}
		hashes = append(hashes, h.Sum64())
	}
	return hashes
}
