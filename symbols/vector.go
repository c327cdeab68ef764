package symbols

import (
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// vectorDims is the length of a name vector.
const vectorDims = 256

// nameVector hashes the character trigrams of an identifier into a unit
// vector, so names that share spelling end up close under cosine distance.
// Camel-case and snake-case boundaries are folded so "loadConfig" and
// "load_config" produce the same vector.
func nameVector(name string) []float32 {
	v := make([]float32, vectorDims)
	s := "^" + foldName(name) + "$"
	rs := []rune(s)
	for i := 0; i+3 <= len(rs); i++ {
		h := fnv.New32a()
		h.Write([]byte(string(rs[i : i+3])))
		sum := h.Sum32()
		sign := float32(1)
		if sum&1 == 1 {
			sign = -1
		}
		v[(sum>>1)%vectorDims] += sign
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		v[0] = 1
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

// foldName lower-cases name and drops word separators.
func foldName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || r == '-' {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// similarity is the cosine similarity of two unit vectors.
func similarity(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}
