package token

import (
	"errors"
	"testing"
)

// FuzzDecode exercises the payload decoder with arbitrary strings.
// Goal: no panics; every failure is ErrMalformed and counts as expired.
func FuzzDecode(f *testing.F) {
	f.Add("")
	f.Add("h.e.s")
	f.Add("eyJhbGciOiJIUzI1NiJ9.eyJleHAiOjE3MDAwMDAwMDB9.sig")
	f.Add("a.eyJ1c2VySWQiOlsxXX0")
	f.Add("...")
	f.Add("x.bnVsbA.y")
	f.Add("x.WzFd.y")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := Decode(input)
		if err != nil {
			if !errors.Is(err, ErrMalformed) {
				t.Fatalf("unexpected error class: %v", err)
			}
			if claims != nil {
				t.Fatalf("claims returned alongside error")
			}
			if !IsExpired(input) {
				t.Fatalf("undecodable input must count as expired")
			}
		}
	})
}
