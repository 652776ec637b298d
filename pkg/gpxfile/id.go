package gpxfile

import (
	"math/rand"
	"time"
)

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewID returns a short unique route identifier: six base62 digits of the
// millisecond timestamp followed by four random characters. Uniqueness
// only has to hold for the lifetime of one server process, so collision
// odds at this length are negligible.
func NewID() string {
	const timeLength = 6
	const randLength = 4

	timestamp := uint64(time.Now().UnixNano() / 1e6)
	base := uint64(len(base62Chars))

	buf := make([]byte, 0, timeLength+randLength)
	for timestamp > 0 && len(buf) < timeLength {
		buf = append([]byte{base62Chars[timestamp%base]}, buf...)
		timestamp /= base
	}
	for len(buf) < timeLength+randLength {
		buf = append(buf, base62Chars[rand.Intn(len(base62Chars))])
	}
	return string(buf)
}
