// Package id mints the identifiers handed out for jobs, runs and HTTP requests.
package id

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

// Kind prefixes an identifier so job, run and request IDs never collide.
type Kind string

const (
	Job     Kind = "job"
	Run     Kind = "run"
	Request Kind = "req"
)

// New returns "<kind>-<unix seconds>-<8 hex digits>", e.g.
// run-1701432000-a1b2c3d4. The random part is omitted if the system
// entropy source fails.
func New(k Kind) string {
	head := string(k) + "-" + strconv.FormatInt(time.Now().Unix(), 10)
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		return head
	}
	return head + "-" + hex.EncodeToString(suffix[:])
}
