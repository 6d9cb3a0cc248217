package app

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"
)

// VerificationCodes hands out SKILL-<COURSE_ID>-<SUFFIX> codes. The suffix is
// a millisecond token that never repeats inside one generator (it runs ahead
// of the clock when issuing faster than once per millisecond) followed by a
// per-generator node tag so two instances issuing in the same millisecond
// still differ.
type VerificationCodes struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
	node string
}

func NewVerificationCodes(now func() time.Time) *VerificationCodes {
	if now == nil {
		now = time.Now
	}
	return &VerificationCodes{now: now, node: randomNode()}
}

// Next returns a fresh code for courseID.
func (v *VerificationCodes) Next(courseID string) string {
	token := v.nextToken()
	suffix := strings.ToUpper(strconv.FormatInt(token, 36)) + v.node
	return "SKILL-" + strings.ToUpper(courseID) + "-" + suffix
}

func (v *VerificationCodes) nextToken() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	ms := v.now().UnixMilli()
	if ms <= v.last {
		ms = v.last + 1
	}
	v.last = ms
	return ms
}

const nodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

func randomNode() string {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(nodeAlphabet))))
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(nodeAlphabet[n.Int64()])
	}
	return b.String()
}
