// Package cert generates and checks certificate codes of the form
// PREFIX-COHORT-NAM-YYMM-SEQ-CHK, e.g. AURORA-CORE2-JAN-2603-001-7K.
package cert

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultPrefix = "AURORA"
	DefaultCohort = "GEN"

	minSeq = 1
	maxSeq = 999

	checksumSpace = 36 * 36
)

var ErrMalformedCode = errors.New("malformed certificate code")

// CodeInput holds the business fields a certificate code is derived from.
type CodeInput struct {
	Prefix   string
	Cohort   string
	FullName string
	IssuedAt time.Time
	Seq      int
}

// Parts are the segments of a certificate code.
type Parts struct {
	Prefix   string
	Cohort   string
	Name     string
	YYMM     string
	Seq      int
	Checksum string
}

// GenerateCode maps in to a deterministic certificate code. Inputs are sanitized, never rejected.
func GenerateCode(in CodeInput) string {
	prefix := keepASCII(strings.ToUpper(in.Prefix), false)
	if prefix == "" {
		prefix = DefaultPrefix
	}

	cohort := keepASCII(strings.ToUpper(in.Cohort), true)
	if cohort == "" {
		cohort = DefaultCohort
	}

	name := keepASCII(strings.ToUpper(in.FullName), false)
	if len(name) > 3 {
		name = name[:3]
	}
	name += strings.Repeat("X", 3-len(name))

	issued := in.IssuedAt.UTC()
	yymm := fmt.Sprintf("%02d%02d", issued.Year()%100, int(issued.Month()))

	seq := in.Seq
	if seq < minSeq {
		seq = minSeq
	} else if seq > maxSeq {
		seq = maxSeq
	}
	seqStr := fmt.Sprintf("%03d", seq)

	chk := checksum(prefix, cohort, name, yymm, seqStr)
	return strings.Join([]string{prefix, cohort, name, yymm, seqStr, chk}, "-")
}

// ParseCode splits a code into its segments. The checksum is not verified.
func ParseCode(code string) (Parts, error) {
	segs := strings.Split(strings.ToUpper(strings.TrimSpace(code)), "-")
	if len(segs) < 6 {
		return Parts{}, ErrMalformedCode
	}
	n := len(segs)
	p := Parts{
		Prefix:   segs[0],
		Cohort:   strings.Join(segs[1:n-4], "-"),
		Name:     segs[n-4],
		YYMM:     segs[n-3],
		Checksum: segs[n-1],
	}
	if p.Prefix == "" || keepASCII(p.Prefix, false) != p.Prefix ||
		p.Cohort == "" || keepASCII(p.Cohort, true) != p.Cohort ||
		len(p.Name) != 3 || keepASCII(p.Name, false) != p.Name ||
		len(p.YYMM) != 4 || !allDigits(p.YYMM) ||
		len(segs[n-2]) != 3 || !allDigits(segs[n-2]) ||
		len(p.Checksum) != 2 {
		return Parts{}, ErrMalformedCode
	}
	seq, _ := strconv.Atoi(segs[n-2])
	p.Seq = seq
	return p, nil
}

// VerifyChecksum reports whether code is well formed and its checksum matches its segments.
func VerifyChecksum(code string) bool {
	p, err := ParseCode(code)
	if err != nil {
		return false
	}
	return checksum(p.Prefix, p.Cohort, p.Name, p.YYMM, fmt.Sprintf("%03d", p.Seq)) == p.Checksum
}

func checksum(prefix, cohort, name, yymm, seq string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prefix + "|" + cohort + "|" + name + "|" + yymm + "|" + seq))
	s := strings.ToUpper(strconv.FormatUint(uint64(h.Sum32()%checksumSpace), 36))
	if len(s) < 2 {
		s = "0" + s
	}
	return s
}

// keepASCII keeps A-Z, plus 0-9 and dashes when alnum is set. s must be upper-cased.
func keepASCII(s string, alnum bool) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case alnum && ((r >= '0' && r <= '9') || r == '-'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
