package cert

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeRegex = regexp.MustCompile(`^[A-Z0-9]+-[A-Z0-9-]+-[A-Z]{3}-\d{4}-\d{3}-[0-9A-Z]{2}$`)

func baseInput() CodeInput {
	return CodeInput{
		Prefix:   "AURORA",
		Cohort:   "CORE2",
		FullName: "Jane Doe",
		IssuedAt: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Seq:      1,
	}
}

func TestGenerateCode(t *testing.T) {
	code := GenerateCode(baseInput())
	assert.True(t, strings.HasPrefix(code, "AURORA-CORE2-JAN-2603-001-"), code)
	assert.Regexp(t, codeRegex, code)
	assert.Equal(t, code, GenerateCode(baseInput()), "must be deterministic")
}

func TestGenerateCode_sanitizing(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)

	tests := []struct {
		name       string
		mutate     func(in *CodeInput)
		wantPrefix string // without checksum
	}{
		{name: "short name padded", mutate: func(in *CodeInput) { in.FullName = "Al" }, wantPrefix: "AURORA-CORE2-ALX-2603-001-"},
		{name: "no letters in name", mutate: func(in *CodeInput) { in.FullName = "123" }, wantPrefix: "AURORA-CORE2-XXX-2603-001-"},
		{name: "name punctuation stripped", mutate: func(in *CodeInput) { in.FullName = "o'Neil" }, wantPrefix: "AURORA-CORE2-ONE-2603-001-"},
		{name: "seq zero", mutate: func(in *CodeInput) { in.Seq = 0 }, wantPrefix: "AURORA-CORE2-JAN-2603-001-"},
		{name: "seq negative", mutate: func(in *CodeInput) { in.Seq = -5 }, wantPrefix: "AURORA-CORE2-JAN-2603-001-"},
		{name: "seq over max", mutate: func(in *CodeInput) { in.Seq = 1000 }, wantPrefix: "AURORA-CORE2-JAN-2603-999-"},
		{name: "seq padded", mutate: func(in *CodeInput) { in.Seq = 42 }, wantPrefix: "AURORA-CORE2-JAN-2603-042-"},
		{name: "prefix non-letters stripped", mutate: func(in *CodeInput) { in.Prefix = "au-r0ra!" }, wantPrefix: "AURRA-CORE2-JAN-2603-001-"},
		{name: "empty prefix", mutate: func(in *CodeInput) { in.Prefix = " 42 " }, wantPrefix: "AURORA-CORE2-JAN-2603-001-"},
		{name: "cohort lowered & spaced", mutate: func(in *CodeInput) { in.Cohort = "summer camp-2" }, wantPrefix: "AURORA-SUMMERCAMP-2-JAN-2603-001-"},
		{name: "empty cohort", mutate: func(in *CodeInput) { in.Cohort = "" }, wantPrefix: "AURORA-GEN-JAN-2603-001-"},
		{name: "utc month", mutate: func(in *CodeInput) {
			in.IssuedAt = time.Date(2026, 1, 1, 0, 30, 0, 0, lagos) // 2025-12-31T23:30Z
		}, wantPrefix: "AURORA-CORE2-JAN-2512-001-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := baseInput()
			tt.mutate(&in)
			code := GenerateCode(in)
			assert.True(t, strings.HasPrefix(code, tt.wantPrefix), "got %s; want prefix %s", code, tt.wantPrefix)
			assert.Regexp(t, codeRegex, code)
			assert.True(t, VerifyChecksum(code), code)
		})
	}
}

func TestGenerateCode_checksumSensitivity(t *testing.T) {
	base := GenerateCode(baseInput())
	baseChk := base[len(base)-2:]

	perturbations := []func(in *CodeInput){
		func(in *CodeInput) { in.Prefix = "ROBO" },
		func(in *CodeInput) { in.Cohort = "CORE3" },
		func(in *CodeInput) { in.FullName = "John" },
		func(in *CodeInput) { in.IssuedAt = in.IssuedAt.AddDate(0, 1, 0) },
		func(in *CodeInput) { in.Seq = 2 },
		func(in *CodeInput) { in.Seq = 3 },
	}
	var changed int
	for _, perturb := range perturbations {
		in := baseInput()
		perturb(&in)
		code := GenerateCode(in)
		if code[len(code)-2:] != baseChk {
			changed++
		}
	}
	assert.Greater(t, changed, 0, "no perturbation changed the checksum")
}

func TestParseCode(t *testing.T) {
	code := GenerateCode(CodeInput{Prefix: "AURORA", Cohort: "SUMMER-26", FullName: "Ada", IssuedAt: baseInput().IssuedAt, Seq: 7})

	p, err := ParseCode(strings.ToLower(code))
	require.NoError(t, err)
	assert.Equal(t, "AURORA", p.Prefix)
	assert.Equal(t, "SUMMER-26", p.Cohort)
	assert.Equal(t, "ADA", p.Name)
	assert.Equal(t, "2603", p.YYMM)
	assert.Equal(t, 7, p.Seq)
	assert.Len(t, p.Checksum, 2)

	for _, bad := range []string{
		"",
		"AURORA-JAN-2603-001-AB",
		"AURORA-CORE2-JA-2603-001-AB",
		"AURORA-CORE2-JAN-26O3-001-AB",
		"AURORA-CORE2-JAN-2603-01-AB",
		"AURORA-CORE2-JAN-2603-001-ABC",
		"AUR0RA-CORE2-JAN-2603-001-AB",
		"AURORA-CO_RE-JAN-2603-001-AB",
	} {
		_, err := ParseCode(bad)
		assert.ErrorIs(t, err, ErrMalformedCode, bad)
	}
}

func TestVerifyChecksum(t *testing.T) {
	code := GenerateCode(baseInput())
	assert.True(t, VerifyChecksum(code))
	assert.True(t, VerifyChecksum(" "+strings.ToLower(code)+" "))

	// typo in the name segment
	typo := strings.Replace(code, "-JAN-", "-JAM-", 1)
	if checksum("AURORA", "CORE2", "JAM", "2603", "001") != code[len(code)-2:] {
		assert.False(t, VerifyChecksum(typo))
	}
	assert.False(t, VerifyChecksum("not-a-code"))
}
