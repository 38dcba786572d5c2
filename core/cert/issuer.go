package cert

import (
	"context"

	"github.com/pkg/errors"
)

// MaxAttempts bounds the number of candidate codes tried by Issuer.Issue.
const MaxAttempts = 20

// Checker reports whether a certificate code is already taken.
type Checker interface {
	CertCodeExists(ctx context.Context, code string) (bool, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, code string) (bool, error)

func (f CheckerFunc) CertCodeExists(ctx context.Context, code string) (bool, error) {
	return f(ctx, code)
}

type Issuer struct {
	checker Checker
}

func NewIssuer(checker Checker) *Issuer {
	return &Issuer{checker: checker}
}

// Issue returns the first code not known to the checker, bumping the sequence on each collision.
// After MaxAttempts collisions, or once the sequence passes 999 (the last distinct code), the
// last computed code is returned anyway. The check is not atomic with the caller's insert.
func (iss *Issuer) Issue(ctx context.Context, in CodeInput) (string, error) {
	if in.Seq < minSeq {
		in.Seq = minSeq
	}

	var code string
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code = GenerateCode(in)
		exists, err := iss.checker.CertCodeExists(ctx, code)
		if err != nil {
			return "", errors.Wrap(err, "checking certificate code")
		}
		if !exists || in.Seq >= maxSeq {
			return code, nil
		}
		in.Seq++
	}
	return code, nil
}
