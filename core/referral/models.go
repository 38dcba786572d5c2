package referral

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aurorarobotics/aurora/core"
)

// Link is a referral link shared as `<api>/r/<code>`.
type Link struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	OwnerName     string    `json:"owner_name"`
	OwnerEmail    string    `json:"owner_email"`
	Clicks        int       `json:"clicks"`
	Registrations int       `json:"registrations"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"` // UTC
}

type NewLink struct {
	Code       string `json:"code" validate:"omitempty,slug,max=50"`
	OwnerName  string `json:"owner_name" validate:"notblank,max=200"`
	OwnerEmail string `json:"owner_email" validate:"omitempty,email,max=254"`
}

func (nl *NewLink) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	nl.Code = core.Slugify(nl.Code)
	nl.OwnerName = core.CleanString(nl.OwnerName)
	nl.OwnerEmail = core.CleanString(nl.OwnerEmail, true /* lower */)
	if err := validate.Struct(nl); err != nil {
		return err
	}
	if nl.Code == "" {
		return nil
	}
	return svc.checkCode(ctx, nl.Code)
}

type SetActive struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
