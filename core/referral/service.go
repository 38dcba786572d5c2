package referral

import (
	"context"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/aurorarobotics/aurora/core"
)

const (
	suffixLen      = 4
	maxCodeRetries = 5
)

var (
	// errors
	ErrNotFound   = errors.New("referral link not found")
	ErrCodeExists = errors.New("a referral link with this code already exists")
)

type (
	Repository interface {
		QueryLinks(ctx context.Context, ordering []core.DBOrdering) ([]Link, error)
		GetLinkByID(ctx context.Context, id string) (Link, error)
		GetLinkByCode(ctx context.Context, code string) (Link, error)
		CreateLink(ctx context.Context, link Link) (Link, error)
		UpdateLink(ctx context.Context, link Link) (Link, error)
		DeleteLink(ctx context.Context, id string) error
		IncrementClicks(ctx context.Context, code string) error
		IncrementRegistrations(ctx context.Context, code string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkCode(ctx context.Context, code string) error {
	_, err := svc.repo.GetLinkByCode(ctx, code)
	switch errors.Cause(err) {
	case nil:
		return core.NewFieldError("code", ErrCodeExists)
	case ErrNotFound:
		return nil
	default:
		return errors.Wrap(err, "checking code")
	}
}

// randomSuffix returns suffixLen random base-36 chars.
func randomSuffix() string {
	id := uuid.New()
	n := binary.BigEndian.Uint32(id[:4])
	s := strconv.FormatUint(uint64(n), 36)
	s = strings.Repeat("0", suffixLen) + s
	return s[len(s)-suffixLen:]
}

// generateCode derives a code from the owner's first name, e.g. "ada-k3x9".
func (svc *Service) generateCode(ctx context.Context, ownerName string) (string, error) {
	base := "ref"
	if fields := strings.Fields(ownerName); len(fields) > 0 {
		if s := core.Slugify(fields[0]); s != "" {
			base = s
		}
	}
	if len(base) > 20 {
		base = base[:20]
	}

	for i := 0; i < maxCodeRetries; i++ {
		code := base + "-" + randomSuffix()
		_, err := svc.repo.GetLinkByCode(ctx, code)
		if errors.Cause(err) == ErrNotFound {
			return code, nil
		}
		if err != nil {
			return "", errors.Wrap(err, "checking code")
		}
	}
	return "", errors.New("could not generate a unique referral code")
}

func (svc *Service) Create(ctx context.Context, nl NewLink) (Link, error) {
	code := nl.Code
	if code == "" {
		var err error
		if code, err = svc.generateCode(ctx, nl.OwnerName); err != nil {
			return Link{}, err
		}
	}
	link := Link{
		ID:         uuid.New().String(),
		Code:       code,
		OwnerName:  nl.OwnerName,
		OwnerEmail: nl.OwnerEmail,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateLink(ctx, link)
}

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Link, error) {
	return svc.repo.QueryLinks(ctx, ordering)
}

func (svc *Service) Get(ctx context.Context, id string) (Link, error) {
	return svc.repo.GetLinkByID(ctx, id)
}

func (svc *Service) SetActive(ctx context.Context, id string, active bool) (Link, error) {
	link, err := svc.repo.GetLinkByID(ctx, id)
	if err != nil {
		return Link{}, err
	}
	link.IsActive = active
	return svc.repo.UpdateLink(ctx, link)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteLink(ctx, id)
}

// TrackClick counts a visit of an active link. Unknown and inactive links are ErrNotFound.
func (svc *Service) TrackClick(ctx context.Context, code string) (Link, error) {
	link, err := svc.repo.GetLinkByCode(ctx, core.CleanString(code, true /* lower */))
	if err != nil {
		return Link{}, err
	}
	if !link.IsActive {
		return Link{}, ErrNotFound
	}
	if err = svc.repo.IncrementClicks(ctx, link.Code); err != nil {
		return Link{}, errors.Wrap(err, "incrementing clicks")
	}
	link.Clicks++
	return link, nil
}

func (svc *Service) IsActive(ctx context.Context, code string) (bool, error) {
	link, err := svc.repo.GetLinkByCode(ctx, core.CleanString(code, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return link.IsActive, nil
}

// RecordConversion counts a paid registration for the link.
func (svc *Service) RecordConversion(ctx context.Context, code string) error {
	return svc.repo.IncrementRegistrations(ctx, core.CleanString(code, true /* lower */))
}
