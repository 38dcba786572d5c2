package inmemdb

import (
	"strings"
	"sync"

	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/mailer"
	"github.com/aurorarobotics/aurora/core/media"
	"github.com/aurorarobotics/aurora/core/payment"
	"github.com/aurorarobotics/aurora/core/referral"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
)

type (
	// DB is an in-memory stand-in for the Postgres database, used by tests.
	DB struct {
		user     *userTable
		content  *contentTables
		student  *studentTable
		payment  *paymentTables
		referral *referralTable
		mailer   *mailerTables
		media    *mediaTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	contentTables struct {
		sync.RWMutex
		pages     map[string]*content.Page
		sections  map[string]*content.Section
		blocks    map[string]*content.Block
		published map[string]*content.PublishedPage // by page id
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	paymentTables struct {
		sync.RWMutex
		registrations map[string]*payment.Registration
		payments      map[string]*payment.Payment // by reference
	}

	referralTable struct {
		sync.RWMutex
		table map[string]*referral.Link
	}

	mailerTables struct {
		sync.RWMutex
		templates map[string]*mailer.Template // by key
		logs      []mailer.Log
	}

	mediaTable struct {
		sync.RWMutex
		table map[string]*media.Item
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		content: &contentTables{
			pages:     make(map[string]*content.Page),
			sections:  make(map[string]*content.Section),
			blocks:    make(map[string]*content.Block),
			published: make(map[string]*content.PublishedPage),
		},
		student: &studentTable{table: make(map[string]*student.Student)},
		payment: &paymentTables{
			registrations: make(map[string]*payment.Registration),
			payments:      make(map[string]*payment.Payment),
		},
		referral: &referralTable{table: make(map[string]*referral.Link)},
		mailer:   &mailerTables{templates: make(map[string]*mailer.Template)},
		media:    &mediaTable{table: make(map[string]*media.Item)},
	}
}

func containsFold(s, substr string) bool {
	return substr == "" || strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
