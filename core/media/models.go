package media

import (
	"time"

	"github.com/aurorarobotics/aurora/core"
)

// Item is an uploaded file available to the page builder.
type Item struct {
	ID          string    `json:"id"`
	ObjectKey   string    `json:"object_key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

type QueryFilter struct {
	Search      string `query:"search"`
	ContentType string `query:"content_type"` // prefix, e.g. "image/"
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.ContentType = core.CleanString(qf.ContentType, true /* lower */)
}
