// Package appfs embeds the files the binaries need at runtime:
// SQL migrations, email templates, default pages and the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* pages.yaml common-passwords.txt
var FS embed.FS
