package seed

import "github.com/tphakala/itemstore/internal/errors"

var errSheetsDisabled = errors.Newf("the sheet backend is disabled; set sheets.enabled or use --table").
	Component("seed").
	Category(errors.CategoryConfiguration).
	Build()
