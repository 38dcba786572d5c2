package student

import (
	"context"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/aurorarobotics/aurora/core"
)

const utf8BOM = "\uFEFF"

// columns holds the index of each detected column, -1 when absent.
type columns struct {
	email, fullName, firstName, lastName, cohort, phone int
}

// detectColumns maps header cells to student fields with case-insensitive substring matches.
func detectColumns(header []string) (columns, error) {
	cols := columns{email: -1, fullName: -1, firstName: -1, lastName: -1, cohort: -1, phone: -1}
	var names []int

	for i, cell := range header {
		h := strings.ToLower(strings.TrimSpace(cell))
		switch {
		case h == "":
		case strings.Contains(h, "email"):
			if cols.email < 0 {
				cols.email = i
			}
		case strings.Contains(h, "first"):
			if cols.firstName < 0 {
				cols.firstName = i
			}
		case strings.Contains(h, "last") || strings.Contains(h, "surname"):
			if cols.lastName < 0 {
				cols.lastName = i
			}
		case strings.Contains(h, "cohort") || strings.Contains(h, "class"):
			if cols.cohort < 0 {
				cols.cohort = i
			}
		case strings.Contains(h, "phone") || strings.Contains(h, "mobile"):
			if cols.phone < 0 {
				cols.phone = i
			}
		case strings.Contains(h, "name"):
			names = append(names, i)
		}
	}

	// prefer a header like "Full name" over a bare "Name"
	for _, i := range names {
		if strings.Contains(strings.ToLower(header[i]), "full") {
			cols.fullName = i
			break
		}
	}
	if cols.fullName < 0 && len(names) > 0 {
		cols.fullName = names[0]
	}

	if cols.email < 0 {
		return cols, ErrNoEmailColumn
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(row[idx]), `"`))
}

func (cols columns) student(row []string) SaveStudent {
	ss := SaveStudent{
		Email:  cell(row, cols.email),
		Cohort: cell(row, cols.cohort),
		Phone:  cell(row, cols.phone),
	}
	if cols.fullName >= 0 {
		ss.FullName = cell(row, cols.fullName)
	}
	if ss.FullName == "" {
		ss.FullName = strings.TrimSpace(cell(row, cols.firstName) + " " + cell(row, cols.lastName))
	}
	ss.Clean()
	return ss
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// readRows reads every row of a .csv file or of the first sheet of a .xlsx file.
func readRows(filename string, r io.Reader) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		cr.LazyQuotes = true
		cr.TrimLeadingSpace = true
		rows, err := cr.ReadAll()
		if err != nil {
			return nil, errors.Wrap(err, "reading csv")
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			rows[0][0] = strings.TrimPrefix(rows[0][0], utf8BOM)
		}
		return rows, nil
	case ".xlsx":
		f, err := excelize.OpenReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "opening xlsx")
		}
		defer func() { _ = f.Close() }()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptyFile
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, errors.Wrap(err, "reading xlsx rows")
		}
		return rows, nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Import creates or updates students from a spreadsheet. Rows are processed one by one:
// a bad row is reported in ImportResult.Errors and never aborts the import.
func (svc *Service) Import(ctx context.Context, filename string, r io.Reader, opts ImportOptions) (ImportResult, error) {
	rows, err := readRows(filename, r)
	if err != nil {
		return ImportResult{}, err
	}
	if len(rows) == 0 {
		return ImportResult{}, ErrEmptyFile
	}
	cols, err := detectColumns(rows[0])
	if err != nil {
		return ImportResult{}, err
	}

	prefix := svc.prefix
	if p := core.CleanString(opts.Prefix); p != "" {
		prefix = p
	}
	var issuedAt *time.Time
	if !opts.IssuedAt.IsZero() {
		issuedAt = &opts.IssuedAt
	}
	defaultCohort := core.CleanString(opts.Cohort)

	res := ImportResult{Errors: []RowError{}}
	skip := func(rowNum int, msg string) {
		res.Skipped++
		res.Errors = append(res.Errors, RowError{Row: rowNum, Error: msg})
	}

	for i, row := range rows[1:] {
		rowNum := i + 2
		if err = ctx.Err(); err != nil {
			return res, err
		}
		if isBlank(row) {
			continue
		}

		ss := cols.student(row)
		if ss.Email == "" {
			skip(rowNum, "missing email")
			continue
		}
		if err = svc.validate.Var(ss.Email, "email"); err != nil {
			skip(rowNum, "invalid email: "+ss.Email)
			continue
		}
		if ss.Cohort == "" {
			ss.Cohort = defaultCohort
		}
		ss.IssuedAt = issuedAt

		_, created, err := svc.upsert(ctx, ss, prefix)
		if err != nil {
			svc.logger.Error("importing student row", err, map[string]interface{}{"row": rowNum, "file": filename})
			skip(rowNum, "could not save student")
			continue
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	svc.logger.Info("students imported", map[string]interface{}{
		"file": filename, "created": res.Created, "updated": res.Updated, "skipped": res.Skipped,
	})
	return res, nil
}
