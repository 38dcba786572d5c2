package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/aurorarobotics/aurora/core/cert"
	"github.com/aurorarobotics/aurora/core/student"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	return t, errors.Wrapf(err, "invalid date %q, want YYYY-MM-DD", s)
}

func (cli *commandLine) importStudentsCmd() *cobra.Command {
	var opts student.ImportOptions
	var issuedAt string

	cmd := &cobra.Command{
		Use:   "import-students FILE",
		Short: "Import students from a CSV or XLSX file",
		Long: `Import students from a CSV or XLSX file. Existing students (same email) are updated
and certificate codes are issued to those without one.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usage(cmd)
			}
			var err error
			if opts.IssuedAt, err = parseDate(issuedAt); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return errors.Wrap(err, "opening file")
			}
			defer f.Close()

			res, err := cli.studentSvc.Import(cmd.Context(), filepath.Base(args[0]), f, opts)
			if err != nil {
				return err
			}
			cli.printf("created: %d, updated: %d, skipped: %d\n", res.Created, res.Updated, res.Skipped)
			for _, rowErr := range res.Errors {
				cli.printf("  row %d: %s\n", rowErr.Row, rowErr.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Cohort, "cohort", "", "cohort of the rows without one")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "certificate code prefix (defaults to the configured one)")
	cmd.Flags().StringVar(&issuedAt, "issued-at", "", "certificate issue date, YYYY-MM-DD (defaults to today)")
	return cmd
}

func (cli *commandLine) certCodeCmd() *cobra.Command {
	in := cert.CodeInput{Seq: 1}
	var date string

	cmd := &cobra.Command{
		Use:   "certcode",
		Short: "Print the certificate code for the given fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in.FullName == "" {
				return usage(cmd)
			}
			issued, err := parseDate(date)
			if err != nil {
				return err
			}
			if issued.IsZero() {
				issued = time.Now()
			}
			in.IssuedAt = issued
			if in.Prefix == "" && cli.conf != nil {
				in.Prefix = cli.conf.CertPrefix
			}
			cli.printf("%s\n", cert.GenerateCode(in))
			return nil
		},
	}
	cmd.Flags().StringVar(&in.FullName, "name", "", "the student's full name")
	cmd.Flags().StringVar(&in.Cohort, "cohort", "", "the cohort")
	cmd.Flags().StringVar(&in.Prefix, "prefix", "", "code prefix (defaults to the configured one)")
	cmd.Flags().StringVar(&date, "date", "", "issue date, YYYY-MM-DD (defaults to today)")
	cmd.Flags().IntVar(&in.Seq, "seq", 1, "sequence number, 1 to 999")
	return cmd
}
