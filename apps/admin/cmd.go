package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aurorarobotics/aurora/core"
	"github.com/aurorarobotics/aurora/core/content"
	"github.com/aurorarobotics/aurora/core/student"
	"github.com/aurorarobotics/aurora/core/user"
	"github.com/aurorarobotics/aurora/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword     // mockable
	gooseRunFunc     = database.RunMigration // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf       *core.Config
	db         *sql.DB
	validate   *validator.Validate
	translator ut.Translator
	usrSvc     *user.Service
	studentSvc *student.Service
	contentSvc *content.Service
	out        io.Writer
}

func (cli *commandLine) printf(format string, a ...interface{}) {
	_, _ = fmt.Fprintf(cli.out, format, a...)
}

// usage prints the usage of cmd and returns errHelp.
func usage(cmd *cobra.Command) error {
	_ = cmd.Usage()
	return errHelp
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Aurora administration commands",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return usage(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.importStudentsCmd(),
		cli.certCodeCmd(),
		cli.seedPagesCmd(),
	)
	return root
}

// run executes the command line args, args[0] being the program name.
func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	root := cli.rootCmd()
	if len(args) > 1 {
		root.SetArgs(args[1:])
	} else {
		root.SetArgs([]string{})
	}
	return cli.translate(root.Execute())
}

// translate turns validation errors into readable "field: message" lines.
func (cli *commandLine) translate(err error) error {
	var verrs validator.ValidationErrors
	if err == nil || cli.translator == nil || !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, verr := range verrs {
		msgs = append(msgs, verr.Field()+": "+verr.Translate(cli.translator))
	}
	return errors.New(strings.Join(msgs, "\n"))
}

// promptPassword reads a password from the terminal without echoing it.
func (cli *commandLine) promptPassword(label string) (string, error) {
	cli.printf("%s: ", label)
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	cli.printf("\n")
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
