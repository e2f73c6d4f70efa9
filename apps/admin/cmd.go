package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/gopimeda/elearning/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc user.ServiceInterface
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  adduser -name NAME -username USERNAME -email EMAIL [-admin] [-instructor] - create or update a user")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  list -resource NAME -token TOKEN [-url URL] [-search TERM] [-filter FIELD=VALUE] [-sort FIELD] [-desc] [-page N] [-limit N] - list a collection")
	fmt.Fprintln(cli.out, "  export -resource NAME -token TOKEN [-url URL] [-search TERM] [-filter FIELD=VALUE] - download a collection as CSV")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "adduser":
		cmd := flag.NewFlagSet("adduser", flag.ExitOnError)
		name := cmd.String("name", "", "The user's full name.")
		uname := cmd.String("username", "", "The user's username.")
		email := cmd.String("email", "", "The user's email.")
		admin := cmd.Bool("admin", false, "Grant all roles.")
		instructor := cmd.Bool("instructor", false, "Grant the instructor role.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *name == "" || *uname == "" || *email == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(cmd)
		if err != nil {
			return err
		}
		roles := user.StudentRoles
		if *admin {
			roles = user.AllRoles
		} else if *instructor {
			roles = user.InstructorRoles
		}
		return cli.addUser(*name, *uname, *email, pwd, roles)

	case "resetpassword":
		cmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
		uname := cmd.String("username", "", "The user's username or email. The password will be prompted next.")
		if err := cmd.Parse(args[2:]); err != nil {
			return err
		}
		if *uname == "" {
			cmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword(cmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*uname, pwd)

	case "list":
		return cli.runListCmd(args[2:], false)
	case "export":
		return cli.runListCmd(args[2:], true)

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
