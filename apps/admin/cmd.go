package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/classroom"
	"github.com/trezcool/darasa/core/profile"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db          *sqlx.DB
	conf        *core.Config
	validate    *validator.Validate
	profileRepo profile.Repository
	profileSvc  *profile.Service
	classSvc    *classroom.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  provision -user USER_ID -role ROLE [-email EMAIL] [-name NAME] [-phone PHONE] - provision an account profile")
	fmt.Println("  createclassroom -name NAME -code JOIN_CODE - create a classroom")
	fmt.Println("  addmember -classroom CLASSROOM_ID -user USER_ID - add a member directly")
	fmt.Println("  whoami - resolve the account behind a session token (prompted)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	provisionCmd := flag.NewFlagSet("provision", flag.ExitOnError)
	provisionUser := provisionCmd.String("user", "", "The account's user ID (from the auth backend).")
	provisionRole := provisionCmd.String("role", "", "One of: admin, teacher, student.")
	provisionEmail := provisionCmd.String("email", "", "The account's email address.")
	provisionName := provisionCmd.String("name", "", "The account's display name.")
	provisionPhone := provisionCmd.String("phone", "", "The account's phone number.")

	createClassroomCmd := flag.NewFlagSet("createclassroom", flag.ExitOnError)
	classroomName := createClassroomCmd.String("name", "", "The classroom's display name.")
	classroomCode := createClassroomCmd.String("code", "", "The classroom's join code.")

	addMemberCmd := flag.NewFlagSet("addmember", flag.ExitOnError)
	memberClassroom := addMemberCmd.String("classroom", "", "The classroom's ID.")
	memberUser := addMemberCmd.String("user", "", "The member's user ID.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "provision":
		if err := provisionCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *provisionUser == "" || *provisionRole == "" {
			provisionCmd.Usage()
			return errHelp
		}
		return cli.provision(*provisionUser, *provisionRole, *provisionEmail, *provisionName, *provisionPhone)
	case "createclassroom":
		if err := createClassroomCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *classroomName == "" || *classroomCode == "" {
			createClassroomCmd.Usage()
			return errHelp
		}
		return cli.createClassroom(*classroomName, *classroomCode)
	case "addmember":
		if err := addMemberCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *memberClassroom == "" || *memberUser == "" {
			addMemberCmd.Usage()
			return errHelp
		}
		return cli.addMember(*memberClassroom, *memberUser)
	case "whoami":
		fmt.Print("Enter session token:")
		token, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(token) == 0 {
			return errHelp
		}
		return cli.whoami(string(token))
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) provision(userID, role, email, name, phone string) error {
	np := profile.NewProfile{
		UserID: userID,
		Role:   core.CleanString(role, true),
		Email:  core.CleanString(email, true),
		Name:   core.CleanString(name),
		Phone:  core.CleanString(phone),
	}
	if err := cli.validate.Struct(&np); err != nil {
		return err
	}

	prof, err := cli.profileSvc.Create(context.Background(), np)
	if err != nil {
		return err
	}
	fmt.Printf("profile provisioned for user %s (%s)\n", prof.UserID, prof.Role)
	return nil
}

func (cli *commandLine) createClassroom(name, code string) error {
	nc := classroom.NewClassroom{Name: name, JoinCode: code}
	if err := nc.Validate(cli.validate); err != nil {
		return err
	}

	room, err := cli.classSvc.Create(context.Background(), nc)
	if err != nil {
		return err
	}
	fmt.Printf("classroom %q created; join code: %s\n", room.Name, room.JoinCode)
	return nil
}

func (cli *commandLine) addMember(classroomID, userID string) error {
	_, err := cli.classSvc.AddMember(context.Background(), classroomID, userID)
	if err != nil {
		if errors.Is(err, classroom.ErrAlreadyMember) {
			fmt.Println("already a member; nothing to do")
			return nil
		}
		return err
	}
	fmt.Println("member added")
	return nil
}
