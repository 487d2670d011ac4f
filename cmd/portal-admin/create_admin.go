package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/freesideatlanta/member-portal/internal/models"
	"github.com/freesideatlanta/member-portal/internal/service"
)

// readPassword is swapped out in tests so they never touch a terminal.
var readPassword = term.ReadPassword

type adminInput struct {
	Username  string
	Email     string
	Firstname string
	Lastname  string
}

type personCreator interface {
	Create(ctx context.Context, person *models.Person) error
}

func init() {
	f := createAdminCmd.Flags()
	f.String("username", "", "login name of the new administrator")
	f.String("email", "", "email address")
	f.String("first", "", "first name")
	f.String("last", "", "last name")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(createAdminCmd)
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an active member with admin rights",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := adminInput{}
		in.Username, _ = cmd.Flags().GetString("username")
		in.Email, _ = cmd.Flags().GetString("email")
		in.Firstname, _ = cmd.Flags().GetString("first")
		in.Lastname, _ = cmd.Flags().GetString("last")

		password, err := promptPassword(cmd.OutOrStdout())
		if err != nil {
			return err
		}

		e, err := openEnv(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer e.Close()

		person, err := createAdmin(cmd.Context(), e.storage.Persons, in, password, time.Now().UTC())
		if err != nil {
			return err
		}
		cmd.Printf("created admin %s (%s)\n", person.Username, person.ID)
		return nil
	},
}

func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	fmt.Fprint(w, "Repeat password: ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}

func createAdmin(ctx context.Context, persons personCreator, in adminInput, password string, now time.Time) (*models.Person, error) {
	if len(password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return nil, err
	}
	person := &models.Person{
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		PasswordHash: hash,
		IsMember:     true,
		Active:       true,
		Admin:        true,
		Joined:       &now,
	}
	if err := persons.Create(ctx, person); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return person, nil
}
