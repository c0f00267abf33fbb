package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/taskboard/internal/models"
	"github.com/fentz26/taskboard/internal/session"
)

var (
	loginName     string
	prefsName     string
	prefsTimezone string
)

var loginCmd = &cobra.Command{
	Use:   "login [email]",
	Short: "Sign in as the owner of your tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user and preferences",
	RunE:  runWhoami,
}

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Set display name and timezone",
	RunE:  runPrefs,
}

func init() {
	loginCmd.Flags().StringVar(&loginName, "name", "", "Display name (default: the email's local part)")
	prefsCmd.Flags().StringVar(&prefsName, "name", "", "Display name")
	prefsCmd.Flags().StringVar(&prefsTimezone, "timezone", "", "IANA timezone that decides 'today', empty for the config default")
}

func runLogin(cmd *cobra.Command, args []string) error {
	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	sess, err := s.Auth.Login(args[0], loginName)
	if err != nil {
		return err
	}
	fmt.Printf("Signed in as %s <%s>\n", sess.User.Username, sess.User.Email)
	fmt.Printf("Owner ID: %s\n", sess.User.ID)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	user := s.Auth.User()
	if user == nil {
		fmt.Println("Not signed in")
		return nil
	}
	if err := s.Auth.Logout(); err != nil {
		return err
	}
	fmt.Printf("Signed out from %s\n", user.Email)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	user := s.Auth.User()
	if user == nil {
		fmt.Println("Not signed in. Run 'taskboard login <email>'.")
		return nil
	}
	p := s.Preferences()
	fmt.Printf("User:      %s <%s>\n", user.Username, user.Email)
	fmt.Printf("Owner ID:  %s\n", user.ID)
	if p.DisplayName != "" {
		fmt.Printf("Name:      %s\n", p.DisplayName)
	}
	fmt.Printf("Timezone:  %s\n", s.Location())
	fmt.Printf("Today:     %s\n", s.Today())
	return nil
}

func runPrefs(cmd *cobra.Command, args []string) error {
	s, err := session.Open(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	p := s.Preferences()
	if cmd.Flags().Changed("name") {
		p.DisplayName = prefsName
	}
	if cmd.Flags().Changed("timezone") {
		p.Timezone = prefsTimezone
	}
	if err := s.SavePreferences(context.Background(), p); err != nil {
		return err
	}
	p = s.Preferences()
	fmt.Printf("Saved preferences: name %q, timezone %s\n", p.DisplayName, displayZone(p))
	return nil
}

func displayZone(p models.Preferences) string {
	if p.Timezone == "" {
		return cfg.Location().String() + " (config)"
	}
	return p.Timezone
}
