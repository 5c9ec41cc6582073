package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-donor-auth"
)

func newLoginCommand(app func() *App) *cobra.Command {
	var req auth.LoginRequest

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Log in with email and password. The issued token is stored so later
commands run authenticated.

Examples:
  donorctl login --email donor@example.com --password 'Secret#1'
  donorctl login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			a.Session.Init()

			if req.Email == "" || req.Password == "" {
				if !a.prompter.Interactive() {
					return errors.New("--email and --password are required without a terminal")
				}
				return a.interactiveLogin(cmd.Context(), req.Email)
			}

			return a.signIn(cmd.Context(), req)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password")

	return cmd
}

func newRegisterCommand(app func() *App) *cobra.Command {
	var (
		req        auth.RegistrationRequest
		avatarPath string
	)

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a donor account",
		Long: `Create a donor account. The district accepts an ID or a name. When an
avatar file is given it is uploaded to the image host first.

Examples:
  donorctl register --name Rahim --email donor@example.com --password 'Secret#1' \
    --confirm-password 'Secret#1' --blood-group O+ --district Dhaka --upazila Savar
  donorctl register`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			a.Session.Init()

			if req.Name == "" || req.Email == "" || req.Password == "" {
				if err := a.prompter.Registration(&req, a.Locations); err != nil {
					return err
				}
			}

			if req.ConfirmPassword == "" && !cmd.Flags().Changed("confirm-password") {
				req.ConfirmPassword = req.Password
			}

			if req.District != "" {
				d, ok := a.resolveDistrict(req.District)
				if !ok {
					return fmt.Errorf("unknown district %q", req.District)
				}
				if req.Upazila != "" && len(a.Locations.UpazilasOf(d.ID)) > 0 && !a.Locations.HasUpazila(d.ID, req.Upazila) {
					return fmt.Errorf("upazila %q is not in %s", req.Upazila, d.Name)
				}
				req.District = d.Name
			}

			if err := req.Validate(); err != nil {
				return err
			}

			req.Avatar = a.avatarURL(cmd, avatarPath)

			res, err := a.Session.Register(cmd.Context(), req)
			if err != nil {
				return errors.New(auth.MessageOr(err, "Registration failed. Please check your inputs."))
			}

			if res.HasToken() {
				fmt.Fprintln(a.out, successStyle.Render("Registered and logged in as "+req.Email))
				return nil
			}

			msg := res.Message
			if msg == "" {
				msg = "Registration complete. Please log in."
			}
			fmt.Fprintln(a.out, successStyle.Render(msg))
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "Account password")
	cmd.Flags().StringVar(&req.ConfirmPassword, "confirm-password", "", "Password confirmation, defaults to --password")
	cmd.Flags().StringVar(&req.BloodGroup, "blood-group", "", "Blood group, e.g. O+")
	cmd.Flags().StringVar(&req.District, "district", "", "District ID or name")
	cmd.Flags().StringVar(&req.Upazila, "upazila", "", "Upazila name")
	cmd.Flags().StringVar(&avatarPath, "avatar", "", "Path to a profile picture")

	return cmd
}

func (a *App) avatarURL(cmd *cobra.Command, path string) string {
	if path == "" {
		return a.Uploader.AvatarURL(cmd.Context(), "", nil)
	}

	f, err := os.Open(path)
	if err != nil {
		a.Logger.Error("open avatar %s: %s", path, err)
		return a.Uploader.AvatarURL(cmd.Context(), "", nil)
	}
	defer f.Close()

	return a.Uploader.AvatarURL(cmd.Context(), filepath.Base(path), f)
}

func newLogoutCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			if err := a.Session.SignOut(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, successStyle.Render("Logged out"))
			return nil
		},
	}
}

func newWhoAmICommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()
			identity, err := a.requireIdentity(cmd.Context(), routeProfile)
			if err != nil {
				return err
			}
			fmt.Fprint(a.out, renderProfile(a.profile(identity), a.Session.State()))
			return nil
		},
	}
}
