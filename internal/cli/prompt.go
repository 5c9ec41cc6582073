package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/locations"
	"golang.org/x/term"
)

// Prompter collects missing input from the operator
type Prompter interface {
	// Interactive reports whether forms can be shown
	Interactive() bool
	Login(req *auth.LoginRequest) error
	Registration(req *auth.RegistrationRequest, dir *locations.Directory) error
	DonationRequest(req *auth.DonationRequest, dir *locations.Directory) error
}

// TerminalPrompter renders huh forms when stdin and stdout are terminals
type TerminalPrompter struct {
	interactive bool
}

func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{
		interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (p *TerminalPrompter) Interactive() bool {
	return p.interactive
}

func (p *TerminalPrompter) Login(req *auth.LoginRequest) error {
	if !p.interactive {
		return ErrLoginRequired
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Value(&req.Email).
				Validate(required("Email is required")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&req.Password).
				Validate(required("Password is required")),
		).Title("Login"),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("login prompt: %w", err)
	}
	return nil
}

func (p *TerminalPrompter) Registration(req *auth.RegistrationRequest, dir *locations.Directory) error {
	if !p.interactive {
		return errors.New("missing registration details: pass them as flags")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(&req.Name).Validate(required("Name is required.")),
			huh.NewInput().Title("Email").Value(&req.Email).Validate(required("Email is required.")),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&req.Password).
				Validate(func(s string) error { return auth.ValidatePasswordStrength(s) }),
			huh.NewInput().
				Title("Confirm Password").
				EchoMode(huh.EchoModePassword).
				Value(&req.ConfirmPassword).
				Validate(func(s string) error {
					if s != req.Password {
						return errors.New(auth.ErrPasswordMismatch.Message)
					}
					return nil
				}),
		).Title("Register"),
		huh.NewGroup(
			bloodGroupSelect(&req.BloodGroup),
			districtSelect(&req.District, dir),
			upazilaSelect(&req.Upazila, &req.District, dir),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("registration prompt: %w", err)
	}
	return nil
}

func (p *TerminalPrompter) DonationRequest(req *auth.DonationRequest, dir *locations.Directory) error {
	if !p.interactive {
		return errors.New("missing donation request details: pass them as flags")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Recipient Name").Value(&req.RecipientName).Validate(required("Recipient name is required.")),
			bloodGroupSelect(&req.RecipientBloodGroup),
			districtSelect(&req.District, dir),
			upazilaSelect(&req.Upazila, &req.District, dir),
		).Title("Create Donation Request"),
		huh.NewGroup(
			huh.NewInput().Title("Hospital Name").Value(&req.HospitalName).Validate(required("Hospital name is required.")),
			huh.NewInput().Title("Full Address").Value(&req.FullAddress).Validate(required("Full address is required.")),
			huh.NewInput().Title("Donation Date").Placeholder("2006-01-02").Value(&req.DonationDate).Validate(required("Donation Date is required.")),
			huh.NewInput().Title("Donation Time").Placeholder("15:04").Value(&req.DonationTime).Validate(required("Donation Time is required.")),
			huh.NewInput().Title("Contact Phone").Value(&req.ContactPhone),
			huh.NewText().Title("Request Message").Value(&req.RequestMessage),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("donation request prompt: %w", err)
	}
	return nil
}

func required(msg string) func(string) error {
	return func(s string) error {
		if s == "" {
			return errors.New(msg)
		}
		return nil
	}
}

func bloodGroupSelect(value *string) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title("Blood Group").
		Options(huh.NewOptions(auth.BloodGroups...)...).
		Value(value)
}

// districtSelect stores the district ID in value
func districtSelect(value *string, dir *locations.Directory) *huh.Select[string] {
	districts := dir.Districts()
	opts := make([]huh.Option[string], 0, len(districts))
	for _, d := range districts {
		opts = append(opts, huh.NewOption(d.Name, d.ID))
	}

	return huh.NewSelect[string]().
		Title("District").
		Options(opts...).
		Height(10).
		Value(value)
}

func upazilaSelect(value, districtID *string, dir *locations.Directory) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title("Upazila").
		OptionsFunc(func() []huh.Option[string] {
			ups := dir.UpazilasOf(*districtID)
			opts := make([]huh.Option[string], 0, len(ups))
			for _, u := range ups {
				opts = append(opts, huh.NewOption(u.Name, u.Name))
			}
			return opts
		}, districtID).
		Value(value)
}
