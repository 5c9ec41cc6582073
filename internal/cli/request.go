package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	auth "github.com/goliatone/go-donor-auth"
)

func newRequestCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Manage donation requests",
	}

	cmd.AddCommand(
		newRequestCreateCommand(app),
		newRequestListCommand(app),
	)

	return cmd
}

func newRequestCreateCommand(app func() *App) *cobra.Command {
	var form auth.DonationRequest

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a donation request",
		Long: `Publish a donation request on behalf of the logged in user. Blocked
accounts cannot create requests.

Examples:
  donorctl request create --recipient Karim --blood-group O+ --district Dhaka \
    --upazila Savar --hospital "Enam Medical" --address "Thana Road" \
    --date 2026-11-02 --time 10:30 --phone 01712345678`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()

			return a.withSession(cmd.Context(), routeCreateRequest, func(identity auth.Identity) error {
				if identity.IsBlocked() {
					return errors.New("blocked users cannot create donation requests")
				}

				payload := form
				if payload.RecipientName == "" || payload.HospitalName == "" {
					if err := a.prompter.DonationRequest(&payload, a.Locations); err != nil {
						return err
					}
				}

				if payload.District != "" {
					d, ok := a.resolveDistrict(payload.District)
					if !ok {
						return fmt.Errorf("unknown district %q", payload.District)
					}
					if payload.Upazila != "" && len(a.Locations.UpazilasOf(d.ID)) > 0 && !a.Locations.HasUpazila(d.ID, payload.Upazila) {
						return fmt.Errorf("upazila %q is not in %s", payload.Upazila, d.Name)
					}
					payload.District = d.Name
				}

				req := payload.Normalize(identity, a.profile(identity).Name)
				if err := req.Validate(); err != nil {
					return err
				}

				res, err := a.Requests.Create(cmd.Context(), req)
				if err != nil {
					if auth.IsAuthorizationFailure(err) {
						return err
					}
					return errors.New(auth.MessageOr(err, "Failed to create request."))
				}

				if !res.Created() {
					return errors.New("Failed to create request.")
				}

				fmt.Fprintln(a.out, successStyle.Render("Donation Request created successfully: "+res.InsertedID))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&form.RecipientName, "recipient", "", "Recipient name")
	cmd.Flags().StringVar(&form.RecipientBloodGroup, "blood-group", "", "Required blood group")
	cmd.Flags().StringVar(&form.District, "district", "", "District ID or name")
	cmd.Flags().StringVar(&form.Upazila, "upazila", "", "Upazila name")
	cmd.Flags().StringVar(&form.HospitalName, "hospital", "", "Hospital name")
	cmd.Flags().StringVar(&form.FullAddress, "address", "", "Full address")
	cmd.Flags().StringVar(&form.DonationDate, "date", "", "Donation date, YYYY-MM-DD")
	cmd.Flags().StringVar(&form.DonationTime, "time", "", "Donation time, HH:MM")
	cmd.Flags().StringVar(&form.ContactPhone, "phone", "", "Contact phone")
	cmd.Flags().StringVar(&form.RequestMessage, "message", "", "Request message")

	return cmd
}

func newRequestListCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your donation requests",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := app()

			return a.withSession(cmd.Context(), routeMyRequests, func(identity auth.Identity) error {
				records, err := a.Requests.ListByRequester(cmd.Context(), identity.Email)
				if err != nil {
					if auth.IsAuthorizationFailure(err) {
						return err
					}
					return errors.New(auth.MessageOr(err, "Could not load your donation requests."))
				}

				fmt.Fprint(a.out, renderRequests(records))
				return nil
			})
		},
	}
}
