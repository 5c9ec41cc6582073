package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	auth "github.com/goliatone/go-donor-auth"
	"github.com/goliatone/go-donor-auth/api"
	goerrors "github.com/goliatone/go-errors"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("160"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8")).
			Width(13)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)
)

// FormatError styles an error for the terminal. Categorized errors print
// their message without the category prefix.
func FormatError(err error) string {
	msg := err.Error()
	if richErr, ok := err.(*goerrors.Error); ok {
		msg = richErr.Message
	}

	switch {
	case goerrors.Is(err, auth.ErrUnauthenticated):
		msg += ": run 'donorctl login' first"
	case goerrors.Is(err, ErrSessionExpired):
		msg += ": run 'donorctl login' again"
	}

	return errorStyle.Render("Error: ") + msg
}

func renderProfile(p auth.UserProfile, state auth.SessionState) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(p.Name))
	b.WriteString("\n")

	rows := [][2]string{
		{"Email", p.Email},
		{"Role", p.Role},
		{"Status", p.Status},
		{"Blood Group", p.BloodGroup},
		{"District", p.District},
		{"Upazila", p.Upazila},
		{"Session", state.String()},
	}
	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(row[0]), valueStyle.Render(value))
	}

	if p.Identity().IsBlocked() {
		b.WriteString(warnStyle.Render("This account is blocked."))
		b.WriteString("\n")
	}

	return b.String()
}

func renderRequests(records []api.DonationRequestRecord) string {
	if len(records) == 0 {
		return warnStyle.Render("You have not created any donation requests yet.") + "\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "Recipient", "Group", "Location", "Date", "Time", "Status").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range records {
		t.Row(
			r.ID,
			r.RecipientName,
			r.RecipientBloodGroup,
			r.Upazila+", "+r.District,
			r.DonationDate,
			r.DonationTime,
			r.RequestStatus,
		)
	}

	return t.Render() + "\n"
}
