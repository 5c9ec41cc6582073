package auth

import (
	"errors"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultAvatar is used when a profile has no picture
const DefaultAvatar = "https://i.ibb.co/23Kdk9qQ/20549.jpg"

// DefaultPhoneRegion is used to parse local contact numbers
const DefaultPhoneRegion = "BD"

// RequestStatusPending is the status of every new donation request
const RequestStatusPending = "pending"

// UserStatus is the account status carried by the token
type UserStatus string

const (
	StatusActive  UserStatus = "active"
	StatusBlocked UserStatus = "blocked"
)

// BloodGroups lists the accepted blood groups in display order
var BloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// Identity is the minimal session data derived from a token or a login
// response.
type Identity struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Status string `json:"status"`
}

// IsBlocked reports whether the account was blocked by an admin
func (i Identity) IsBlocked() bool {
	return UserStatus(i.Status) == StatusBlocked
}

// UserProfile is the user object returned by the auth service
type UserProfile struct {
	ID         string `json:"_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	Status     string `json:"status,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
	BloodGroup string `json:"bloodGroup,omitempty"`
	District   string `json:"district,omitempty"`
	Upazila    string `json:"upazila,omitempty"`
}

// Identity extracts the session identity from the profile
func (u UserProfile) Identity() Identity {
	return Identity{
		Email:  u.Email,
		Role:   u.Role,
		Status: u.Status,
	}
}

// WithDefaults fills display fields the backend left empty
func (u UserProfile) WithDefaults() UserProfile {
	if u.Name == "" {
		u.Name = "Donor Name"
	}
	if u.Avatar == "" {
		u.Avatar = DefaultAvatar
	}
	if u.BloodGroup == "" {
		u.BloodGroup = "O+"
	}
	if u.District == "" {
		u.District = "Dhaka"
	}
	if u.Upazila == "" {
		u.Upazila = "Savar"
	}
	u.Role = string(DisplayRole(u.Role))
	return u
}

// ProfileFromIdentity builds a display profile when only token claims are
// known, e.g. after a reload.
func ProfileFromIdentity(id Identity) UserProfile {
	return UserProfile{
		Email:  id.Email,
		Role:   id.Role,
		Status: id.Status,
	}.WithDefaults()
}

// AuthResponse is returned by /auth/register and /auth/login
type AuthResponse struct {
	Token   string       `json:"token,omitempty"`
	User    *UserProfile `json:"user"`
	Message string       `json:"message,omitempty"`
}

// HasToken reports whether the service issued a bearer token
func (r *AuthResponse) HasToken() bool {
	return r != nil && r.Token != ""
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email is required"),
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required"),
			validation.Length(6, 0).Error("Password must be 6 characters or longer"),
		),
	)
}

// RegistrationRequest is the payload sent to /auth/register
type RegistrationRequest struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	Avatar          string `form:"-" json:"avatar"`
	BloodGroup      string `form:"bloodGroup" json:"bloodGroup"`
	District        string `form:"district" json:"district"`
	Upazila         string `form:"upazila" json:"upazila"`
}

// ErrPasswordMismatch is returned when the confirmation differs
var ErrPasswordMismatch = goerrors.New("Password and Confirm Password do not match.", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest).
	WithTextCode(TextCodePasswordMismatch)

// Validate will run validation rules
func (r RegistrationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required.Error("Name is required.")),
		validation.Field(&r.Email, validation.Required.Error("Email is required."), is.Email),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password is required."),
			validation.Length(6, 0).Error("Password must be at least 6 characters."),
			validation.By(ValidatePasswordStrength),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required.Error("Confirm Password is required."),
			validation.By(ValidateStringEquals(r.Password, ErrPasswordMismatch.Message)),
		),
		validation.Field(&r.BloodGroup, validation.Required.Error("Blood Group is required."), validation.In(toAny(BloodGroups)...)),
		validation.Field(&r.District, validation.Required.Error("District is required.")),
		validation.Field(&r.Upazila, validation.Required.Error("Upazila is required.")),
	)
}

// DonationRequest is the payload sent to POST /requests
type DonationRequest struct {
	RequesterEmail      string `form:"-" json:"requesterEmail"`
	RequesterName       string `form:"-" json:"requesterName"`
	RecipientName       string `form:"recipientName" json:"recipientName"`
	RecipientBloodGroup string `form:"bloodGroup" json:"recipientBloodGroup"`
	DonationDate        string `form:"donationDate" json:"donationDate"`
	DonationTime        string `form:"donationTime" json:"donationTime"`
	HospitalName        string `form:"hospitalName" json:"hospitalName"`
	FullAddress         string `form:"fullAddress" json:"fullAddress"`
	District            string `form:"district" json:"district"`
	Upazila             string `form:"upazila" json:"upazila"`
	RequestMessage      string `form:"requestMessage" json:"requestMessage"`
	ContactPhone        string `form:"contactPhone" json:"contactPhone,omitempty"`
	RequestStatus       string `form:"-" json:"requestStatus"`
}

// Validate will run validation rules
func (r DonationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequesterEmail, validation.Required, is.Email),
		validation.Field(&r.RecipientName, validation.Required.Error("Recipient name is required.")),
		validation.Field(&r.RecipientBloodGroup, validation.Required.Error("Blood Group is required."), validation.In(toAny(BloodGroups)...)),
		validation.Field(&r.DonationDate, validation.Required.Error("Donation Date is required."), validation.Date("2006-01-02")),
		validation.Field(&r.DonationTime, validation.Required.Error("Donation Time is required."), validation.Date("15:04")),
		validation.Field(&r.HospitalName, validation.Required.Error("Hospital name is required.")),
		validation.Field(&r.FullAddress, validation.Required.Error("Full address is required.")),
		validation.Field(&r.District, validation.Required.Error("District is required.")),
		validation.Field(&r.Upazila, validation.Required.Error("Upazila is required.")),
		validation.Field(&r.ContactPhone, validation.By(ValidatePhone(DefaultPhoneRegion))),
	)
}

// Normalize fills defaults and formats the contact phone as E.164
func (r DonationRequest) Normalize(requester Identity, requesterName string) DonationRequest {
	r.RequesterEmail = requester.Email
	r.RequesterName = requesterName
	if r.RequesterName == "" {
		r.RequesterName = "Donor"
	}
	if r.RequestStatus == "" {
		r.RequestStatus = RequestStatusPending
	}
	if phone, err := NormalizePhone(r.ContactPhone, DefaultPhoneRegion); err == nil {
		r.ContactPhone = phone
	}
	return r
}

// NormalizePhone parses a number for region and formats it as E.164
func NormalizePhone(number, region string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(number, region)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("invalid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// ValidatePhone accepts empty values or valid numbers for region
func ValidatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return errors.New("must be a valid phone number")
		}
		return nil
	}
}

// ValidatePasswordStrength requires upper and lower case letters, a digit
// and a symbol.
func ValidatePasswordStrength(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	if !upper || !lower || !digit || !symbol {
		return errors.New("Must include uppercase, lowercase, number, and special character.")
	}
	return nil
}

// ValidateStringEquals fails with message when the value differs from str
func ValidateStringEquals(str, message string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New(message)
		}
		return nil
	}
}

// FieldErrors flattens ozzo validation errors into field => message
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["form"] = err.Error()
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
