package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfileWithDefaults(t *testing.T) {
	profile := UserProfile{Email: "a@b.com", Role: "superuser"}.WithDefaults()

	assert.Equal(t, "Donor Name", profile.Name)
	assert.Equal(t, DefaultAvatar, profile.Avatar)
	assert.Equal(t, "O+", profile.BloodGroup)
	assert.Equal(t, "Dhaka", profile.District)
	assert.Equal(t, "Savar", profile.Upazila)
	assert.Equal(t, "donor", profile.Role)

	kept := UserProfile{Name: "Rahim", Role: "admin", BloodGroup: "AB-"}.WithDefaults()
	assert.Equal(t, "Rahim", kept.Name)
	assert.Equal(t, "admin", kept.Role)
	assert.Equal(t, "AB-", kept.BloodGroup)
}

func TestProfileFromIdentity(t *testing.T) {
	profile := ProfileFromIdentity(Identity{Email: "v@b.com", Role: "volunteer", Status: "active"})
	assert.Equal(t, "v@b.com", profile.Email)
	assert.Equal(t, "volunteer", profile.Role)
	assert.Equal(t, "active", profile.Status)
	assert.Equal(t, DefaultAvatar, profile.Avatar)
}

func TestAuthResponseHasToken(t *testing.T) {
	var nilRes *AuthResponse
	assert.False(t, nilRes.HasToken())
	assert.False(t, (&AuthResponse{}).HasToken())
	assert.True(t, (&AuthResponse{Token: "t"}).HasToken())
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, LoginRequest{Email: "a@b.com", Password: "secret"}.Validate())

	errs := FieldErrors(LoginRequest{Email: "nope", Password: "123"}.Validate())
	assert.Contains(t, errs, "email")
	assert.Equal(t, "Password must be 6 characters or longer", errs["password"])

	errs = FieldErrors(LoginRequest{}.Validate())
	assert.Equal(t, "Email is required", errs["email"])
	assert.Equal(t, "Password is required", errs["password"])
}

func validRegistration() RegistrationRequest {
	return RegistrationRequest{
		Name:            "Karim",
		Email:           "karim@example.com",
		Password:        "Secret#1",
		ConfirmPassword: "Secret#1",
		BloodGroup:      "B+",
		District:        "Dhaka",
		Upazila:         "Savar",
	}
}

func TestRegistrationRequestValidate(t *testing.T) {
	require.NoError(t, validRegistration().Validate())

	tests := []struct {
		name   string
		mutate func(*RegistrationRequest)
		field  string
		msg    string
	}{
		{
			name:   "password mismatch",
			mutate: func(r *RegistrationRequest) { r.ConfirmPassword = "Secret#2" },
			field:  "confirm_password",
			msg:    ErrPasswordMismatch.Message,
		},
		{
			name:   "weak password",
			mutate: func(r *RegistrationRequest) { r.Password, r.ConfirmPassword = "secret1", "secret1" },
			field:  "password",
			msg:    "Must include uppercase, lowercase, number, and special character.",
		},
		{
			name:   "short password",
			mutate: func(r *RegistrationRequest) { r.Password, r.ConfirmPassword = "S#1a", "S#1a" },
			field:  "password",
			msg:    "Password must be at least 6 characters.",
		},
		{
			name:   "unknown blood group",
			mutate: func(r *RegistrationRequest) { r.BloodGroup = "C+" },
			field:  "bloodGroup",
		},
		{
			name:   "missing district",
			mutate: func(r *RegistrationRequest) { r.District = "" },
			field:  "district",
			msg:    "District is required.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.mutate(&req)

			errs := FieldErrors(req.Validate())
			require.Contains(t, errs, tt.field)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errs[tt.field])
			}
		})
	}
}

func validDonationRequest() DonationRequest {
	return DonationRequest{
		RequesterEmail:      "a@b.com",
		RecipientName:       "Jamal",
		RecipientBloodGroup: "O-",
		DonationDate:        "2026-11-02",
		DonationTime:        "14:30",
		HospitalName:        "Dhaka Medical College",
		FullAddress:         "Bakshibazar, Dhaka",
		District:            "Dhaka",
		Upazila:             "Savar",
	}
}

func TestDonationRequestValidate(t *testing.T) {
	require.NoError(t, validDonationRequest().Validate())

	req := validDonationRequest()
	req.DonationDate = "02/11/2026"
	req.DonationTime = "2pm"
	req.ContactPhone = "12"
	errs := FieldErrors(req.Validate())
	assert.Contains(t, errs, "donationDate")
	assert.Contains(t, errs, "donationTime")
	assert.Equal(t, "must be a valid phone number", errs["contactPhone"])
}

func TestDonationRequestNormalize(t *testing.T) {
	req := validDonationRequest()
	req.ContactPhone = "01712345678"

	out := req.Normalize(Identity{Email: "req@b.com"}, "")
	assert.Equal(t, "req@b.com", out.RequesterEmail)
	assert.Equal(t, "Donor", out.RequesterName)
	assert.Equal(t, RequestStatusPending, out.RequestStatus)
	assert.Equal(t, "+8801712345678", out.ContactPhone)

	named := req.Normalize(Identity{Email: "req@b.com"}, "Rahim")
	assert.Equal(t, "Rahim", named.RequesterName)
}

func TestFieldErrors(t *testing.T) {
	assert.Empty(t, FieldErrors(nil))
	assert.Equal(t, "boom", FieldErrors(errString("boom"))["form"])
}

type errString string

func (e errString) Error() string { return string(e) }

func TestIdentityIsBlocked(t *testing.T) {
	assert.True(t, Identity{Status: "blocked"}.IsBlocked())
	assert.False(t, Identity{Status: "active"}.IsBlocked())
}
