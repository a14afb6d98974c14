package models

import "encoding/json"

// User is the profile returned by the auth endpoints
type User struct {
	ID        int64  `json:"pk"`
	Email     string `json:"email"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// UnmarshalJSON accepts either "pk" or "id" as the user identifier.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var aux struct {
		plain
		AltID *int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	if u.ID == 0 && aux.AltID != nil {
		u.ID = *aux.AltID
	}
	return nil
}

// DisplayName returns the best human label for the user.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}

// Session is the credential set owned by the session manager
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// AuthResponse is the body of login, registration and refresh responses.
// The server may use either the short or the *_token field names.
type AuthResponse struct {
	Access  string `json:"-"`
	Refresh string `json:"-"`
	User    *User  `json:"user,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

func (r *AuthResponse) UnmarshalJSON(data []byte) error {
	var aux struct {
		Access       string `json:"access"`
		AccessToken  string `json:"access_token"`
		Refresh      string `json:"refresh"`
		RefreshToken string `json:"refresh_token"`
		User         *User  `json:"user"`
		Detail       string `json:"detail"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Access = aux.Access
	if r.Access == "" {
		r.Access = aux.AccessToken
	}
	r.Refresh = aux.Refresh
	if r.Refresh == "" {
		r.Refresh = aux.RefreshToken
	}
	r.User = aux.User
	r.Detail = aux.Detail
	return nil
}

// HasTokens reports whether the response carries an access token.
func (r AuthResponse) HasTokens() bool {
	return r.Access != ""
}

// LoginRequest is the body of auth/login/
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegistrationRequest is the body of auth/registration/
type RegistrationRequest struct {
	Email     string `json:"email"`
	Password1 string `json:"password1"`
	Password2 string `json:"password2"`
}

// RefreshRequest is the body of auth/token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}
