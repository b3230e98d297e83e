package okta

import "time"

// Object shapes for the slice of the admin API the modules touch. Fields
// not listed here are dropped on decode; modules that need the full object
// work with the raw page items instead.

type UserProfile struct {
	Login     string `json:"login"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type User struct {
	ID              string      `json:"id"`
	Status          string      `json:"status"`
	Created         *time.Time  `json:"created,omitempty"`
	LastLogin       *time.Time  `json:"lastLogin,omitempty"`
	PasswordChanged *time.Time  `json:"passwordChanged,omitempty"`
	Profile         UserProfile `json:"profile"`
}

type GroupProfile struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type Group struct {
	ID      string       `json:"id"`
	Type    string       `json:"type"`
	Profile GroupProfile `json:"profile"`
}

// Role is an administrator role assignment on a user or group.
type Role struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Label  string `json:"label,omitempty"`
}

type Factor struct {
	ID         string `json:"id"`
	FactorType string `json:"factorType"`
	Provider   string `json:"provider"`
	Status     string `json:"status"`
}

type Policy struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Status string `json:"status"`
	System bool   `json:"system"`
}

type PolicyRule struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Status string `json:"status"`
	System bool   `json:"system"`
}

type Zone struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Status string `json:"status"`
	System bool   `json:"system"`
}

type App struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Label  string `json:"label"`
	Status string `json:"status"`
}

// NewUser is the payload for POST /users.
type NewUser struct {
	Profile     UserProfile     `json:"profile"`
	GroupIDs    []string        `json:"groupIds,omitempty"`
	Credentials *NewCredentials `json:"credentials,omitempty"`
}

type NewCredentials struct {
	Password *Password `json:"password,omitempty"`
}

type Password struct {
	Value string `json:"value"`
}

// RoleAssignment is the payload for POST /users/{id}/roles.
type RoleAssignment struct {
	Type string `json:"type"`
}

// OAuthClient is an OAuth2 service client on the org authorization server
// (POST /oauth2/v1/clients). Creating one plants a standing API credential.
type OAuthClient struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret,omitempty"`
	ClientName   string   `json:"client_name"`
	GrantTypes   []string `json:"grant_types"`
	TokenAuth    string   `json:"token_endpoint_auth_method,omitempty"`
}
