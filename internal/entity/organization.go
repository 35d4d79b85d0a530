package entity

import (
	"strings"
	"time"
)

// Organization is the company or institution being assessed
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	Size      string    `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MemberRole represents a member's role within an organization
type MemberRole string

// Organization member roles
const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// OrganizationMember links a user to an organization by email
type OrganizationMember struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Email          string     `json:"email"`
	Name           string     `json:"name,omitempty"`
	Role           MemberRole `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NaturalKey identifies a member independently of its id namespace
func (m *OrganizationMember) NaturalKey() string {
	return m.OrganizationID + "/" + strings.ToLower(m.Email)
}

// InvitationStatus represents the state of a membership invitation
type InvitationStatus string

// Invitation states
const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)

// Invitation is a pending offer of organization membership
type Invitation struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Email          string           `json:"email"`
	Role           MemberRole       `json:"role"`
	Status         InvitationStatus `json:"status"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NaturalKey identifies an invitation independently of its id namespace
func (i *Invitation) NaturalKey() string {
	return i.OrganizationID + "/" + strings.ToLower(i.Email)
}
