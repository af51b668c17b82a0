// Copyright (c) 2026 Bizaek. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package schema names the tables and columns of the credential store so
// repositories never spell them by hand.
package schema

// UserAccountTable represents the 'users.account' table
type UserAccountTable struct {
	Table        string
	ID           string
	Email        string
	Password     string
	DisplayName  string
	ProfileImage string
	GoogleID     string
	FacebookID   string
	GithubID     string
	Role         string
	Status       string
	CreatedAt    string
	UpdatedAt    string
	DeletedAt    string
}

// UserAccount is the schema definition for users.account
var UserAccount = UserAccountTable{
	Table:        "users.account",
	ID:           "id",
	Email:        "email",
	Password:     "passwordhash",
	DisplayName:  "displayname",
	ProfileImage: "profileimage",
	GoogleID:     "googleid",
	FacebookID:   "facebookid",
	GithubID:     "githubid",
	Role:         "role",
	Status:       "status",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
	DeletedAt:    "deletedat",
}

// Columns returns all standard column names
func (t UserAccountTable) Columns() []string {
	return []string{
		t.ID, t.Email, t.Password, t.DisplayName, t.ProfileImage,
		t.GoogleID, t.FacebookID, t.GithubID, t.Role, t.Status,
		t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}

// ProviderColumns lists the external identity columns, each backed by a
// partial unique index.
func (t UserAccountTable) ProviderColumns() []string {
	return []string{t.GoogleID, t.FacebookID, t.GithubID}
}
