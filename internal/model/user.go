package model

import "time"

// User represents an application user record as stored in the
// `users` table. Users authenticate with an API key rather than a
// password; see APIKey.
//
// Fields:
//  ID        – primary key identifier of the user.
//  Username  – unique login name.
//  Email     – unique email address.
//  Admin     – set when the key that authenticated the request is an admin key.
//              It is not a column; the API key middleware fills it in.
//  CreatedAt – timestamp of creation.
type User struct {
	ID        uint64    `json:"id"`       // users.id
	Username  string    `json:"username"` // users.username
	Email     string    `json:"email"`    // users.email
	Admin     bool      `json:"-"`
	CreatedAt time.Time `json:"-"` // users.created_at
}

// APIKey models an entry in the `api_keys` table. The raw key is shown to
// the user once; only a short lookup prefix and a bcrypt hash are stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the key.
//  Prefix    – first characters of the raw key, indexed for lookup.
//  KeyHash   – bcrypt hash of the raw key.
//  Admin     – grants access to admin-only routes.
//  CreatedAt – timestamp of creation.
type APIKey struct {
	ID        uint64    // api_keys.id
	UserID    uint64    // api_keys.user_id
	Prefix    string    // api_keys.key_prefix
	KeyHash   string    // api_keys.key_hash
	Admin     bool      // api_keys.admin
	CreatedAt time.Time // api_keys.created_at
}
