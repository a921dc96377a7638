package model

import "time"

// User represents an account row in the `users` table together with the
// profile fields collected after the first sign-in.  Every account belongs
// to the institutional email domain; Role stays empty until the user picks
// driver or passenger.
//
// Fields:
//  ID              – primary key (uuid).
//  Email           – unique institutional email address.
//  PasswordHash    – bcrypt hashed password.
//  FullName        – display name.
//  Phone           – optional 10-digit phone number.
//  StudentCode     – student code.
//  Career          – academic programme.
//  Age             – age in years (0 when not provided).
//  Sex             – free text as entered.
//  Zone            – residential zone used to prefill schedules.
//  Role            – driver, passenger or empty.
//  IsActive        – false once the account is deactivated.
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type User struct {
    ID           string    `json:"id"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    FullName     string    `json:"full_name"`
    Phone        *string   `json:"phone,omitempty"`
    StudentCode  *string   `json:"student_code,omitempty"`
    Career       *string   `json:"career,omitempty"`
    Age          int       `json:"age,omitempty"`
    Sex          *string   `json:"sex,omitempty"`
    Zone         *string   `json:"zone,omitempty"`
    Role         Role      `json:"role"`
    IsActive     bool      `json:"is_active"`
    CreatedAt    time.Time `json:"created_at"`
    UpdatedAt    time.Time `json:"updated_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    string     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
