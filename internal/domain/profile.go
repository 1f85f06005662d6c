package domain

import "time"

// Profile is the extended, non-authentication data linked one-to-one to an Account.
// JSON names match what the web client already reads.
type Profile struct {
	AccountID    string    `json:"detilUid"`
	DisplayName  string    `json:"namaLengkap"`
	AvatarURL    string    `json:"fotoProfil"`
	Bio          string    `json:"bio"`
	LinkedinURL  string    `json:"linkedinUrl"`
	InstagramURL string    `json:"instagramUrl"`
	WhatsApp     string    `json:"noWa"`
	StatementURL string    `json:"pernyataanUrl"`
	Bookmarks    []string  `json:"permohonanBarang"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const KindProfile = "profile"

func NewProfile(accountID, displayName, statementURL string, now time.Time) *Profile {
	return &Profile{
		AccountID:    accountID,
		DisplayName:  displayName,
		StatementURL: statementURL,
		Bookmarks:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
