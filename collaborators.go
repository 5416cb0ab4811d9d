package wsprofile

import "context"

// CredentialStore issues and looks up persisted credential records.
type CredentialStore interface {
	Issue(ctx context.Context, name, clientID, username string) (*CredentialReference, error)
	FetchByID(ctx context.Context, id string) (*CredentialReference, error)
}

// CredentialRevoker is implemented by credential stores that can delete a
// record. A Wizard uses it to drop credentials it issued for a profile that
// was never saved.
type CredentialRevoker interface {
	Revoke(ctx context.Context, id string) error
}

// SettingsSource returns the broker connectivity settings.
type SettingsSource interface {
	Get(ctx context.Context) (*ConnectivitySettings, error)
}

// ProfileStore persists a profile and returns the stored copy with its id
// and creation time.
type ProfileStore interface {
	Save(ctx context.Context, p *ConnectionProfile) (*ConnectionProfile, error)
}

// UserContext supplies the owner of new profiles.
type UserContext interface {
	UserID(ctx context.Context) string
}

// StaticUser is a UserContext with a fixed owner.
type StaticUser string

func (u StaticUser) UserID(context.Context) string { return string(u) }

// Collaborators groups the external stores a Wizard talks to.
type Collaborators struct {
	Credentials CredentialStore
	Settings    SettingsSource
	Profiles    ProfileStore
	User        UserContext
}
