package wsprofile

import (
	"fmt"
	"strings"
)

// CredentialMode is how the identity fields of a profile are populated.
type CredentialMode string

const (
	// AUTO generates new credentials that are issued on submit.
	AUTO CredentialMode = "AUTO"
	// CUSTOM lets the user type client id, username and password.
	CUSTOM CredentialMode = "CUSTOM"
	// EXISTING references a stored credential record.
	EXISTING CredentialMode = "EXISTING"
)

func ParseMode(s string) (CredentialMode, error) {
	switch m := CredentialMode(strings.ToUpper(strings.TrimSpace(s))); m {
	case AUTO, CUSTOM, EXISTING:
		return m, nil
	}
	return "", fmt.Errorf("%w: credential mode %q", ErrInvalidValue, s)
}

// SelectMode applies an explicit mode selection.
func SelectMode(d Draft, mode CredentialMode, gen Generator) Draft {
	c := d.connection
	c.Mode = mode
	c.Credentials = nil
	c.CredentialsRequired = false
	c.PasswordRequired = false

	switch mode {
	case AUTO:
		c.CredentialsName = locked(gen.CredentialsName())
		c.ClientID = locked(gen.ClientID())
		c.Username = locked(gen.Username())
		c.Password = locked("")
	case CUSTOM:
		clientID, username := "", ""
		if d.editing != nil {
			clientID, username = d.editing.Configuration.ClientID, d.editing.Configuration.Username
		}
		if clientID == "" {
			clientID = gen.ClientID()
		}
		c.CredentialsName = locked(c.CredentialsName.Value)
		c.ClientID = enabled(clientID)
		c.Username = enabled(username)
		c.Password = enabled("")
	case EXISTING:
		c.CredentialsName = enabled(c.CredentialsName.Value)
		c.ClientID = locked("")
		c.Username = locked("")
		c.Password = enabled("")
		c.CredentialsRequired = true
	}
	d.connection = c
	return d
}

// AttachCredentials sets the credential record of an EXISTING draft and
// recomputes the identity fields from it. Attaching the same record twice
// yields the same draft.
func AttachCredentials(d Draft, ref *CredentialReference, gen Generator) (Draft, error) {
	if d.connection.Mode != EXISTING {
		return d, fmt.Errorf("%w: credentials can only be selected in %s mode", ErrFieldLocked, EXISTING)
	}
	c := d.connection
	c.Credentials = ref
	c.PasswordRequired = false
	if ref == nil {
		d.connection = c
		return d, nil
	}

	v, err := ref.Value()
	if err != nil {
		return d, err
	}
	clientID := v.ClientID
	if clientID == "" && d.editing != nil {
		clientID = d.editing.Configuration.ClientID
	}
	if clientID == "" {
		clientID = c.ClientID.Value
	}
	if clientID == "" {
		clientID = gen.ClientID()
	}
	c.ClientID = Field[string]{Value: clientID, Enabled: v.ClientID == ""}
	c.Username = locked(v.UserName)
	c.Password = enabled("")
	c.PasswordRequired = v.Password != ""
	d.connection = c
	return d, nil
}

// Regenerate replaces a generated identifier. Only fields that exist in the
// current mode can be regenerated.
func Regenerate(d Draft, field FieldName, gen Generator) (Draft, error) {
	c := d.connection
	switch {
	case field == FieldCredentialsName && c.Mode == AUTO:
		c.CredentialsName.Value = gen.CredentialsName()
	case field == FieldClientID && (c.Mode == AUTO || c.Mode == CUSTOM):
		c.ClientID.Value = gen.ClientID()
	case field == FieldUsername && (c.Mode == AUTO || c.Mode == CUSTOM):
		c.Username.Value = gen.Username()
	default:
		return d, fmt.Errorf("%w: cannot regenerate %q in %s mode", ErrFieldLocked, field, c.Mode)
	}
	d.connection = c
	return d, nil
}
