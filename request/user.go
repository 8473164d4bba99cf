package request

import (
	"fmt"

	"brein.evalgo.org/brerr"
	"brein.evalgo.org/document"
)

// Keys of the user subtree.
const (
	UserKey       = "user"
	AdditionalKey = "additional"

	FieldEmail       = "email"
	FieldFirstName   = "firstName"
	FieldLastName    = "lastName"
	FieldDateOfBirth = "dateOfBirth"
	FieldSessionID   = "sessionId"
	FieldDeviceID    = "deviceId"
	FieldIMEI        = "imei"
	FieldUserID      = "userId"
	FieldPhone       = "phone"
)

// Keys of the user.additional subtree.
const (
	AdditionalIPAddress              = "ipAddress"
	AdditionalReferrer               = "referrer"
	AdditionalURL                    = "url"
	AdditionalUserAgent              = "userAgent"
	AdditionalTimezone               = "timezone"
	AdditionalLocalDateTime          = "localDateTime"
	AdditionalPushDeviceRegistration = "androidPushDeviceRegistration"
	AdditionalLocation               = "location"
	AdditionalNetwork                = "network"
)

// User describes the person a request is about. Only fields holding a value
// (non-nil, non-empty string) end up in a request document.
//
// A User may be shared by several entities; it is read while documents are
// built and must not be mutated concurrently with a build.
type User struct {
	fields     document.Document
	additional document.Document
}

// NewUser returns an empty user.
func NewUser() *User {
	return &User{
		fields:     document.New(),
		additional: document.New(),
	}
}

// NewUserWithEmail returns a user identified by email.
func NewUserWithEmail(email string) *User {
	return NewUser().SetEmail(email)
}

// Set stores a top-level user field. The additional subtree cannot be
// replaced this way; use SetAdditional for its entries. A nil value removes
// the field.
func (u *User) Set(key string, value interface{}) error {
	if key == AdditionalKey {
		return brerr.Validation("request.User.Set", "the field %q cannot be set, use SetAdditional", AdditionalKey)
	}
	if key == "" {
		return brerr.Validation("request.User.Set", "empty field name")
	}
	if value != nil && !document.Valid(value) {
		return brerr.Validation("request.User.Set", "unsupported value of type %T for %q", value, key)
	}
	u.fields.Set(key, value)
	return nil
}

// Get returns a top-level user field.
func (u *User) Get(key string) interface{} {
	return u.fields[key]
}

// SetAdditional stores an entry of the additional subtree. A nil value
// removes the entry.
func (u *User) SetAdditional(key string, value interface{}) error {
	if key == "" {
		return brerr.Validation("request.User.SetAdditional", "empty field name")
	}
	if value != nil && !document.Valid(value) {
		return brerr.Validation("request.User.SetAdditional", "unsupported value of type %T for %q", value, key)
	}
	u.additional.Set(key, document.Copy(value))
	return nil
}

// SetAdditionalFields stores every entry of fields into the additional subtree.
func (u *User) SetAdditionalFields(fields map[string]interface{}) error {
	for key, value := range fields {
		if err := u.SetAdditional(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Additional returns an entry of the additional subtree.
func (u *User) Additional(key string) interface{} {
	return u.additional[key]
}

func (u *User) setString(key, value string) *User {
	if value == "" {
		delete(u.fields, key)
	} else {
		u.fields[key] = value
	}
	return u
}

func (u *User) setAdditionalString(key, value string) *User {
	if value == "" {
		delete(u.additional, key)
	} else {
		u.additional[key] = value
	}
	return u
}

// SetEmail sets the email address. An empty string removes it.
func (u *User) SetEmail(email string) *User { return u.setString(FieldEmail, email) }

// SetFirstName sets the first name.
func (u *User) SetFirstName(name string) *User { return u.setString(FieldFirstName, name) }

// SetLastName sets the last name.
func (u *User) SetLastName(name string) *User { return u.setString(FieldLastName, name) }

// SetSessionID sets the session the user acts in.
func (u *User) SetSessionID(sessionID string) *User { return u.setString(FieldSessionID, sessionID) }

// SetDeviceID sets the device identifier.
func (u *User) SetDeviceID(deviceID string) *User { return u.setString(FieldDeviceID, deviceID) }

// SetIMEI sets the device IMEI.
func (u *User) SetIMEI(imei string) *User { return u.setString(FieldIMEI, imei) }

// SetUserID sets the application's user identifier.
func (u *User) SetUserID(userID string) *User { return u.setString(FieldUserID, userID) }

// SetPhone sets the phone number.
func (u *User) SetPhone(phone string) *User { return u.setString(FieldPhone, phone) }

// SetDateOfBirth stores the date as M/D/YYYY. Out of range values (month
// 1-12, day 1-31, year 1900-2100) reset the field to the empty string.
func (u *User) SetDateOfBirth(month, day, year int) *User {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1900 || year > 2100 {
		u.fields[FieldDateOfBirth] = ""
		return u
	}
	u.fields[FieldDateOfBirth] = fmt.Sprintf("%d/%d/%d", month, day, year)
	return u
}

// ResetDateOfBirth clears the date of birth.
func (u *User) ResetDateOfBirth() *User {
	u.fields[FieldDateOfBirth] = ""
	return u
}

// SetIPAddress sets user.additional.ipAddress.
func (u *User) SetIPAddress(ip string) *User { return u.setAdditionalString(AdditionalIPAddress, ip) }

// SetReferrer sets the page the user came from.
func (u *User) SetReferrer(referrer string) *User {
	return u.setAdditionalString(AdditionalReferrer, referrer)
}

// SetURL sets the page the user is on.
func (u *User) SetURL(url string) *User { return u.setAdditionalString(AdditionalURL, url) }

// SetUserAgent sets the user agent of the user's client.
func (u *User) SetUserAgent(agent string) *User {
	return u.setAdditionalString(AdditionalUserAgent, agent)
}

// SetTimezone sets the user's IANA timezone, e.g. "America/New_York".
func (u *User) SetTimezone(tz string) *User { return u.setAdditionalString(AdditionalTimezone, tz) }

// SetLocalDateTime sets the user's local time as sent in user.additional.
func (u *User) SetLocalDateTime(localDateTime string) *User {
	return u.setAdditionalString(AdditionalLocalDateTime, localDateTime)
}

// SetPushDeviceRegistration stores the push notification token.
func (u *User) SetPushDeviceRegistration(token string) *User {
	return u.setAdditionalString(AdditionalPushDeviceRegistration, token)
}

// Email returns the email address or "".
func (u *User) Email() string { return u.GetString(FieldEmail) }

// UserID returns the user identifier or "".
func (u *User) UserID() string { return u.GetString(FieldUserID) }

// SessionID returns the session identifier or "".
func (u *User) SessionID() string { return u.GetString(FieldSessionID) }

// DateOfBirth returns the date of birth as M/D/YYYY, or "" if unset or invalid.
func (u *User) DateOfBirth() string { return u.GetString(FieldDateOfBirth) }

// PushDeviceRegistration returns the push notification token.
func (u *User) PushDeviceRegistration() string {
	s, _ := u.additional[AdditionalPushDeviceRegistration].(string)
	return s
}

// GetString returns a top-level field as string.
func (u *User) GetString(key string) string {
	s, _ := u.fields[key].(string)
	return s
}

// Document returns the sparse user subtree. Values are deep copies; the
// result shares nothing with the user.
func (u *User) Document() document.Document {
	doc := document.New()
	document.Merge(doc, u.fields)

	additional := document.New()
	document.Merge(additional, u.additional)
	if len(additional) > 0 {
		doc[AdditionalKey] = additional
	}
	return doc
}
