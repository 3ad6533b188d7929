package registration

import (
	"fmt"
	"strconv"
)

// Recognized setting names.
const (
	SettingActivationDays       = "ACCOUNT_ACTIVATION_DAYS"
	SettingActivationSuccessURL = "ACTIVATION_SUCCESS_URL"
	SettingDefaultFromEmail     = "DEFAULT_FROM_EMAIL"
	SettingSiteName             = "SITE_NAME"
	SettingSiteDomain           = "SITE_DOMAIN"
)

// DefaultActivationDays is the activation window applied when the host
// configuration does not override ACCOUNT_ACTIVATION_DAYS.
const DefaultActivationDays = 7

var settingDefaults = map[string]any{
	SettingActivationDays:   DefaultActivationDays,
	SettingDefaultFromEmail: "webmaster@localhost",
	SettingSiteName:         "example.com",
	SettingSiteDomain:       "example.com",
}

// SettingsLookup resolves a named setting from the host configuration.
// Returning false means the setting is unset there.
type SettingsLookup func(name string) (any, bool)

// Settings resolves the small set of named configuration values the
// registration flow depends on. The lookup is consulted on every call, so
// test overrides on the host configuration are always honored.
//
// ACTIVATION_SUCCESS_URL intentionally has no default: it is required, and
// resolving it while unset fails with a configuration error.
type Settings struct {
	lookup SettingsLookup
}

// NewSettings creates a resolver backed by the given lookup. A nil lookup
// resolves defaults only.
func NewSettings(lookup SettingsLookup) *Settings {
	return &Settings{lookup: lookup}
}

// SettingsFromMap is a convenience constructor for static configuration.
func SettingsFromMap(values map[string]any) *Settings {
	return NewSettings(func(name string) (any, bool) {
		v, ok := values[name]
		return v, ok
	})
}

// Get returns the configured value for name, falling back to the built-in
// default. A required setting with neither fails loudly.
func (s *Settings) Get(name string) (any, error) {
	if s != nil && s.lookup != nil {
		if v, ok := s.lookup(name); ok && v != nil {
			return v, nil
		}
	}

	if v, ok := settingDefaults[name]; ok {
		return v, nil
	}

	return nil, NewConfigurationError(name)
}

// ActivationDays returns the activation window length in days.
func (s *Settings) ActivationDays() (int, error) {
	v, err := s.Get(SettingActivationDays)
	if err != nil {
		return 0, err
	}

	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0, NewConfigurationError(SettingActivationDays)
		}
		return parsed, nil
	default:
		return 0, NewConfigurationError(SettingActivationDays)
	}
}

// ActivationSuccessURL returns the redirect target for successful
// activations. There is no default; unset is an operator error.
func (s *Settings) ActivationSuccessURL() (string, error) {
	return s.getString(SettingActivationSuccessURL)
}

// FromEmail returns the sender address for activation emails.
func (s *Settings) FromEmail() (string, error) {
	return s.getString(SettingDefaultFromEmail)
}

// Site describes the hosting site, handed to email templates.
func (s *Settings) Site() (Site, error) {
	name, err := s.getString(SettingSiteName)
	if err != nil {
		return Site{}, err
	}

	domain, err := s.getString(SettingSiteDomain)
	if err != nil {
		return Site{}, err
	}

	return Site{Name: name, Domain: domain}, nil
}

func (s *Settings) getString(name string) (string, error) {
	v, err := s.Get(name)
	if err != nil {
		return "", err
	}

	str, ok := v.(string)
	if !ok {
		str = fmt.Sprintf("%v", v)
	}

	if str == "" {
		return "", NewConfigurationError(name)
	}

	return str, nil
}

// Site identifies the host site in notification templates.
type Site struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}
