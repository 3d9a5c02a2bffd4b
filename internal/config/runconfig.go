package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxPanelLimit is the upper bound of the panel's connection-limit input
const MaxPanelLimit = 500

// DefaultTemplate is used when the connect block carries no template
const DefaultTemplate = `Hi {firstName}, I hope you're doing well!

I'm a {MY_POSITION} from Brazil with experience in {POS_SEARCH}, seeking international opportunities.
I'd love to connect and expand my network.

Best regards,
    {MY_NAME}`

// Sentinels shipped in the configuration template. Leaving any of them in
// place is treated the same as leaving the field empty.
const (
	PlaceholderName   = "Your Full Name Here"
	PlaceholderRole   = "Your Current Position or Job Title"
	PlaceholderSearch = "Your Area of Expertise or Specialization"
)

// RunConfig is the immutable configuration snapshot the control loop consumes
type RunConfig struct {
	SenderName       string
	SenderRole       string
	SenderSearchArea string
	MessageTemplate  string
	IncludeNote      bool
	MinDelay         time.Duration
	MaxDelay         time.Duration
	ScrollDelay      time.Duration
	DefaultLimit     int
	PremiumLimit     int
	TestMode         TestMode
}

// TestMode controls simulated sends
type TestMode struct {
	Enabled            bool
	PauseBeforeSend    bool
	MaxTestConnections int
}

// LimitFor returns the default quota for the account class
func (r RunConfig) LimitFor(premium bool) int {
	if premium {
		return r.PremiumLimit
	}
	return r.DefaultLimit
}

// ConfigurationError reports missing or placeholder mandatory fields, or
// malformed optional ones. It aborts startup.
type ConfigurationError struct {
	Fields []string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if len(e.Fields) == 0 {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s (%s)", e.Reason, strings.Join(e.Fields, ", "))
}

// UserMessage is the prompt shown to the user when startup is aborted
func (e *ConfigurationError) UserMessage() string {
	if len(e.Fields) == 0 {
		return "Configuration not found. Copy config/config.example.yaml to config/config.yaml, " +
			"fill in the connect section and start again."
	}
	return fmt.Sprintf("Configuration not filled in. Edit the connect section of your config file "+
		"and set: %s.", strings.Join(e.Fields, ", "))
}

// NewRunConfig validates and normalizes the external connect block.
// Keys are matched case-insensitively, either at top level or nested under
// AUTOMATION, so both the flat and the grouped layouts are accepted.
func NewRunConfig(raw map[string]interface{}) (RunConfig, error) {
	if raw == nil {
		return RunConfig{}, &ConfigurationError{Reason: "connect block is missing"}
	}

	rc := RunConfig{
		SenderName:       stringField(raw, "MY_NAME", "sender_name", "senderName"),
		SenderRole:       stringField(raw, "MY_POSITION", "sender_role", "senderRole"),
		SenderSearchArea: stringField(raw, "POS_SEARCH", "sender_search_area", "senderSearchArea"),
	}

	var missing []string
	if isUnset(rc.SenderName, PlaceholderName) {
		missing = append(missing, "MY_NAME")
	}
	if isUnset(rc.SenderRole, PlaceholderRole) {
		missing = append(missing, "MY_POSITION")
	}
	if isUnset(rc.SenderSearchArea, PlaceholderSearch) {
		missing = append(missing, "POS_SEARCH")
	}
	if len(missing) > 0 {
		return RunConfig{}, &ConfigurationError{Fields: missing, Reason: "mandatory fields are missing or left at placeholder values"}
	}

	p := parser{raw: raw}

	rc.MessageTemplate = DefaultTemplate
	rc.IncludeNote = true
	if tpl, ok := lookup(raw, "MESSAGE_TEMPLATE"); ok {
		switch v := tpl.(type) {
		case string:
			rc.MessageTemplate = v
		case map[string]interface{}:
			if text, ok := lookup(v, "TEXT"); ok {
				rc.MessageTemplate = fmt.Sprint(text)
			}
			if include, ok := lookup(v, "INCLUDE_NOTE"); ok {
				rc.IncludeNote = p.toBool("MESSAGE_TEMPLATE.INCLUDE_NOTE", include)
			}
		}
	} else if text := stringField(raw, "MESSAGE_TEMPLATE_TEXT"); text != "" {
		rc.MessageTemplate = text
	}
	if include, ok := lookup(raw, "include_note"); ok {
		rc.IncludeNote = p.toBool("include_note", include)
	}

	rc.DefaultLimit = p.intOption("DEFAULT_LIMIT", 100)
	rc.PremiumLimit = p.intOption("PREMIUM_LIMIT", 200)
	rc.MinDelay = p.msOption("MIN_DELAY", 1000)
	rc.MaxDelay = p.msOption("MAX_DELAY", 3000)
	rc.ScrollDelay = p.msOption("SCROLL_DELAY", 5000)

	rc.TestMode = TestMode{PauseBeforeSend: true, MaxTestConnections: 3}
	if tm, ok := automationValue(raw, "TEST_MODE"); ok {
		if m, ok := tm.(map[string]interface{}); ok {
			if v, ok := lookup(m, "ENABLED"); ok {
				rc.TestMode.Enabled = p.toBool("TEST_MODE.ENABLED", v)
			}
			if v, ok := lookup(m, "PAUSE_BEFORE_SEND"); ok {
				rc.TestMode.PauseBeforeSend = p.toBool("TEST_MODE.PAUSE_BEFORE_SEND", v)
			}
			if v, ok := lookup(m, "MAX_TEST_CONNECTIONS"); ok {
				if n := p.toInt("TEST_MODE.MAX_TEST_CONNECTIONS", v); n > 0 {
					rc.TestMode.MaxTestConnections = n
				}
			}
		} else {
			rc.TestMode.Enabled = p.toBool("TEST_MODE", tm)
		}
	}

	if len(p.invalid) > 0 {
		return RunConfig{}, &ConfigurationError{Fields: p.invalid, Reason: "optional fields have invalid values"}
	}

	if rc.MaxDelay < rc.MinDelay {
		return RunConfig{}, &ConfigurationError{
			Fields: []string{"MIN_DELAY", "MAX_DELAY"},
			Reason: "MAX_DELAY must be >= MIN_DELAY",
		}
	}

	return rc, nil
}

func isUnset(value, placeholder string) bool {
	value = strings.TrimSpace(value)
	return value == "" || value == placeholder
}

// lookup finds key in m ignoring case
func lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// automationValue looks key up at top level first, then under AUTOMATION
func automationValue(raw map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := lookup(raw, key); ok {
		return v, true
	}
	if group, ok := lookup(raw, "AUTOMATION"); ok {
		if m, ok := group.(map[string]interface{}); ok {
			return lookup(m, key)
		}
	}
	return nil, false
}

func stringField(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := lookup(raw, key); ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

// parser accumulates the names of malformed optional fields
type parser struct {
	raw     map[string]interface{}
	invalid []string
}

// intOption treats absent or non-positive values as unset
func (p *parser) intOption(key string, def int) int {
	v, ok := automationValue(p.raw, key)
	if !ok || v == nil {
		return def
	}
	if n := p.toInt(key, v); n > 0 {
		return n
	}
	return def
}

func (p *parser) msOption(key string, defMs int) time.Duration {
	v, ok := automationValue(p.raw, key)
	if !ok || v == nil {
		return time.Duration(defMs) * time.Millisecond
	}
	n := p.toInt(key, v)
	if n < 0 {
		p.invalid = append(p.invalid, key)
		return 0
	}
	if n == 0 {
		n = defMs
	}
	return time.Duration(n) * time.Millisecond
}

func (p *parser) toInt(key string, v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err == nil {
			return i
		}
	}
	p.invalid = append(p.invalid, key)
	return 0
}

func (p *parser) toBool(key string, v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		if err == nil {
			return parsed
		}
	}
	p.invalid = append(p.invalid, key)
	return false
}
