// Package payload provides types for constructing the JSON payload of a
// legacy binary APNs notification. The encoded form is capped at 256
// bytes by the gateway, so the surface here is the original aps
// dictionary: alert, badge, sound and content-available, plus custom
// keys merged at the root level.
package payload

import "encoding/json"

// Alert represents the `alert` dictionary within the `aps` payload.
//
// When only Body is set, Alert marshals to a bare JSON string, the
// compact form the gateway-era payload format allows.
type Alert struct {
	// Body is the text of the alert message.
	Body string `json:"body,omitempty"`

	// ActionLocKey is the key for a localized string to be used as the
	// title of the action button. When present the alert shows two
	// buttons instead of a single OK.
	ActionLocKey string `json:"action-loc-key,omitempty"`

	// LocKey is the key for a localized string in the app's
	// Localizable.strings file to be used for the alert body.
	LocKey string `json:"loc-key,omitempty"`

	// LocArgs are the variable string values to appear in place of the
	// format specifiers in `loc-key`.
	LocArgs []string `json:"loc-args,omitempty"`

	// LaunchImage is the name of an image file in the app bundle to be
	// displayed when the user launches the app from the alert.
	LaunchImage string `json:"launch-image,omitempty"`
}

// MarshalJSON implements the `json.Marshaler` interface. An alert that
// carries only a body collapses to a plain string.
func (a Alert) MarshalJSON() ([]byte, error) {
	if a.ActionLocKey == "" && a.LocKey == "" && len(a.LocArgs) == 0 && a.LaunchImage == "" {
		return json.Marshal(a.Body)
	}
	type alert Alert // avoid recursing into MarshalJSON
	return json.Marshal(alert(a))
}

// APS represents the `aps` dictionary, the system-defined portion of a
// notification payload.
type APS struct {
	// Alert is the content of the alert message.
	Alert *Alert `json:"alert,omitempty"`

	// Badge is the number to display on the app's icon. A nil pointer
	// leaves the badge untouched; zero removes it.
	Badge *int `json:"badge,omitempty"`

	// Sound is the name of a sound file in the app's bundle.
	Sound string `json:"sound,omitempty"`

	// ContentAvailable, when 1, signals new content for a background
	// fetch.
	ContentAvailable int `json:"content-available,omitempty"`
}

// Payload is the complete notification payload: the aps dictionary
// plus app-specific custom keys.
type Payload struct {
	// APS is the Apple-defined dictionary.
	APS APS

	// CustomData is a map for any app-specific custom data. The keys
	// and values are merged at the root level of the JSON payload,
	// alongside the `aps` dictionary.
	CustomData map[string]any
}

// MarshalJSON implements the `json.Marshaler` interface, merging the
// custom keys with the `aps` dictionary at the root level.
func (p Payload) MarshalJSON() ([]byte, error) {
	if len(p.CustomData) == 0 {
		return json.Marshal(map[string]any{"aps": p.APS})
	}
	mp := make(map[string]any, len(p.CustomData)+1)
	for k, v := range p.CustomData {
		mp[k] = v
	}
	mp["aps"] = p.APS
	return json.Marshal(mp)
}
