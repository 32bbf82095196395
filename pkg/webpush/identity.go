package webpush

import (
	"encoding/base64"
	"errors"
	"strings"
)

// ResolveIdentity derives the device id and display name from the reported
// device characteristics.
//
// The id is the standard base64 encoding of the non-empty values of type,
// os, browser and model joined with "-". Identical inputs always map to the
// same id, so re-registering a device reuses its rows. The name is the model,
// or the browser when no model is known, followed by the device type.
func ResolveIdentity(info DeviceInfo) (deviceID, deviceName string, err error) {
	if info.Type == "" {
		return "", "", errors.Join(ErrInvalidInput, errors.New("device type is required"))
	}

	parts := make([]string, 0, 4)
	for _, p := range []string{string(info.Type), info.OS, info.Browser, info.Model} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	deviceID = base64.StdEncoding.EncodeToString([]byte(strings.Join(parts, "-")))

	label := info.Model
	if label == "" {
		label = info.Browser
	}
	deviceName = label + " " + string(info.Type)

	return deviceID, deviceName, nil
}
