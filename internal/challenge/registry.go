package challenge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Challenge type identifiers as stored on AuthStep rows.
const (
	TypeLogin             = "ProxyChallengeTypeLogin"
	TypeAdminLogin        = "ProxyChallengeTypeAdminLogin"
	TypeOTP               = "ProxyChallengeTypeOTP"
	TypeManualApproval    = "ProxyChallengeTypeManualApproval"
	TypeSecretQueryString = "ProxyChallengeTypeSecretQueryString"
)

var ErrUnknownType = errors.New("unknown challenge type")

// Constructor builds a challenge instance from its stored config blob.
type Constructor func(config json.RawMessage) (Challenge, error)

// registry is the static catalog of challenge types. Adding a type
// means adding a row here; there is no runtime discovery.
var registry = map[string]Constructor{
	TypeLogin:             newLogin,
	TypeAdminLogin:        newAdminLogin,
	TypeOTP:               newOTP,
	TypeManualApproval:    newManualApproval,
	TypeSecretQueryString: newSecretQueryString,
}

// New instantiates the challenge type from its stored config. An empty
// blob means an all-defaults config.
func New(typeID, config string) (Challenge, error) {
	ctor, ok := registry[typeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeID)
	}
	if strings.TrimSpace(config) == "" {
		config = "{}"
	}
	ch, err := ctor(json.RawMessage(config))
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", typeID, err)
	}
	return ch, nil
}

// Types returns the registered type identifiers, sorted for stable
// admin API output.
func Types() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
