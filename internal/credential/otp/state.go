package otp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pquerna/otp"

	dErrors "idmcore/pkg/domain-errors"
)

// HashAlgorithm is the HMAC function behind generated codes.
type HashAlgorithm string

const (
	SHA1   HashAlgorithm = "SHA1"
	SHA256 HashAlgorithm = "SHA256"
	SHA512 HashAlgorithm = "SHA512"
)

func (a HashAlgorithm) otp() (otp.Algorithm, error) {
	switch a {
	case SHA1, "":
		return otp.AlgorithmSHA1, nil
	case SHA256:
		return otp.AlgorithmSHA256, nil
	case SHA512:
		return otp.AlgorithmSHA512, nil
	}
	return 0, fmt.Errorf("unsupported OTP algorithm %q", a)
}

// Params fix how codes are derived from the secret. Changing them
// invalidates every enrolled authenticator.
type Params struct {
	CodeLength int           `json:"codeLength"`
	Period     int           `json:"period"`
	Algorithm  HashAlgorithm `json:"algorithm"`
}

func DefaultParams() Params {
	return Params{CodeLength: 6, Period: 30, Algorithm: SHA1}
}

// Definition is the administrator's configuration of an OTP credential.
type Definition struct {
	Issuer            string `json:"issuer"`
	Params            Params `json:"otpParams"`
	AllowedDriftSteps int    `json:"allowedTimeDriftSteps"`
}

// IsDefinitionChangeOutdating reports whether moving from old to updated
// invalidates existing credentials. Only code derivation parameters matter.
func IsDefinitionChangeOutdating(old, updated Definition) bool {
	return old.Params != updated.Params
}

// DBState is the stored JSON form of an enrolled OTP credential.
type DBState struct {
	Secret              string     `json:"secret"`
	Params              Params     `json:"otpParams"`
	Time                time.Time  `json:"time"`
	Outdated            bool       `json:"outdated"`
	LastSuccessfulAuthn *time.Time `json:"lastSuccessfulAuthn,omitempty"`
}

func parseState(raw string) (DBState, error) {
	var s DBState
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return s, dErrors.Wrap(err, dErrors.CodeInternal, "otp state is corrupted")
	}
	return s, nil
}

func encodeState(s DBState) (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode otp state: %w", err)
	}
	return string(b), nil
}
