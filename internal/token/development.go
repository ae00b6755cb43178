package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// DevelopmentSource mints an unsigned ("alg: none") JWT bound to a
// synthetic user identifier, for use against a local sandbox ledger that
// does not verify signatures. Grounded on the original client's fake_jwt
// construction: a dot-joined base64url header and payload.
type DevelopmentSource struct {
	UserID   string
	Audience string
	Issuer   string
}

func (s DevelopmentSource) Fetch(ctx context.Context) (string, time.Duration, error) {
	header := map[string]string{"alg": "none", "typ": "JWT"}
	now := time.Now()
	payload := map[string]any{
		"aud":   s.Audience,
		"sub":   s.UserID,
		"iss":   s.Issuer,
		"scope": "daml_ledger_api",
		"exp":   now.Add(developmentTokenLifetime).Unix(),
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", 0, fmt.Errorf("encode development token header: %w", err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", 0, fmt.Errorf("encode development token payload: %w", err)
	}

	encoded := fmt.Sprintf("%s.%s.",
		base64.RawURLEncoding.EncodeToString(headerJSON),
		base64.RawURLEncoding.EncodeToString(payloadJSON),
	)
	return encoded, developmentTokenLifetime, nil
}
