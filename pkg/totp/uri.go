package totp

import (
	"net/url"
	"strconv"
	"strings"
)

// TOTPParams describes a provisioning URI.
type TOTPParams struct {
	Secret      string
	AccountName string
	Issuer      string
}

// GetTOTPURI builds an otpauth:// URI in the Key Uri Format understood by
// authenticator apps. The issuer appears both as the label prefix and as a query
// parameter, as older apps only read one of them.
func GetTOTPURI(params TOTPParams) (string, error) {
	if _, err := DecodeSecret(params.Secret); err != nil {
		return "", err
	}
	account := strings.TrimSpace(params.AccountName)
	if account == "" {
		return "", ErrMissingAccountName
	}
	issuer := strings.TrimSpace(params.Issuer)
	if issuer == "" {
		return "", ErrMissingIssuer
	}

	q := url.Values{}
	q.Set("secret", strings.ToUpper(strings.ReplaceAll(params.Secret, " ", "")))
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", strconv.Itoa(Digits))
	q.Set("period", strconv.Itoa(Period))

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + account,
		RawQuery: q.Encode(),
	}
	return u.String(), nil
}
