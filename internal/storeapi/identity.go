package storeapi

import (
	"fmt"

	"github.com/tidwall/gjson"
)

// identityPaths lists where revisions of the identity-check endpoint have put
// the admin id, most specific first
var identityPaths = []string{
	"data.data._id",
	"data._id",
	"data.id",
	"adminId",
	"admin.id",
	"data",
}

// ExtractIdentity reads the admin identity out of an identity-check body.
// The body must report success and isAdmin; otherwise ErrNotAuthenticated.
func ExtractIdentity(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: identity check body is not JSON", ErrMalformedResponse)
	}

	result := gjson.ParseBytes(body)
	if !result.Get("success").Bool() || !result.Get("isAdmin").Bool() {
		return "", ErrNotAuthenticated
	}

	for _, path := range identityPaths {
		v := result.Get(path)
		switch v.Type {
		case gjson.String, gjson.Number:
			if id := v.String(); id != "" {
				return id, nil
			}
		}
	}

	return "", ErrNotAuthenticated
}
