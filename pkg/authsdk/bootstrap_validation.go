package authsdk

import (
	"fmt"
	"net/url"
	"strings"
)

const bootstrapRequiredReason = "required"

// Validate checks if the bootstrap request fields are valid.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (b BootstrapRequest) Validate() map[string]string {
	errs := make(map[string]string)

	name := strings.TrimSpace(b.ClientName)
	switch {
	case name == "":
		errs["client_name"] = bootstrapRequiredReason
	case len(name) > 100:
		errs["client_name"] = "too long (max 100)"
	}

	seen := make(map[string]struct{}, len(b.RedirectURIs))
	for i, raw := range b.RedirectURIs {
		field := fmt.Sprintf("redirect_uris[%d]", i)
		u, err := url.Parse(raw)
		switch {
		case err != nil || !u.IsAbs() || u.Host == "":
			errs[field] = "must be an absolute URI"
		case strings.Contains(raw, "#"):
			errs[field] = "must not contain a fragment"
		default:
			if _, dup := seen[raw]; dup {
				errs[field] = "duplicate redirect uri"
			}
			seen[raw] = struct{}{}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
