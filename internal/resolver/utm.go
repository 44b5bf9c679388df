package resolver

import (
	"net/url"

	"github.com/balesniy/reduced.to/internal"
)

// AppendUTM appends the link's stored UTM set to the destination URL. Only
// parameters that are present are appended; a present-but-empty value never
// produces an empty query parameter. Existing query parameters on the
// destination are preserved.
func AppendUTM(destination string, utm internal.UTMParams) (string, error) {
	if utm.Empty() {
		return destination, nil
	}

	parsed, err := url.Parse(destination)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	setParam(query, "ref", utm.Ref)
	setParam(query, "utm_source", utm.Source)
	setParam(query, "utm_medium", utm.Medium)
	setParam(query, "utm_campaign", utm.Campaign)
	setParam(query, "utm_term", utm.Term)
	setParam(query, "utm_content", utm.Content)
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}

func setParam(query url.Values, name string, value *string) {
	if value == nil || *value == "" {
		return
	}
	query.Set(name, *value)
}
