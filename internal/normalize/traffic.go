package normalize

import (
	"net/url"
	"strings"

	"github.com/tidemarkdata/clickstream-engine/pkg/enums"
)

// Campaign-tracking query parameters. Presence of any one of them marks the
// landing as paid traffic.
var trackingParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"gclid",
	"fbclid",
}

// Known search-engine domains. Matched against the registrable labels of the
// referrer host so regional TLDs (google.co.uk) classify correctly.
var searchEngines = []string{
	"google",
	"bing",
	"yahoo",
	"duckduckgo",
	"baidu",
	"yandex",
	"ecosia",
}

const (
	directSource = "(direct)"
	directMedium = "(none)"
)

// classifyTraffic applies the acquisition waterfall in strict priority order:
// tracking parameters, then search-engine referrer, then absent referrer,
// then referral. A referrer on the site's own domain is on-site navigation
// and classifies as direct.
func classifyTraffic(pageURL, referrer, siteDomain string) Traffic {
	if params, ok := trackingParamsFrom(pageURL); ok {
		return paidTraffic(params)
	}

	host := hostOf(referrer)
	if host == "" || isOwnDomain(host, siteDomain) {
		return Traffic{
			Channel: enums.ChannelDirect,
			Source:  directSource,
			Medium:  directMedium,
		}
	}

	if engine := searchEngineOf(host); engine != "" {
		return Traffic{
			Channel: enums.ChannelOrganicSearch,
			Source:  engine,
			Medium:  "organic",
		}
	}

	return Traffic{
		Channel: enums.ChannelReferral,
		Source:  host,
		Medium:  "referral",
	}
}

func trackingParamsFrom(pageURL string) (url.Values, bool) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, false
	}
	query := parsed.Query()
	for _, param := range trackingParams {
		if query.Get(param) != "" {
			return query, true
		}
	}
	return nil, false
}

func paidTraffic(params url.Values) Traffic {
	source := params.Get("utm_source")
	if source == "" {
		// Click identifiers imply the network even without utm_source.
		switch {
		case params.Get("gclid") != "":
			source = "google"
		case params.Get("fbclid") != "":
			source = "facebook"
		default:
			source = "(unknown)"
		}
	}
	medium := params.Get("utm_medium")
	if medium == "" {
		medium = "cpc"
	}
	return Traffic{
		Channel:  enums.ChannelPaid,
		Source:   source,
		Medium:   medium,
		Campaign: params.Get("utm_campaign"),
	}
}

func hostOf(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func isOwnDomain(host, siteDomain string) bool {
	siteDomain = strings.ToLower(strings.TrimPrefix(siteDomain, "www."))
	return host == siteDomain || strings.HasSuffix(host, "."+siteDomain)
}

// searchEngineOf returns the engine name when any domain label of the host
// matches the allow-list, otherwise "".
func searchEngineOf(host string) string {
	labels := strings.Split(host, ".")
	for _, engine := range searchEngines {
		for _, label := range labels {
			if label == engine {
				return engine
			}
		}
	}
	return ""
}
