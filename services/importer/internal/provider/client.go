package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/stoik/taskbridge/internal/apiclient"
)

// Source describes an importable vendor and the credentials it needs
type Source struct {
	Code        string   `json:"code"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	InputFields []string `json:"input_fields"`
}

var sources = []Source{
	{Code: "trello", Name: "Trello", URL: "https://trello.com", InputFields: []string{"token", "app_key"}},
	{Code: "asana", Name: "Asana", URL: "https://asana.com", InputFields: []string{"token"}},
	{Code: "todoist", Name: "Todoist", URL: "https://todoist.com", InputFields: []string{"token"}},
	{Code: "monday", Name: "Monday", URL: "https://monday.com", InputFields: []string{"app_key"}},
}

// Sources returns the catalogue of importable vendors
func Sources() []Source {
	out := make([]Source, len(sources))
	copy(out, sources)
	return out
}

// Lookup finds a source by code
func Lookup(code string) (Source, bool) {
	for _, s := range sources {
		if s.Code == strings.ToLower(code) {
			return s, true
		}
	}
	return Source{}, false
}

// Credentials are the vendor secrets supplied by the caller
type Credentials struct {
	Token  string
	AppKey string
}

// Options tune the HTTP side of a vendor client
type Options struct {
	// BaseURL overrides the vendor API root
	BaseURL string
	Timeout time.Duration
	// Transport carries every vendor request; nil uses http.DefaultTransport.
	// The importer installs its rate limiter here.
	Transport http.RoundTripper
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return apiclient.DefaultTimeout
	}
	return o.Timeout
}

func (o Options) baseURL(fallback string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return fallback
}

func (o Options) httpClient() *http.Client {
	return &http.Client{Timeout: o.timeout(), Transport: o.Transport}
}

// bearerClient returns an HTTP client that sends token as an OAuth2 bearer
// over the transport of opts
func bearerClient(token string, opts Options) *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.httpClient())
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client.Timeout = opts.timeout()
	return client
}

// New creates a provider for the given source code
func New(code string, creds Credentials, opts Options) (Provider, error) {
	switch strings.ToLower(code) {
	case "trello":
		return NewTrello(creds, opts), nil
	case "asana":
		return NewAsana(creds, opts), nil
	case "todoist":
		return NewTodoist(creds, opts), nil
	case "monday":
		return NewMonday(creds, opts), nil
	default:
		return nil, fmt.Errorf("unknown source %q", code)
	}
}

// parseTime accepts RFC3339 timestamps and bare dates. A bare date is an
// all-day value.
func parseTime(value string) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, false
	}
	if len(value) == len("2006-01-02") {
		if t, err := time.Parse("2006-01-02", value); err == nil {
			return &t, true
		}
		return nil, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, false
		}
	}
	return nil, false
}
