// Package brewerydir searches the OpenBreweryDB public directory for
// breweries by location, type, or name, filtering out entries the client
// has already purchased from.
package brewerydir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL    = "https://api.openbrewerydb.org/v1/breweries"
	defaultTimeout    = 10 * time.Second
	defaultMaxResults = 50
)

// SearchStatus classifies a directory search outcome.
type SearchStatus string

const (
	StatusSuccess        SearchStatus = "success"
	StatusNoBreweries    SearchStatus = "NO_BREWERIES"
	StatusNoNewBreweries SearchStatus = "NO_NEW_BREWERIES"
	StatusAPIError       SearchStatus = "API_ERROR"
)

// Brewery is one formatted directory entry.
type Brewery struct {
	ID         string `json:"brewery_id"`
	Name       string `json:"brewery_name"`
	Type       string `json:"brewery_type"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	WebsiteURL string `json:"website_url"`
	Latitude   string `json:"latitude"`
	Longitude  string `json:"longitude"`
}

// Query describes one directory search.
type Query struct {
	City string
	// State is a full name or a two-letter US code; codes are expanded.
	State string
	Type  string
	// Name searches for a specific brewery instead of browsing a location.
	Name string
	// History lists brewery names to exclude when FilterHistory is set.
	History       []string
	FilterHistory bool
}

// Result is the outcome of a directory search.
type Result struct {
	Status      SearchStatus `json:"status"`
	Breweries   []Brewery    `json:"data,omitempty"`
	Message     string       `json:"message,omitempty"`
	TotalFound  int          `json:"total_found"`
	FilteredOut int          `json:"filtered_out"`
}

// Config holds the directory client configuration.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxResults int
}

// DefaultConfig returns the default directory client configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:    defaultBaseURL,
		Timeout:    defaultTimeout,
		MaxResults: defaultMaxResults,
	}
}

// Finder queries the brewery directory API.
type Finder struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a Finder. Zero config fields fall back to defaults.
func New(cfg Config) *Finder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = defaultMaxResults
	}
	return &Finder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     log.With().Str("component", "brewerydir").Logger(),
	}
}

// Search runs one directory query and applies history filtering.
func (f *Finder) Search(ctx context.Context, q Query) Result {
	raw, err := f.callAPI(ctx, q)
	if err != nil {
		f.logger.Error().Err(err).Msg("directory API call failed")
		return Result{Status: StatusAPIError, Message: err.Error()}
	}

	if len(raw) == 0 {
		where := q.City
		if where == "" {
			where = q.Name
		}
		f.logger.Warn().Str("where", where).Msg("no breweries found")
		return Result{
			Status:  StatusNoBreweries,
			Message: fmt.Sprintf("No breweries found for %q", where),
		}
	}

	kept := raw
	if q.FilterHistory {
		kept = filterNew(raw, q.History)
	}
	if len(kept) == 0 {
		f.logger.Warn().Int("total", len(raw)).Msg("all breweries already in purchase history")
		return Result{
			Status:     StatusNoNewBreweries,
			Message:    "All matching breweries are already in the purchase history",
			TotalFound: len(raw),
		}
	}

	breweries := make([]Brewery, len(kept))
	for i, b := range kept {
		breweries[i] = formatBrewery(b)
	}

	f.logger.Info().Int("total", len(raw)).Int("new", len(breweries)).Msg("directory search completed")
	return Result{
		Status:      StatusSuccess,
		Breweries:   breweries,
		TotalFound:  len(raw),
		FilteredOut: len(raw) - len(breweries),
	}
}

// apiBrewery mirrors the raw directory API response shape.
type apiBrewery struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	BreweryType   string `json:"brewery_type"`
	Address1      string `json:"address_1"`
	Street        string `json:"street"`
	City          string `json:"city"`
	State         string `json:"state"`
	StateProvince string `json:"state_province"`
	PostalCode    string `json:"postal_code"`
	Country       string `json:"country"`
	Phone         string `json:"phone"`
	WebsiteURL    string `json:"website_url"`
	Latitude      string `json:"latitude"`
	Longitude     string `json:"longitude"`
}

func (f *Finder) callAPI(ctx context.Context, q Query) ([]apiBrewery, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(f.cfg.MaxResults))
	if q.City != "" {
		params.Set("by_city", normalizeParam(q.City))
	}
	if q.Name != "" {
		params.Set("by_name", normalizeParam(q.Name))
	}
	if q.State != "" {
		params.Set("by_state", expandState(q.State))
	}
	if q.Type != "" {
		params.Set("by_type", strings.ToLower(q.Type))
	}

	reqURL := f.cfg.BaseURL + "?" + params.Encode()
	f.logger.Info().Str("url", reqURL).Msg("calling brewery directory API")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var breweries []apiBrewery
	if err := json.Unmarshal(body, &breweries); err == nil {
		return breweries, nil
	}

	// The API sometimes answers with a message object instead of a list;
	// treat that as an empty result rather than an error.
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Message != "" {
		f.logger.Info().Str("message", msg.Message).Msg("API returned a message instead of results")
		return nil, nil
	}

	return nil, fmt.Errorf("unexpected API response format")
}

func filterNew(breweries []apiBrewery, history []string) []apiBrewery {
	seen := make(map[string]bool, len(history))
	for _, name := range history {
		seen[normalizeName(name)] = true
	}

	var kept []apiBrewery
	for _, b := range breweries {
		if b.Name == "" || seen[normalizeName(b.Name)] {
			continue
		}
		kept = append(kept, b)
	}
	return kept
}

func formatBrewery(b apiBrewery) Brewery {
	street := b.Street
	if street == "" {
		street = b.Address1
	}
	state := b.State
	if state == "" {
		state = b.StateProvince
	}
	return Brewery{
		ID:         b.ID,
		Name:       b.Name,
		Type:       b.BreweryType,
		Street:     street,
		City:       b.City,
		State:      state,
		PostalCode: b.PostalCode,
		Country:    b.Country,
		Phone:      b.Phone,
		WebsiteURL: b.WebsiteURL,
		Latitude:   b.Latitude,
		Longitude:  b.Longitude,
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func normalizeParam(value string) string {
	return strings.ReplaceAll(strings.ToLower(value), " ", "_")
}

// expandState maps two-letter US state codes to the full names the
// directory API expects; anything else passes through normalized.
func expandState(state string) string {
	if full, ok := stateMap[strings.ToUpper(state)]; ok {
		return full
	}
	return normalizeParam(state)
}

var stateMap = map[string]string{
	"AL": "alabama", "AK": "alaska", "AZ": "arizona", "AR": "arkansas",
	"CA": "california", "CO": "colorado", "CT": "connecticut", "DE": "delaware",
	"FL": "florida", "GA": "georgia", "HI": "hawaii", "ID": "idaho",
	"IL": "illinois", "IN": "indiana", "IA": "iowa", "KS": "kansas",
	"KY": "kentucky", "LA": "louisiana", "ME": "maine", "MD": "maryland",
	"MA": "massachusetts", "MI": "michigan", "MN": "minnesota", "MS": "mississippi",
	"MO": "missouri", "MT": "montana", "NE": "nebraska", "NV": "nevada",
	"NH": "new_hampshire", "NJ": "new_jersey", "NM": "new_mexico", "NY": "new_york",
	"NC": "north_carolina", "ND": "north_dakota", "OH": "ohio", "OK": "oklahoma",
	"OR": "oregon", "PA": "pennsylvania", "RI": "rhode_island", "SC": "south_carolina",
	"SD": "south_dakota", "TN": "tennessee", "TX": "texas", "UT": "utah",
	"VT": "vermont", "VA": "virginia", "WA": "washington", "WV": "west_virginia",
	"WI": "wisconsin", "WY": "wyoming",
}
