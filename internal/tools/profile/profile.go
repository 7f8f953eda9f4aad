// Package profile retrieves client profiles from the customers database
// through LLM-generated SQL, validated to be strictly read-only before
// execution.
package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

// customersSchema describes the table the SQL generator targets.
const customersSchema = `Table: customers
Columns:
- client_id (TEXT, PRIMARY KEY): unique client identifier, e.g. 'CLT-LNU555'
- client_name (TEXT): business name of the client
- client_city (TEXT): city where the client operates
- client_state (TEXT): US state, stored as the full name (e.g. 'California')
- postal_code (TEXT): US postal code
- top3_brewery_types (TEXT): JSON array of the client's preferred brewery types
- top5_beers_recently (TEXT): JSON array of the client's recently ordered beers
- top3_breweries_recently (TEXT): JSON array of breweries the client recently purchased from`

// SQLGenerator turns a natural-language question about the schema into a
// SQL query.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, schema, question string) (string, error)
}

// SearchMethod records which lookup strategy found the profile.
type SearchMethod string

const (
	MethodClientID          SearchMethod = "client_id"
	MethodPostalCodeAndName SearchMethod = "postal_code_and_name"
	MethodNotFound          SearchMethod = "not_found"
)

// Profile is one row of the customers table with JSON columns decoded.
type Profile struct {
	ClientID        string   `json:"client_id"`
	ClientName      string   `json:"client_name"`
	City            string   `json:"client_city"`
	State           string   `json:"client_state"`
	PostalCode      string   `json:"postal_code"`
	TopBreweryTypes []string `json:"top3_brewery_types"`
	TopBeers        []string `json:"top5_beers_recently"`
	BreweryHistory  []string `json:"top3_breweries_recently"`
}

// Location renders the combined "City, State" form used in prompts.
func (p *Profile) Location() string {
	return p.City + ", " + p.State
}

// LookupResult carries the outcome of a profile lookup, including the SQL
// that was executed for traceability.
type LookupResult struct {
	Query    string        `json:"sql_query"`
	Method   SearchMethod  `json:"search_method"`
	Profile  *Profile      `json:"result"`
	Duration time.Duration `json:"-"`
}

// Runner executes read-only profile lookups against the customers database.
type Runner struct {
	db     *sql.DB
	gen    SQLGenerator
	logger zerolog.Logger
}

// New opens the customers database and wires the SQL generator.
func New(databasePath string, gen SQLGenerator) (*Runner, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open customers database: %w", err)
	}
	return NewWithDB(db, gen), nil
}

// NewWithDB builds a Runner over an existing database handle.
func NewWithDB(db *sql.DB, gen SQLGenerator) *Runner {
	return &Runner{
		db:     db,
		gen:    gen,
		logger: log.With().Str("component", "profile").Logger(),
	}
}

// Close releases the database handle.
func (r *Runner) Close() error {
	return r.db.Close()
}

// GetClientProfile looks up a client profile, trying client_id first and
// falling back to postal_code plus client_name. A failed lookup is a normal
// outcome (MethodNotFound), not an error.
func (r *Runner) GetClientProfile(ctx context.Context, clientID, postalCode, clientName string) LookupResult {
	start := time.Now()
	result := LookupResult{Method: MethodNotFound}

	if clientID != "" {
		question := fmt.Sprintf("Find the client profile where client_id is '%s'", clientID)
		if profile, query := r.tryLookup(ctx, question); profile != nil {
			result.Profile = profile
			result.Query = query
			result.Method = MethodClientID
		} else {
			result.Query = query
		}
	}

	if result.Profile == nil && postalCode != "" && clientName != "" {
		question := fmt.Sprintf(
			"Find the client profile where postal_code is '%s' AND client_name contains '%s' (case-insensitive)",
			postalCode, clientName)
		if profile, query := r.tryLookup(ctx, question); profile != nil {
			result.Profile = profile
			result.Query = query
			result.Method = MethodPostalCodeAndName
		}
	}

	result.Duration = time.Since(start)
	if result.Profile == nil {
		r.logger.Warn().Str("client_id", clientID).Msg("client not found with provided search criteria")
	} else {
		r.logger.Info().Str("client_id", result.Profile.ClientID).
			Str("method", string(result.Method)).Msg("client profile found")
	}
	return result
}

func (r *Runner) tryLookup(ctx context.Context, question string) (*Profile, string) {
	query, err := r.gen.GenerateSQL(ctx, customersSchema, question)
	if err != nil {
		r.logger.Error().Err(err).Msg("SQL generation failed")
		return nil, ""
	}
	r.logger.Info().Str("sql", query).Msg("generated SQL")

	profile, err := r.executeQuery(ctx, query)
	if err != nil {
		r.logger.Error().Err(err).Str("sql", query).Msg("query execution failed")
		return nil, query
	}
	return profile, query
}

func (r *Runner) executeQuery(ctx context.Context, query string) (*Profile, error) {
	if err := validateReadOnly(query); err != nil {
		return nil, fmt.Errorf("query rejected: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		return nil, rows.Err()
	}

	values := make([]sql.NullString, len(columns))
	scanArgs := make([]interface{}, len(columns))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	if err := rows.Scan(scanArgs...); err != nil {
		return nil, err
	}

	row := make(map[string]string, len(columns))
	for i, col := range columns {
		if values[i].Valid {
			row[col] = values[i].String
		}
	}
	return profileFromRow(row), nil
}

func profileFromRow(row map[string]string) *Profile {
	p := &Profile{
		ClientID:   row["client_id"],
		ClientName: row["client_name"],
		City:       row["client_city"],
		State:      row["client_state"],
		PostalCode: row["postal_code"],
	}
	p.TopBreweryTypes = decodeJSONList(row["top3_brewery_types"])
	p.TopBeers = decodeJSONList(row["top5_beers_recently"])
	p.BreweryHistory = decodeJSONList(row["top3_breweries_recently"])
	return p
}

func decodeJSONList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
