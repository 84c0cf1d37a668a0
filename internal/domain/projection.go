package domain

import (
	"encoding/json"
	"strconv"

	"github.com/vcabral19/json-placeholder-elt/internal/identity"
)

// Kind names a category of output projection.
type Kind string

const (
	KindCompany Kind = "company"
	KindUser    Kind = "user"
)

// Projection is one output row of a given kind.
type Projection interface {
	Kind() Kind
	// Key identifies the row within its kind and batch.
	Key() string
	// Values returns the cells in the kind's declared field order.
	Values() []string
}

var (
	CompanyFields = []string{"company_id", "name", "catchPhrase", "bs", "extraction_ts"}
	UserFields    = []string{"user_id", "username", "phone", "email", "website", "company_id", "extraction_ts"}
)

type ProcessedCompany struct {
	CompanyID    int64
	Name         string
	CatchPhrase  string
	BS           string
	ExtractionTS string
}

func (p ProcessedCompany) Kind() Kind  { return KindCompany }
func (p ProcessedCompany) Key() string { return strconv.FormatInt(p.CompanyID, 10) }

func (p ProcessedCompany) Values() []string {
	return []string{
		strconv.FormatInt(p.CompanyID, 10),
		p.Name,
		p.CatchPhrase,
		p.BS,
		p.ExtractionTS,
	}
}

type ProcessedUser struct {
	UserID       int64
	Username     string
	Phone        string
	Email        string
	Website      string
	CompanyID    *int64
	ExtractionTS string
}

func (p ProcessedUser) Kind() Kind  { return KindUser }
func (p ProcessedUser) Key() string { return strconv.FormatInt(p.UserID, 10) }

func (p ProcessedUser) Values() []string {
	companyID := ""
	if p.CompanyID != nil {
		companyID = strconv.FormatInt(*p.CompanyID, 10)
	}
	return []string{
		strconv.FormatInt(p.UserID, 10),
		p.Username,
		p.Phone,
		p.Email,
		p.Website,
		companyID,
		p.ExtractionTS,
	}
}

// Transform projects a parsed user into its output rows. A user with a
// company yields a company row and a user row sharing the company key;
// without one, only the user row is produced with an empty company_id.
func Transform(user *User, extractionISO string) map[Kind]Projection {
	out := make(map[Kind]Projection, 2)

	processed := ProcessedUser{
		UserID:       user.UserID,
		Username:     user.Username,
		Phone:        user.Phone,
		Email:        user.Email,
		Website:      user.Website,
		ExtractionTS: extractionISO,
	}

	if user.Company != nil {
		key := identity.CompanyKey(user.Company.Name)
		out[KindCompany] = ProcessedCompany{
			CompanyID:    key,
			Name:         user.Company.Name,
			CatchPhrase:  user.Company.CatchPhrase,
			BS:           user.Company.BS,
			ExtractionTS: extractionISO,
		}
		processed.CompanyID = &key
	}

	out[KindUser] = processed
	return out
}

// DefaultTransform parses a raw record and projects it. It is the
// record-level function the transform engine runs by default. Projections
// carry extractionISO as given, so the parsed user has no ExtractionTS.
func DefaultTransform(record json.RawMessage, extractionISO string) (map[Kind]Projection, error) {
	user, err := parseRecord(record)
	if err != nil {
		return nil, err
	}
	return Transform(user, extractionISO), nil
}
