package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/vcabral19/json-placeholder-elt/internal/identity"
)

// ErrInvalidRecord marks a source record that cannot be typed.
// It only ever affects the one record, never the surrounding batch.
var ErrInvalidRecord = errors.New("invalid record")

var validate = validator.New()

// userRecord is the wire shape of a source record. Required fields are
// pointers so that `required` checks presence: 0 and "" are valid values,
// an absent key or null is not.
type userRecord struct {
	ID       *int64         `json:"id" validate:"required"`
	Name     *string        `json:"name" validate:"required"`
	Username *string        `json:"username" validate:"required"`
	Email    *string        `json:"email" validate:"required"`
	Phone    *string        `json:"phone" validate:"required"`
	Website  *string        `json:"website" validate:"required"`
	Address  *addressRecord `json:"address" validate:"required"`
	Company  *companyRecord `json:"company"`
}

type addressRecord struct {
	Street  *string    `json:"street" validate:"required"`
	Suite   *string    `json:"suite" validate:"required"`
	City    *string    `json:"city" validate:"required"`
	Zipcode *string    `json:"zipcode" validate:"required"`
	Geo     *geoRecord `json:"geo" validate:"required"`
}

type geoRecord struct {
	Lat *string `json:"lat" validate:"required"`
	Lng *string `json:"lng" validate:"required"`
}

type companyRecord struct {
	Name        *string `json:"name" validate:"required"`
	CatchPhrase *string `json:"catchPhrase" validate:"required"`
	BS          *string `json:"bs" validate:"required"`
}

// ParseUser decodes and validates one source record.
//
// Unknown top-level fields are kept in User.Raw. A missing required field,
// or one of the wrong JSON type, yields an error wrapping ErrInvalidRecord;
// zero values such as "id": 0 or "" are accepted. The company sub-object is
// optional, but must be complete when present; its surrogate key is derived
// from its name.
func ParseUser(record json.RawMessage, extractionTS int64) (*User, error) {
	user, err := parseRecord(record)
	if err != nil {
		return nil, err
	}
	user.ExtractionTS = extractionTS
	return user, nil
}

// parseRecord is ParseUser without the extraction timestamp.
func parseRecord(record json.RawMessage) (*User, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(record, &raw); err != nil {
		return nil, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidRecord, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: null record", ErrInvalidRecord)
	}

	var rec userRecord
	if err := json.Unmarshal(record, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if err := validate.Struct(&rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	user := &User{
		UserID:   *rec.ID,
		Name:     *rec.Name,
		Username: *rec.Username,
		Email:    *rec.Email,
		Phone:    *rec.Phone,
		Website:  *rec.Website,
		Address: Address{
			Street:  *rec.Address.Street,
			Suite:   *rec.Address.Suite,
			City:    *rec.Address.City,
			Zipcode: *rec.Address.Zipcode,
			Geo: Geo{
				Lat: *rec.Address.Geo.Lat,
				Lng: *rec.Address.Geo.Lng,
			},
		},
		Raw: raw,
	}
	if c := rec.Company; c != nil {
		key := identity.CompanyKey(*c.Name)
		user.Company = &Company{
			ID:          key,
			Name:        *c.Name,
			CatchPhrase: *c.CatchPhrase,
			BS:          *c.BS,
		}
		user.CompanyID = &key
	}
	return user, nil
}

// RecordID returns the record's "id" for log lines, or "unknown".
func RecordID(record json.RawMessage) string {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(record, &head); err != nil || len(head.ID) == 0 {
		return "unknown"
	}
	return string(head.ID)
}
