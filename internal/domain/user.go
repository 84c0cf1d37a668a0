package domain

import "time"

// User is the typed view of one source record from one extraction. Its
// JSON tags shape ops API responses; source records decode via ParseUser.
// Rows are historical: the same source id appears once per extraction_ts.
type User struct {
	ID           uint     `gorm:"primaryKey" json:"-"`
	UserID       int64    `gorm:"not null;uniqueIndex:idx_users_source_extraction" json:"id"`
	ExtractionTS int64    `gorm:"not null;uniqueIndex:idx_users_source_extraction" json:"extraction_ts"`
	Name         string   `gorm:"type:text;not null" json:"name"`
	Username     string   `gorm:"type:text;not null" json:"username"`
	Email        string   `gorm:"type:text;not null" json:"email"`
	Phone        string   `gorm:"type:text" json:"phone"`
	Website      string   `gorm:"type:text" json:"website"`
	Address      Address  `gorm:"foreignKey:UserRowID;constraint:OnDelete:CASCADE" json:"address"`
	CompanyID    *int64   `gorm:"index" json:"company_id"`
	Company      *Company `gorm:"foreignKey:CompanyID" json:"company"`

	// Raw is the full original record, unknown fields included.
	Raw       JSONMap   `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"-"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

type Address struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	UserRowID uint   `gorm:"not null;index" json:"-"`
	Street    string `gorm:"type:text" json:"street"`
	Suite     string `gorm:"type:text" json:"suite"`
	City      string `gorm:"type:text" json:"city"`
	Zipcode   string `gorm:"type:text" json:"zipcode"`
	Geo       Geo    `gorm:"foreignKey:AddressID;constraint:OnDelete:CASCADE" json:"geo"`
}

func (Address) TableName() string {
	return "addresses"
}

type Geo struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	AddressID uint   `gorm:"not null;index" json:"-"`
	Lat       string `gorm:"type:text" json:"lat"`
	Lng       string `gorm:"type:text" json:"lng"`
}

func (Geo) TableName() string {
	return "geos"
}

// Company is denormalized in the source; its primary key is derived from
// the name (see identity.CompanyKey), so it is shared across extractions.
type Company struct {
	ID          int64  `gorm:"primaryKey;autoIncrement:false" json:"company_id"`
	Name        string `gorm:"type:text;not null" json:"name"`
	CatchPhrase string `gorm:"column:catch_phrase;type:text" json:"catchPhrase"`
	BS          string `gorm:"column:bs;type:text" json:"bs"`
}

func (Company) TableName() string {
	return "companies"
}
