package domain

import "time"

type Dataset struct {
	ID                     int64     `db:"id"`
	Name                   string    `db:"name"`
	Namespace              string    `db:"namespace"`
	Description            string    `db:"description"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
	MetadataEditedAt       time.Time `db:"metadata_edited_at"`
	MetadataEditedByUserID int64     `db:"metadata_edited_by_user_id"`
	DataEditedAt           time.Time `db:"data_edited_at"`
	DataEditedByUserID     int64     `db:"data_edited_by_user_id"`
	IsPrivate              bool      `db:"is_private"`
	NonRedistributable     bool      `db:"non_redistributable"`
}

// Public reports whether the dataset may be exported to the public site.
func (d *Dataset) Public() bool {
	return !d.IsPrivate && !d.NonRedistributable
}

type VariableDisplay struct {
	Name             string   `json:"name,omitempty"`
	Unit             string   `json:"unit,omitempty"`
	ShortUnit        string   `json:"shortUnit,omitempty"`
	NumDecimalPlaces *int     `json:"numDecimalPlaces,omitempty"`
	ConversionFactor *float64 `json:"conversionFactor,omitempty"`
}

type Variable struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	Unit        string          `db:"unit"`
	Description string          `db:"description"`
	Display     VariableDisplay `db:"display"`
	DatasetID   int64           `db:"dataset_id"`
	ColumnOrder int             `db:"column_order"`
}

// DatasetValue is an observation joined with its entity name, as read for CSV export.
type DatasetValue struct {
	Entity     string `db:"entity"`
	Year       Year   `db:"year"`
	Value      string `db:"value"`
	VariableID int64  `db:"variable_id"`
}

type Source struct {
	ID          int64             `db:"id"`
	DatasetID   int64             `db:"dataset_id"`
	Name        string            `db:"name"`
	Description SourceDescription `db:"description"`
}

type SourceDescription struct {
	DataPublishedBy string `json:"dataPublishedBy,omitempty"`
	Link            string `json:"link,omitempty"`
	RetrievedDate   string `json:"retrievedDate,omitempty"`
	AdditionalInfo  string `json:"additionalInfo,omitempty"`
}

type Tag struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
