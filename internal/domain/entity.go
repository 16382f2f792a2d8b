package domain

type Year = int

type Entity struct {
	ID        int64  `db:"id"`
	Code      string `db:"code"`
	Name      string `db:"name"`
	Validated bool   `db:"validated"`
}

// DataValue is one observation of a variable for an entity in a year.
type DataValue struct {
	VariableID int64  `db:"variable_id"`
	EntityID   int64  `db:"entity_id"`
	Year       Year   `db:"year"`
	Value      string `db:"value"`
}

// LatestValue is a row of the country_latest_data table.
type LatestValue struct {
	VariableID  int64  `db:"variable_id"`
	CountryCode string `db:"country_code"`
	Year        Year   `db:"year"`
	Value       string `db:"value"`
}

// YearWindow bounds years exclusively on both sides.
type YearWindow struct {
	After  Year
	Before Year
}

func (w YearWindow) Contains(year Year) bool {
	return year > w.After && year < w.Before
}

type Country struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
	Slug string `yaml:"slug"`
}
