package models

import (
	"database/sql/driver"
	"encoding/json"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON wraps gorm.io/datatypes.JSON to allow custom data type mapping for
// the event journal payload column.
type JSON struct {
	datatypes.JSON
}

// NewJSON marshals v into a JSON payload. Values that cannot marshal are
// recorded as a JSON null rather than failing the enclosing transaction.
func NewJSON(v interface{}) JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return JSON{JSON: datatypes.JSON([]byte("null"))}
	}
	return JSON{JSON: datatypes.JSON(data)}
}

// Value promotes the embedded JSON's Value method
func (j JSON) Value() (driver.Value, error) {
	return j.JSON.Value()
}

// Scan promotes the embedded JSON's Scan method
func (j *JSON) Scan(value interface{}) error {
	return j.JSON.Scan(value)
}

// GormDBDataType ensures the correct data type is used for each database driver.
// This resolves the issue where MSSQL does not support the 'json' data type.
func (JSON) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "JSON"
	case "postgres":
		return "JSONB"
	case "sqlserver", "mssql":
		return "NVARCHAR(MAX)"
	case "sqlite":
		return "JSON"
	}
	return "TEXT"
}
