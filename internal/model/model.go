package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&CatalogueInfo{},
	&Shoot{},
	&Footprint{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// CatalogueInfo records which build created the catalogue
type CatalogueInfo struct {
	gorm.Model
	Version     string `json:"version" gorm:"size:64"`
	Description string `json:"description" gorm:"size:255"`
}

func (*CatalogueInfo) TableName() string {
	return "catalogue_infos"
}

////////////////////////
// FOOTPRINT MODELS
////////////////////////

// Shoot is one folder of images processed in a run
type Shoot struct {
	gorm.Model
	Name       string    `json:"name" gorm:"size:255;index:idx_shoot_name"`
	Dir        string    `json:"dir" gorm:"size:1024"`
	RelDir     string    `json:"relDir" gorm:"size:1024"`
	RunStart   time.Time `json:"runStart" gorm:"index:idx_shoot_run_start"`
	ShootIndex int       `json:"shootIndex"`
	ShootTotal int       `json:"shootTotal"`

	// Totals are written when the shoot ends
	ImageCount     int     `json:"imageCount"`
	FootprintCount int     `json:"footprintCount"`
	TotalAreaM2    float64 `json:"totalAreaM2"`
	Completed      bool    `json:"completed"`

	Footprints []Footprint `json:"-"`
}

func (*Shoot) TableName() string {
	return "shoots"
}

// Footprint is one image of a shoot. Unavailable values are stored as NULL.
type Footprint struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ShootID  uint   `json:"shootId" gorm:"index:idx_footprint_shoot_id"`
	Shoot    Shoot  `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ShootID;"`
	FilePath string `json:"filePath" gorm:"size:1024"`
	RelPath  string `json:"relPath" gorm:"size:1024;index:idx_footprint_rel_path"`
	Sensor   string `json:"sensor" gorm:"size:127"`

	CapturedAt sql.NullTime    `json:"capturedAt" gorm:"index:idx_footprint_captured_at"` // UTC
	Latitude   sql.NullFloat64 `json:"latitude"`
	Longitude  sql.NullFloat64 `json:"longitude"`
	UTMZone    string          `json:"utmZone" gorm:"size:4"`
	Height     sql.NullFloat64 `json:"height"`
	GSD        sql.NullFloat64 `json:"gsd"`
	Pitch      sql.NullFloat64 `json:"pitch"`
	Yaw        sql.NullFloat64 `json:"yaw"`

	// Ground geometry, NULL when the footprint is unavailable
	HasFootprint bool            `json:"hasFootprint" gorm:"index:idx_footprint_has_footprint"`
	AreaM2       sql.NullFloat64 `json:"areaM2"`
	CentreX      sql.NullFloat64 `json:"centreX"` // UTM easting
	CentreY      sql.NullFloat64 `json:"centreY"` // UTM northing
	PolygonWKT   sql.NullString  `json:"polygonWkt" gorm:"type:text"`

	Properties datatypes.JSON `json:"properties"`
}

func (*Footprint) TableName() string {
	return "footprints"
}
