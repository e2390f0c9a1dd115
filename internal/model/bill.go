package model

import "database/sql"

// Bill represents a piece of legislation referenced by one or more events.
// Identity is (State, BillNumber); merges never overwrite non-null fields
// with null or empty incoming values.
type Bill struct {
	ID          int
	State       string
	BillNumber  string
	Title       sql.NullString
	Description sql.NullString
	URL         sql.NullString
	Status      sql.NullString
}

// RawBill is a bill reference as reported by a source scraper.
type RawBill struct {
	State       string
	BillNumber  string
	Title       string
	Description string
	URL         string
	Status      string
}
