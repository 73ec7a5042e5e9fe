// Package model holds the persisted entities and their shared columns.
package model

import "time"

type BaseWithID struct {
	ID int64 `bun:"id,pk,autoincrement" json:"id"`
}

type BaseWithCreatedAt struct {
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

type BaseWithUpdatedAt struct {
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

type Base struct {
	BaseWithID
	BaseWithCreatedAt
	BaseWithUpdatedAt
}
