package entity

import "time"

// Visit is the request metadata captured when a short code is resolved.
// Every field is optional and left empty when the request did not carry it.
type Visit struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// Click is a single recorded visit to a short code.
type Click struct {
	ID        int64
	URLID     int64
	ClickedAt time.Time
	Visit
}
