package models

import "time"

// GenerationResult describes one output document the server produced.
// Created is a unix timestamp in seconds as reported by the server.
type GenerationResult struct {
	Filename string  `json:"filename"`
	Size     int64   `json:"size"`
	Created  float64 `json:"created"`
}

// CreatedTime converts the server timestamp to a time.Time.
func (r GenerationResult) CreatedTime() time.Time {
	sec := int64(r.Created)
	nsec := int64((r.Created - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
