package model

import "time"

// ThreadHistory is the admin view of one thread's stored turns.
type ThreadHistory struct {
	ThreadKey string    `json:"thread_key"`
	Turns     []Turn    `json:"turns"`
	Total     int       `json:"total"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ErrorResponse is the JSON body of a failed HTTP request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
