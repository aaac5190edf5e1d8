// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating request
// bodies and path values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"tradeflow/internal/core"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 64 << 10

// NameRequest is the body of create calls. An empty month name means the
// current month.
type NameRequest struct {
	Name string `json:"name"`
}

// NoteRequest is the body of note updates.
type NoteRequest struct {
	Note string `json:"note"`
}

// TradeEditRequest is one field edit: {"field": "rr", "value": 2.5}.
type TradeEditRequest struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// Edit converts the request into a typed trade edit.
func (r TradeEditRequest) Edit() (core.TradeEdit, error) {
	return core.ParseTradeEdit(strings.TrimSpace(r.Field), r.Value)
}

// DecodeJSON reads a JSON body into dst. An empty body leaves dst at its
// zero value.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// Target is the strategy, month and trade addressed by a request path.
type Target struct {
	StrategyID string
	MonthID    string
	TradeID    string
}

// ParseTarget reads the {sid}, {mid} and {tid} path values.
func ParseTarget(r *http.Request) Target {
	return Target{
		StrategyID: r.PathValue("sid"),
		MonthID:    r.PathValue("mid"),
		TradeID:    r.PathValue("tid"),
	}
}

// sanitizeInput strips control characters and trims whitespace from a name.
func sanitizeInput(s string) string {
	return strings.TrimSpace(sanitizeNote(s))
}

// sanitizeNote removes control characters other than tab and newlines,
// leaving the layout of free text as written.
func sanitizeNote(s string) string {
	return strings.Map(func(r rune) rune {
		if (r < 32 && r != 9 && r != 10 && r != 13) || r == 127 {
			return -1
		}
		return r
	}, s)
}
