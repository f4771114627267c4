package filmhive

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxCommentLength = 1000
	MaxReplyLength   = 500

	// StaffPageSize and MoviePageSize are the page sizes of the moderation
	// list and the per-movie list.
	StaffPageSize = 20
	MoviePageSize = 10
	MaxPageSize   = 100

	dateLayout = "2006-01-02"
)

// Sort keys accepted by the comment listings.
const (
	SortByCreatedAt  = "created_at"
	SortByMovieTitle = "movie_title"
	SortByUsername   = "username"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// CleanCommentText trims text and checks it against the comment limits.
func CleanCommentText(text string) (string, error) {
	return cleanText("comment_text", text, MaxCommentLength)
}

// CleanReplyText trims text and checks it against the reply limits.
func CleanReplyText(text string) (string, error) {
	return cleanText("text", text, MaxReplyLength)
}

func cleanText(field, text string, max int) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", &ValidationError{Field: field, Err: ErrEmptyText}
	}
	if n := utf8.RuneCountInString(t); n > max {
		return "", &ValidationError{Field: field, Err: fmt.Errorf("%w: %d characters, at most %d allowed", ErrTextTooLong, n, max)}
	}
	return t, nil
}

// ListFilters narrows and orders a comment listing. Zero fields are omitted
// from the query and the server defaults apply.
type ListFilters struct {
	Page      int    `json:"page,omitempty"`
	PerPage   int    `json:"per_page,omitempty"`
	Search    string `json:"search,omitempty"`
	DateFrom  string `json:"date_from,omitempty"`
	DateTo    string `json:"date_to,omitempty"`
	SortBy    string `json:"sort_by,omitempty"`
	SortOrder string `json:"sort_order,omitempty"`
}

// Validate rejects filters the API would refuse.
func (f ListFilters) Validate() error {
	// Zero page and per_page are left out of the query; the server defaults them.
	if f.Page < 0 {
		return filterErr("page", "must not be negative")
	}
	if f.PerPage < 0 || f.PerPage > MaxPageSize {
		return filterErr("per_page", fmt.Sprintf("must be between 0 and %d", MaxPageSize))
	}
	switch f.SortBy {
	case "", SortByCreatedAt, SortByMovieTitle, SortByUsername:
	default:
		return filterErr("sort_by", fmt.Sprintf("unknown sort key %q", f.SortBy))
	}
	switch f.SortOrder {
	case "", SortAsc, SortDesc:
	default:
		return filterErr("sort_order", fmt.Sprintf("unknown sort order %q", f.SortOrder))
	}
	from, err := parseDate("date_from", f.DateFrom)
	if err != nil {
		return err
	}
	to, err := parseDate("date_to", f.DateTo)
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return filterErr("date_to", "must not be before date_from")
	}
	return nil
}

// Query encodes the non-zero filters.
func (f ListFilters) Query() url.Values {
	q := url.Values{}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	if f.DateFrom != "" {
		q.Set("date_from", f.DateFrom)
	}
	if f.DateTo != "" {
		q.Set("date_to", f.DateTo)
	}
	if f.SortBy != "" {
		q.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		q.Set("sort_order", f.SortOrder)
	}
	return q
}

// ParseListFilters reads filters from a query string, as sent by the
// console's list pages. Unparseable numbers become zero; Validate catches the rest.
func ParseListFilters(q url.Values, defaultPerPage int) ListFilters {
	f := ListFilters{
		Search:    strings.TrimSpace(q.Get("search")),
		DateFrom:  strings.TrimSpace(q.Get("date_from")),
		DateTo:    strings.TrimSpace(q.Get("date_to")),
		SortBy:    strings.TrimSpace(q.Get("sort_by")),
		SortOrder: strings.ToLower(strings.TrimSpace(q.Get("sort_order"))),
		PerPage:   defaultPerPage,
		Page:      1,
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		f.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil {
		f.PerPage = n
	}
	return f
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, filterErr(field, "must be a YYYY-MM-DD date")
	}
	return t, nil
}

func filterErr(field, reason string) error {
	return &ValidationError{Field: field, Err: fmt.Errorf("%w: %s", ErrInvalidFilter, reason)}
}
