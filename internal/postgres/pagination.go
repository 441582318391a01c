package postgres

import "errors"

var ErrInvalidPage = errors.New("invalid pagination")

// Page is 1-indexed page/per_page pagination for the REST message
// listing. Zero values take the defaults; explicit non-positive values
// are rejected.
type Page struct {
	Page    int
	PerPage int
}

func NewPage(page, perPage int) (Page, error) {
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = 20
	}
	if page < 1 || perPage < 1 {
		return Page{}, ErrInvalidPage
	}
	return Page{Page: page, PerPage: perPage}, nil
}

func (p Page) LimitOffset() (limit, offset int) {
	return p.PerPage, (p.Page - 1) * p.PerPage
}
