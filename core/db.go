package core

import (
	"context"
	"math"
)

// PageSize is the fixed number of rows per listing page.
const PageSize = 10

type Operator string

const (
	OpEq    Operator = "="
	OpNotEq Operator = "<>"
	OpIn    Operator = "IN"
)

// Predicate is a single (field, operator, value) condition.
// Field is the presentation name of an entity field (e.g. "courseId").
// Predicates passed together are AND-combined.
type Predicate struct {
	Field string
	Op    Operator
	Value interface{}
}

func Where(field string, value interface{}) Predicate {
	return Predicate{Field: field, Op: OpEq, Value: value}
}

func In(field string, values ...interface{}) Predicate {
	return Predicate{Field: field, Op: OpIn, Value: values}
}

func IntsIn(field string, ids ...int) Predicate {
	values := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		values = append(values, id)
	}
	return In(field, values...)
}

// WhereParams selects AND-ed equality predicates from params, keeping only whitelisted, non-empty fields.
func WhereParams(params map[string]string, whitelist ...string) []Predicate {
	preds := make([]Predicate, 0, len(whitelist))
	for _, field := range whitelist {
		if val, ok := params[field]; ok && val != "" {
			preds = append(preds, Where(field, val))
		}
	}
	return preds
}

// Repository is the generic persistence gateway of an entity T.
// Payloads are keyed by presentation names.
type Repository[T any] interface {
	Create(ctx context.Context, payload map[string]interface{}) (T, error)
	FindBy(ctx context.Context, field string, value interface{}) (T, error)
	Count(ctx context.Context, filters ...Predicate) (int, error)
	All(ctx context.Context, offset, limit int, filters ...Predicate) ([]T, error)
	Update(ctx context.Context, id int, payload map[string]interface{}) (T, error)
	Destroy(ctx context.Context, id int) error
	DestroyWhere(ctx context.Context, filters ...Predicate) (int, error)
}

type Page struct {
	Number   int `json:"page"`
	PerPage  int `json:"perPage"`
	Total    int `json:"total"`
	LastPage int `json:"lastPage"`
	Offset   int `json:"-"`
}

// Paginate clamps the requested 1-based page to [1, last page] (page 1 when there are no rows).
func Paginate(total, page, perPage int) Page {
	if perPage < 1 {
		perPage = PageSize
	}
	last := int(math.Ceil(float64(total) / float64(perPage)))
	if last < 1 {
		last = 1
	}
	if page < 1 {
		page = 1
	}
	if page > last {
		page = last
	}
	return Page{
		Number:   page,
		PerPage:  perPage,
		Total:    total,
		LastPage: last,
		Offset:   (page - 1) * perPage,
	}
}
