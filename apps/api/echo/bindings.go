package echoapi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/tarpaulin/core"
)

const pageParam = "page"

// pageNumber reads the 1-based `page` query parameter; anything unparsable is page 1.
func pageNumber(ctx echo.Context) int {
	page, err := strconv.Atoi(strings.TrimSpace(ctx.QueryParam(pageParam)))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// queryFilters turns the whitelisted query parameters into equality predicates.
func queryFilters(ctx echo.Context, fields ...string) []core.Predicate {
	params := make(map[string]string, len(fields))
	for _, field := range fields {
		params[field] = ctx.QueryParam(field)
	}
	return core.WhereParams(params, fields...)
}

// bindPayload decodes a JSON object body, keyed by presentation names.
func bindPayload(ctx echo.Context) (map[string]interface{}, error) {
	var payload map[string]interface{}
	if err := json.NewDecoder(ctx.Request().Body).Decode(&payload); err != nil || payload == nil {
		return nil, errInvalidBody
	}
	return payload, nil
}

// idParam reads an integer path parameter; a malformed id names no resource.
func idParam(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// payloadInt reads an integer field of a payload as the schema would coerce it.
func payloadInt(payload map[string]interface{}, field string, coerce func(string, interface{}) interface{}) (int, bool) {
	v, ok := payload[field]
	if !ok || v == nil {
		return 0, false
	}
	id, ok := coerce(field, v).(int)
	return id, ok
}
