package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/labstack/echo/v4"
)

const maxBodySize = 1 << 20

// decodeJSON reads the request body into dst. An empty body is accepted when
// optional is set. Unknown fields are rejected.
func decodeJSON(c echo.Context, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fail(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}
