package echoapi

import (
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shkola/core"
)

const idParam = "id"

// pathID parses the `:id` path param. Anything but a positive integer matches no resource.
func pathID(ctx echo.Context) (int, error) {
	id, err := strconv.Atoi(ctx.Param(idParam))
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// emailParam returns the cleaned `:email` path param, which may arrive escaped.
func emailParam(ctx echo.Context) string {
	email := ctx.Param("email")
	if unescaped, err := url.PathUnescape(email); err == nil {
		email = unescaped
	}
	return core.CleanString(email, true /* lower */)
}

// queryID parses an optional id query param; ok is false when the param is absent.
func queryID(ctx echo.Context, name string) (id int, ok bool, err error) {
	val := ctx.QueryParam(name)
	if val == "" {
		return 0, false, nil
	}
	id, err = strconv.Atoi(val)
	if err != nil || id <= 0 {
		return 0, false, core.NewValidationError(nil, core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return id, true, nil
}

// IDsRequest is the payload of the batch association endpoints.
type IDsRequest struct {
	IDs []int `json:"ids" validate:"required,min=1,dive,gt=0"`
}

func bindIDs(ctx echo.Context, validate *validator.Validate) ([]int, error) {
	var data IDsRequest
	if err := ctx.Bind(&data); err != nil {
		return nil, errors.Wrap(err, "binding to IDsRequest")
	}
	if err := validate.Struct(&data); err != nil {
		return nil, err
	}
	return core.UniqueInts(data.IDs), nil
}
