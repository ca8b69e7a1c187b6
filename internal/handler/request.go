package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
)

var (
    // ErrTextRequired is returned when the body has no "text" string.
    ErrTextRequired = errors.New("text is required")
    // ErrTextTooLarge is returned when "text" exceeds the configured limit.
    ErrTextTooLarge = errors.New("text is too large")
)

// TextRequest is the body accepted by both text endpoints.  Text is a
// pointer so a missing field can be told apart from an empty string, which
// is valid input.
type TextRequest struct {
    Text *string `json:"text"`
}

// bindText binds and validates the request body.  A non-nil error is an
// *echo.HTTPError ready to be returned by the handler.
func bindText(c echo.Context, maxBytes int) (string, error) {
    var req TextRequest
    if err := c.Bind(&req); err != nil {
        var he *echo.HTTPError
        if errors.As(err, &he) && he.Code == http.StatusUnsupportedMediaType {
            return "", he
        }
        return "", echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
    }
    if req.Text == nil {
        return "", echo.NewHTTPError(http.StatusBadRequest, ErrTextRequired.Error()).SetInternal(ErrTextRequired)
    }
    if maxBytes > 0 && len(*req.Text) > maxBytes {
        return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrTextTooLarge.Error()).SetInternal(ErrTextTooLarge)
    }
    return *req.Text, nil
}
