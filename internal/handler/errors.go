package handler

import (
    "errors"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"
)

// ErrorHandler renders every error as JSON.  Unknown routes get the
// {"success": false, "message": "Route not found"} body; other client
// errors use {"error": message}.  Internal details are logged, not sent.
func ErrorHandler(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }

    code := http.StatusInternalServerError
    msg := "internal server error"
    var he *echo.HTTPError
    if errors.As(err, &he) {
        code = he.Code
        if code < http.StatusInternalServerError {
            msg = fmt.Sprint(he.Message)
        }
        if he.Internal != nil {
            c.Logger().Debugf("request error: %v", he.Internal)
        }
    }
    if code >= http.StatusInternalServerError {
        c.Logger().Errorf("request failed: %v", err)
    }

    var body echo.Map
    if code == http.StatusNotFound {
        body = echo.Map{"success": false, "message": "Route not found"}
    } else {
        body = echo.Map{"error": msg}
    }

    if c.Request().Method == http.MethodHead {
        err = c.NoContent(code)
    } else {
        err = c.JSON(code, body)
    }
    if err != nil {
        c.Logger().Error(err)
    }
}
