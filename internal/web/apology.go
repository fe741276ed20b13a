package web

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// escapeReplacer rewrites characters the meme image service treats as
// special. No replacement produces a character an earlier rule consumes, so a
// single pass equals applying them in order.
var escapeReplacer = strings.NewReplacer(
	"-", "--",
	" ", "-",
	"_", "__",
	"?", "~q",
	"%", "~p",
	"#", "~h",
	"/", "~s",
	`"`, "''",
)

// Escape encodes msg for use as a path segment of an apology image.
func Escape(msg string) string {
	return escapeReplacer.Replace(msg)
}

type apologyView struct {
	Code    int
	Top     string
	Bottom  string
	Message string
}

// apology renders msg as an apology page with the given status code.
func apology(c echo.Context, msg string, code int) error {
	if code < 400 || code > 599 {
		code = http.StatusBadRequest
	}
	return c.Render(code, "apology.html", apologyView{
		Code:    code,
		Top:     strconv.Itoa(code),
		Bottom:  Escape(msg),
		Message: msg,
	})
}
