package api

import (
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/fin-processor/backend/internal/processor"
)

// respond encodes body as msgpack when the client's Accept header asks for
// it, otherwise as JSON.
func respond(c echo.Context, status int, body interface{}) error {
	if !processor.IsMsgpackMediaType(c.Request().Header.Get(echo.HeaderAccept)) {
		return c.JSON(status, body)
	}

	data, err := msgpack.Marshal(body)
	if err != nil {
		return err
	}
	return c.Blob(status, processor.MIMEApplicationMsgpack, data)
}
