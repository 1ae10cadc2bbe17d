package server

import (
	"net/http"

	humanize "github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/pulsenet/SoftPWM/service/spwm"
)

type statusResponse struct {
	TicksDispatched string             `json:"ticks_dispatched"`
	Channels        []spwm.ChannelInfo `json:"channels"`
}

func (s *server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *server) handleChannels(c echo.Context) error {
	s.requestLog.Debug().
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Msg("channels request")
	resp := statusResponse{
		TicksDispatched: humanize.Comma(int64(s.api.TicksDispatched())),
		Channels:        s.api.Channels(),
	}
	return c.JSON(http.StatusOK, resp)
}
