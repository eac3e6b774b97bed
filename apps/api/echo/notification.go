package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/skripsi/core"
	"github.com/trezcool/skripsi/core/notification"
)

// streamHeartbeat keeps idle event streams open through proxies.
var streamHeartbeat = 25 * time.Second

type notificationApi struct {
	auth   *authenticator
	svc    notification.Service
	logger core.Logger
}

type (
	UnreadCountResponse struct {
		Unread int `json:"unread"`
	}

	MarkReadResponse struct {
		Read int `json:"read"`
	}
)

func registerNotificationAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	auth *authenticator,
	svc notification.Service,
	logger core.Logger,
) {
	api := notificationApi{auth: auth, svc: svc, logger: logger}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.query)
	ng.GET("/unread-count", api.unreadCount)
	ng.GET("/stream", api.stream)
	ng.POST("/read-all", api.markAllRead)
	ng.POST("/:id/read", api.markRead)
}

func (api *notificationApi) query(ctx echo.Context) error {
	var filter notification.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errHttpBadQuery
	}
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	filter.UserID = claims.Subject

	notes, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	n, err := api.svc.UnreadCount(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Unread: n})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	n, err := api.svc.MarkRead(ctx.Request().Context(), claims.Subject, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, MarkReadResponse{Read: n})
}

func (api *notificationApi) markAllRead(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	n, err := api.svc.MarkRead(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, MarkReadResponse{Read: n})
}

// stream pushes the user's new notifications as Server-Sent Events until the client goes away.
// The subscription is closed on every exit path.
func (api *notificationApi) stream(ctx echo.Context) error {
	claims, err := api.auth.contextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	reqCtx := ctx.Request().Context()
	sub, err := api.svc.Subscribe(reqCtx, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "subscribing to notifications")
	}
	defer func() {
		if err := sub.Close(); err != nil {
			api.logger.Warn(fmt.Sprintf("notification stream: closing subscription of %s: %v", claims.Subject, err), err)
		}
	}()

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no")
	res.WriteHeader(http.StatusOK)

	unread, err := api.svc.UnreadCount(reqCtx, claims.Subject)
	if err != nil {
		api.logger.Warn(fmt.Sprintf("notification stream: counting unread of %s: %v", claims.Subject, err), err)
	}
	if err = writeEvent(res, "", "unread", UnreadCountResponse{Unread: unread}); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(streamHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-reqCtx.Done():
			return nil
		case note, ok := <-sub.C():
			if !ok {
				return nil
			}
			if err = writeEvent(res, note.ID, "notification", note); err != nil {
				return nil // client went away
			}
		case <-heartbeat.C:
			if _, err = fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(res *echo.Response, id, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	if id != "" {
		if _, err = fmt.Fprintf(res, "id: %s\n", id); err != nil {
			return err
		}
	}
	if _, err = fmt.Fprintf(res, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	res.Flush()
	return nil
}
