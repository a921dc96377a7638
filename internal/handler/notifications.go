package handler

import (
    "context"
    "encoding/json"
    "net/http"
    "sort"
    "time"

    "github.com/gorilla/websocket"
    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/uniride/uniride-api/internal/apperr"
    "github.com/uniride/uniride-api/internal/notify"
    "github.com/uniride/uniride-api/internal/store"
)

const (
    wsWriteWait  = 10 * time.Second
    wsPongWait   = 60 * time.Second
    wsPingPeriod = 30 * time.Second
    wsReadLimit  = 1024
)

// NotificationHandler lists notifications and streams new ones over a
// WebSocket.
type NotificationHandler struct {
    Store    store.NotificationStore
    Hub      *notify.Hub
    Log      *zap.Logger
    upgrader websocket.Upgrader
}

// NewNotificationHandler builds the handler.  With no allowedOrigins every
// WebSocket origin is accepted; otherwise the Origin header must match one.
func NewNotificationHandler(st store.NotificationStore, hub *notify.Hub, log *zap.Logger, allowedOrigins ...string) *NotificationHandler {
    if log == nil {
        log = zap.NewNop()
    }
    allowed := make(map[string]bool, len(allowedOrigins))
    for _, o := range allowedOrigins {
        allowed[o] = true
    }
    return &NotificationHandler{
        Store: st,
        Hub:   hub,
        Log:   log.Named("notifications"),
        upgrader: websocket.Upgrader{
            ReadBufferSize:  1024,
            WriteBufferSize: 1024,
            CheckOrigin: func(r *http.Request) bool {
                if len(allowed) == 0 {
                    return true
                }
                return allowed[r.Header.Get("Origin")]
            },
        },
    }
}

// List returns the caller's notifications; ?unread=true keeps unread ones.
func (h *NotificationHandler) List(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    items, err := h.Store.ListNotifications(ctx, sess.UserID, c.QueryParam("unread") == "true")
    if err != nil {
        return fail(c, h.Log, apperr.Store("list notifications", err))
    }
    unread, err := h.Store.CountUnread(ctx, sess.UserID)
    if err != nil {
        return fail(c, h.Log, apperr.Store("count unread notifications", err))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "unread": unread})
}

// MarkRead flags one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    ctx, cancel := requestCtx(c)
    defer cancel()

    if err := h.Store.MarkNotificationRead(ctx, c.Param("id"), sess.UserID); err != nil {
        return fail(c, h.Log, storeErr("mark notification read", err))
    }
    return c.NoContent(http.StatusNoContent)
}

// wsMessage is the frame sent to stream clients.
type wsMessage struct {
    Type      string      `json:"type"`
    Payload   interface{} `json:"payload,omitempty"`
    Unread    int         `json:"unread"`
    Timestamp time.Time   `json:"timestamp"`
}

// wsCommand is a frame received from a stream client.
type wsCommand struct {
    Type string `json:"type"`
    ID   string `json:"id"`
}

// Stream upgrades to a WebSocket, sends a snapshot of the caller's
// notifications and then every new one addressed to them.  Clients mark
// notifications read with {"type":"mark_read","id":"..."}.  The hub
// subscription is released when the connection ends.
func (h *NotificationHandler) Stream(c echo.Context) error {
    sess, err := currentSession(c)
    if err != nil {
        return fail(c, h.Log, err)
    }
    conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
    if err != nil {
        h.Log.Warn("websocket upgrade failed", zap.Error(err))
        return nil
    }
    defer conn.Close()

    log := h.Log.With(zap.String("user_id", sess.UserID))
    sub := h.Hub.Subscribe(sess.UserID)
    defer sub.Close()

    feed := notify.NewFeed()
    ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
    items, err := h.Store.ListNotifications(ctx, sess.UserID, false)
    cancel()
    if err != nil {
        log.Warn("snapshot failed", zap.Error(err))
    }
    // stored newest first; the feed keeps newest last
    sort.SliceStable(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })
    for _, n := range items {
        feed.Apply(n)
    }
    // the snapshot is capped, so the badge comes from the store
    unread := feed.Unread()
    recount := func() {
        ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
        defer cancel()
        if n, err := h.Store.CountUnread(ctx, sess.UserID); err == nil {
            unread = n
        } else {
            log.Warn("unread count failed", zap.Error(err))
        }
    }
    recount()

    reads := make(chan string, 8)
    done := make(chan struct{})
    go h.readPump(conn, reads, done, log)

    send := func(typ string, payload interface{}) error {
        _ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
        return conn.WriteJSON(wsMessage{Type: typ, Payload: payload, Unread: unread, Timestamp: time.Now().UTC()})
    }
    if err := send("snapshot", feed.Items()); err != nil {
        return nil
    }

    ticker := time.NewTicker(wsPingPeriod)
    defer ticker.Stop()
    for {
        select {
        case <-done:
            return nil
        case n, ok := <-sub.C:
            if !ok {
                _ = conn.WriteControl(websocket.CloseMessage,
                    websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
                    time.Now().Add(wsWriteWait))
                return nil
            }
            if !feed.Apply(n) {
                continue
            }
            if !n.Read {
                unread++
            }
            if err := send("notification", n); err != nil {
                return nil
            }
        case id := <-reads:
            ctx, cancel := context.WithTimeout(context.Background(), dbTimeout)
            err := h.Store.MarkNotificationRead(ctx, id, sess.UserID)
            cancel()
            if err != nil {
                log.Warn("mark read failed", zap.String("notification_id", id), zap.Error(err))
                if err := send("error", echo.Map{"id": id, "error": "could not mark as read"}); err != nil {
                    return nil
                }
                continue
            }
            if feed.MarkRead(id) {
                unread--
            } else {
                recount()
            }
            if err := send("read", echo.Map{"id": id}); err != nil {
                return nil
            }
        case <-ticker.C:
            if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
                return nil
            }
        }
    }
}

// readPump reads client frames until the connection fails, forwarding
// mark_read ids to the writer.
func (h *NotificationHandler) readPump(conn *websocket.Conn, reads chan<- string, done chan<- struct{}, log *zap.Logger) {
    defer close(done)
    conn.SetReadLimit(wsReadLimit)
    _ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
    conn.SetPongHandler(func(string) error {
        return conn.SetReadDeadline(time.Now().Add(wsPongWait))
    })
    for {
        _, data, err := conn.ReadMessage()
        if err != nil {
            if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
                log.Debug("websocket closed", zap.Error(err))
            }
            return
        }
        var cmd wsCommand
        if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type != "mark_read" || cmd.ID == "" {
            continue
        }
        select {
        case reads <- cmd.ID:
        default:
            log.Debug("dropping mark_read, writer busy", zap.String("notification_id", cmd.ID))
        }
    }
}

