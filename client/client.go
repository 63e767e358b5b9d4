// Package client speaks the chat protocol from the other side of the socket.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"polychat/infrastructure/ws"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Received is an outbound envelope as seen by a client, data left raw.
type Received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	conn *websocket.Conn
}

func Dial(ctx context.Context, url string, header http.Header) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) send(ctx context.Context, msgType string, payload any) error {
	in := ws.Inbound{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		in.Data = raw
	}
	return wsjson.Write(ctx, c.conn, in)
}

func (c *Client) Join(ctx context.Context, roomID, displayName, languageCode string) error {
	return c.send(ctx, ws.JoinRoomType, ws.JoinRoomPayload{RoomID: roomID, DisplayName: displayName, LanguageCode: languageCode})
}

func (c *Client) Send(ctx context.Context, roomID, text, sourceLanguage string) error {
	return c.send(ctx, ws.SendMessageType, ws.SendMessagePayload{RoomID: roomID, Text: text, SourceLanguage: sourceLanguage})
}

func (c *Client) Leave(ctx context.Context) error {
	return c.send(ctx, ws.LeaveRoomType, nil)
}

// Next blocks until the server pushes something.
func (c *Client) Next(ctx context.Context) (Received, error) {
	var r Received
	err := wsjson.Read(ctx, c.conn, &r)
	return r, err
}

// NextOf skips envelopes until one of msgType arrives and decodes its data into dst.
func (c *Client) NextOf(ctx context.Context, msgType string, dst any) error {
	for {
		r, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if r.Type == msgType {
			return json.Unmarshal(r.Data, dst)
		}
	}
}

func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}
