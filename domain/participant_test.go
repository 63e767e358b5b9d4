package domain

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionID_Logged_As_UUID(t *testing.T) {
	req := require.New(t)
	id := NewConnectionID()

	// Given a JSON and a text logger
	var jsonOut, textOut bytes.Buffer
	slog.New(slog.NewJSONHandler(&jsonOut, nil)).Info("Connection opened", "connection", id)
	slog.New(slog.NewTextHandler(&textOut, nil)).Info("Connection opened", "connection", id)

	// Then both print the canonical identifier, not a byte array
	var line map[string]any
	req.NoError(json.Unmarshal(jsonOut.Bytes(), &line))
	req.Equal(id.String(), line["connection"])
	req.Contains(textOut.String(), "connection="+id.String())
}

func TestConnectionID_Text_Round_Trip(t *testing.T) {
	req := require.New(t)
	id := NewConnectionID()

	data, err := json.Marshal(map[string]ConnectionID{"id": id})
	req.NoError(err)
	req.JSONEq(`{"id":"`+id.String()+`"}`, string(data))

	var decoded map[string]ConnectionID
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal(id, decoded["id"])

	var bad ConnectionID
	req.Error(bad.UnmarshalText([]byte("not-a-uuid")))
}
