package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/BioHazard786/roomrelay/internal/dns"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

var httpClient = &http.Client{
	Transport: &http.Transport{
		DialContext:       dns.New().DialContext,
		ForceAttemptHTTP2: true,
	},
}

// FetchRooms reads the relay's room snapshot from roomsURL.
func FetchRooms(ctx context.Context, roomsURL string) ([]signaling.RoomInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, roomsURL, nil)
	if err != nil {
		return nil, NewError("build rooms request", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, NewError("fetch rooms", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewError("fetch rooms", fmt.Errorf("unexpected status %s", resp.Status))
	}

	var rooms []signaling.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return nil, NewError("decode rooms", err)
	}
	return rooms, nil
}
