package probe

import (
	"encoding/json"
	"fmt"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/config"
)

// DataChannelLabel names the probe channel.
const DataChannelLabel = "roomrelay-probe"

// NewPeerConnection builds a peer connection using the configured ICE servers.
// With a TURN server available, relay-only mode is used when forced or when
// the host looks like it sits behind a tunnel.
func NewPeerConnection(cfg *config.ClientConfig) (*pion.PeerConnection, error) {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}
	if turn := cfg.GetTURNServers(); turn != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if cfg.TURNServer != "" && (cfg.ForceRelay || behindTunnel()) {
		policy = pion.ICETransportPolicyRelay
	}

	pc, err := pion.NewPeerConnection(pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, client.NewError("create peer connection", err)
	}
	return pc, nil
}

// CreateDataChannel opens the ordered, reliable probe channel.
func CreateDataChannel(pc *pion.PeerConnection) (*pion.DataChannel, error) {
	ordered := true
	dc, err := pc.CreateDataChannel(DataChannelLabel, &pion.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, client.NewError("create data channel", err)
	}
	return dc, nil
}

// CreateOffer creates an offer and sets it as the local description.
func CreateOffer(pc *pion.PeerConnection) (*pion.SessionDescription, error) {
	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return nil, client.NewError("create offer", err)
	}
	if err = pc.SetLocalDescription(offer); err != nil {
		return nil, client.NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

// CreateAnswer applies offer and answers it.
func CreateAnswer(pc *pion.PeerConnection, offer pion.SessionDescription) (*pion.SessionDescription, error) {
	if err := pc.SetRemoteDescription(offer); err != nil {
		return nil, client.NewError("set remote description", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return nil, client.NewError("create answer", err)
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return nil, client.NewError("set local description", err)
	}
	return pc.LocalDescription(), nil
}

// ParseDescription converts a relayed sdp/type pair.
func ParseDescription(sdpType, sdp string) (pion.SessionDescription, error) {
	switch sdpType {
	case "offer":
		return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}, nil
	case "answer":
		return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: sdp}, nil
	default:
		return pion.SessionDescription{}, client.WrapError("parse description", client.ErrUnexpectedSignal, sdpType)
	}
}

// ParseCandidate decodes a relayed candidate.
func ParseCandidate(raw json.RawMessage) (pion.ICECandidateInit, error) {
	var ice pion.ICECandidateInit
	if len(raw) == 0 {
		return ice, fmt.Errorf("empty candidate")
	}
	if err := json.Unmarshal(raw, &ice); err != nil {
		return ice, client.NewError("parse ICE candidate", err)
	}
	return ice, nil
}
