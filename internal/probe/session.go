package probe

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/roomrelay/internal/client"
	"github.com/BioHazard786/roomrelay/internal/config"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

// Role decides who creates the offer.
type Role string

const (
	RoleOfferer  Role = "offerer"
	RoleAnswerer Role = "answerer"
)

// Signaler carries negotiation messages to the other room member.
// *client.Client implements it.
type Signaler interface {
	SendDescription(roomID, sdpType, sdp string) error
	SendCandidate(roomID string, candidate any) error
}

// Result summarizes a finished probe.
type Result struct {
	Role             Role
	RoomID           string
	ConnectTime      time.Duration
	RoundTrip        time.Duration
	LocalCandidates  int
	RemoteCandidates int
}

// Session negotiates one peer connection through the relay and measures a
// ping round trip over a data channel.
//
// Each side sends one ping and answers the other side's ping; the probe is
// done when both have happened.
type Session struct {
	roomID   string
	role     Role
	pc       *pion.PeerConnection
	signaler Signaler
	log      *slog.Logger

	started time.Time

	mu         sync.Mutex
	remoteSet  bool
	pending    []pion.ICECandidateInit
	opened     time.Time
	roundTrip  time.Duration
	gotPong    bool
	sentPong   bool
	finishOnce sync.Once

	localCandidates  atomic.Int32
	remoteCandidates atomic.Int32

	done   chan struct{}
	failed chan error
}

// NewSession prepares a probe for roomID. Nothing is sent until Start.
func NewSession(cfg *config.ClientConfig, roomID string, role Role, signaler Signaler, log *slog.Logger) (*Session, error) {
	pc, err := NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	s := &Session{
		roomID:   roomID,
		role:     role,
		pc:       pc,
		signaler: signaler,
		log:      log.With("role", role, "room", roomID),
		done:     make(chan struct{}),
		failed:   make(chan error, 1),
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if c == nil {
			return
		}
		s.localCandidates.Add(1)
		if err := signaler.SendCandidate(roomID, c.ToJSON()); err != nil {
			s.fail(client.NewError("send candidate", err))
		}
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		s.log.Debug("peer connection state", "state", state.String())
		if state == pion.PeerConnectionStateFailed {
			s.fail(client.WrapError("peer connection", client.ErrServerClosed, "ICE failed"))
		}
	})
	pc.OnDataChannel(func(dc *pion.DataChannel) {
		if dc.Label() == DataChannelLabel {
			s.attach(dc)
		}
	})
	return s, nil
}

// Start begins negotiation. Only the offerer sends anything; the answerer
// waits for the offer.
func (s *Session) Start() error {
	s.started = time.Now()
	if s.role != RoleOfferer {
		return nil
	}

	dc, err := CreateDataChannel(s.pc)
	if err != nil {
		return err
	}
	s.attach(dc)

	offer, err := CreateOffer(s.pc)
	if err != nil {
		return err
	}
	return s.signaler.SendDescription(s.roomID, signaling.EventOffer, offer.SDP)
}

// HandleDescription applies a relayed offer or answer.
func (s *Session) HandleDescription(d signaling.RelayedDescription) error {
	desc, err := ParseDescription(d.Type, d.SDP)
	if err != nil {
		return err
	}

	switch {
	case desc.Type == pion.SDPTypeOffer && s.role == RoleAnswerer:
		answer, err := CreateAnswer(s.pc, desc)
		if err != nil {
			return err
		}
		s.remoteReady()
		return s.signaler.SendDescription(s.roomID, signaling.EventAnswer, answer.SDP)

	case desc.Type == pion.SDPTypeAnswer && s.role == RoleOfferer:
		if err := s.pc.SetRemoteDescription(desc); err != nil {
			return client.NewError("set remote description", err)
		}
		s.remoteReady()
		return nil

	default:
		return client.WrapError("handle description", client.ErrUnexpectedSignal, d.Type)
	}
}

// HandleCandidate adds a relayed candidate, queueing it until the remote
// description is known.
func (s *Session) HandleCandidate(raw json.RawMessage) error {
	ice, err := ParseCandidate(raw)
	if err != nil {
		return err
	}
	s.remoteCandidates.Add(1)

	s.mu.Lock()
	if !s.remoteSet {
		s.pending = append(s.pending, ice)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.pc.AddICECandidate(ice); err != nil {
		return client.NewError("add ICE candidate", err)
	}
	return nil
}

// Wait blocks until the probe finishes, fails, or ctx ends.
func (s *Session) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-s.done:
	case err := <-s.failed:
		return nil, err
	case <-ctx.Done():
		return nil, client.WrapError("probe", client.ErrTimeout, ctx.Err().Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return &Result{
		Role:             s.role,
		RoomID:           s.roomID,
		ConnectTime:      s.opened.Sub(s.started),
		RoundTrip:        s.roundTrip,
		LocalCandidates:  int(s.localCandidates.Load()),
		RemoteCandidates: int(s.remoteCandidates.Load()),
	}, nil
}

// Close tears down the peer connection.
func (s *Session) Close() error {
	return s.pc.Close()
}

func (s *Session) remoteReady() {
	s.mu.Lock()
	s.remoteSet = true
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ice := range pending {
		if err := s.pc.AddICECandidate(ice); err != nil {
			s.log.Debug("dropping queued candidate", "error", err)
		}
	}
}

func (s *Session) attach(dc *pion.DataChannel) {
	dc.OnOpen(func() {
		s.mu.Lock()
		s.opened = time.Now()
		s.mu.Unlock()

		frame, err := Encode(TypePing, PingPayload{Seq: 1, SentAt: time.Now().UnixNano()})
		if err != nil {
			s.fail(client.NewError("encode ping", err))
			return
		}
		if err := dc.Send(frame); err != nil {
			s.fail(client.NewError("send ping", err))
		}
	})

	dc.OnMessage(func(m pion.DataChannelMessage) {
		msg, err := Decode(m.Data)
		if err != nil {
			s.log.Debug("undecodable probe frame", "error", err)
			return
		}
		var ping PingPayload
		if err := msg.DecodePayload(&ping); err != nil {
			s.log.Debug("undecodable probe payload", "type", msg.Type, "error", err)
			return
		}

		switch msg.Type {
		case TypePing:
			frame, err := Encode(TypePong, ping)
			if err != nil {
				s.fail(client.NewError("encode pong", err))
				return
			}
			if err := dc.Send(frame); err != nil {
				s.fail(client.NewError("send pong", err))
				return
			}
			s.mu.Lock()
			s.sentPong = true
			s.mu.Unlock()

		case TypePong:
			s.mu.Lock()
			s.gotPong = true
			s.roundTrip = time.Since(time.Unix(0, ping.SentAt))
			s.mu.Unlock()
		}
		s.maybeFinish()
	})
}

func (s *Session) maybeFinish() {
	s.mu.Lock()
	finished := s.gotPong && s.sentPong
	s.mu.Unlock()
	if finished {
		s.finishOnce.Do(func() { close(s.done) })
	}
}

func (s *Session) fail(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	select {
	case s.failed <- err:
	default:
	}
}
