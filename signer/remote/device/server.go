// Package device serves a signing backend over the remote signer protocol.
// It stands in for a hardware wallet in tests and development setups.
package device

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/openweb3-io/liquidsigner/signer/remote"
	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/psetv2"
	"go.uber.org/zap"
)

// Backend holds the keys the device signs with.
type Backend interface {
	DeriveXpub(ctx context.Context, path keys.DerivationPath) (*keys.ExtendedPubKey, error)
	Slip77MasterBlindingKey(ctx context.Context) (keys.MasterBlindingKey, error)
	Sign(ctx context.Context, p *psetv2.Pset) (uint32, error)
}

// Approver is asked before every signature, as an operator would be on screen.
type Approver func(p *psetv2.Pset) bool

type Option func(*Server)

func WithApprover(approve Approver) Option {
	return func(s *Server) {
		s.approve = approve
	}
}

// WithDelay makes the device wait before answering each request.
func WithDelay(d time.Duration) Option {
	return func(s *Server) {
		s.delay = d
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

type Server struct {
	// held while a request is served; a second session is answered busy
	mu       sync.Mutex
	backend  Backend
	approve  Approver
	delay    time.Duration
	log      *zap.Logger
	upgrader websocket.Upgrader
}

var _ http.Handler = &Server{}

func NewServer(backend Backend, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		approve: func(*psetv2.Pset) bool { return true },
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	s.log.Debug("session opened", zap.String("remote", r.RemoteAddr))

	for {
		var req remote.Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("session closed", zap.Error(err))
			}
			return
		}
		resp := s.Handle(r.Context(), &req)
		if err := conn.WriteJSON(resp); err != nil {
			s.log.Debug("write failed", zap.Error(err))
			return
		}
	}
}

// Handle answers a single request. Like a single device, it serves one
// request at a time and answers types.ErrBusy to anything arriving meanwhile.
func (s *Server) Handle(ctx context.Context, req *remote.Request) *remote.Response {
	if !s.mu.TryLock() {
		s.log.Info("device busy", zap.String("method", string(req.Method)))
		return remote.NewErrorResponse(req.ID, types.WrapErr(types.ErrBusy, nil))
	}
	defer s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	result, rerr := s.dispatch(ctx, req)
	if rerr != nil {
		s.log.Info("request failed",
			zap.String("method", string(req.Method)),
			zap.Int32("code", rerr.Code),
		)
		return remote.NewErrorResponse(req.ID, rerr)
	}
	resp, err := remote.NewResult(req.ID, result)
	if err != nil {
		return remote.NewErrorResponse(req.ID, types.WrapErr(types.ErrInternal, err))
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, req *remote.Request) (any, *types.Error) {
	switch req.Method {
	case remote.MethodGetXpub:
		var params remote.GetXpubParams
		if err := decodeParams(req, &params); err != nil {
			return nil, types.WrapErr(types.ErrInvalidRequest, err)
		}
		path, err := keys.ParsePath(params.Path)
		if err != nil {
			return nil, types.WrapErr(types.ErrDerivation, err)
		}
		xpub, err := s.backend.DeriveXpub(ctx, path)
		if err != nil {
			return nil, types.WrapErr(types.ErrDerivation, err)
		}
		return remote.GetXpubResult{Xpub: xpub.String()}, nil

	case remote.MethodGetMasterBlindingKey:
		k, err := s.backend.Slip77MasterBlindingKey(ctx)
		if err != nil {
			return nil, types.WrapErr(types.ErrDerivation, err)
		}
		return remote.MasterBlindingKeyResult{Key: k.String()}, nil

	case remote.MethodSignPset:
		var params remote.SignPsetParams
		if err := decodeParams(req, &params); err != nil {
			return nil, types.WrapErr(types.ErrInvalidRequest, err)
		}
		p, err := psetv2.NewPsetFromBase64(params.Pset)
		if err != nil {
			return nil, types.WrapErr(types.ErrInvalidRequest, err)
		}
		if !s.approve(p) {
			return nil, types.WrapErr(types.ErrRejected, nil)
		}
		signed, err := s.backend.Sign(ctx, p)
		if err != nil {
			return nil, types.WrapErr(types.ErrSigning, err)
		}
		b64, err := p.ToBase64()
		if err != nil {
			return nil, types.WrapErr(types.ErrInternal, err)
		}
		return remote.SignPsetResult{Pset: b64, Signed: signed}, nil
	}
	return nil, types.WrapErr(types.ErrUnknownMethod, errors.Errorf("method %q", req.Method))
}

func decodeParams(req *remote.Request, v any) error {
	if len(req.Params) == 0 {
		return errors.New("missing params")
	}
	return json.Unmarshal(req.Params, v)
}
