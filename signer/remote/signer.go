package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/openweb3-io/liquidsigner/keys"
	"github.com/pkg/errors"
	"github.com/vulpemventures/go-elements/psetv2"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

type Option func(*Signer)

// WithTimeout bounds every round-trip, including the time the operator
// spends confirming on the device.
func WithTimeout(d time.Duration) Option {
	return func(s *Signer) {
		s.timeout = d
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Signer) {
		s.log = log
	}
}

// Signer forwards the signing capability to an external device. Calls are
// serialized: the session handles one request at a time.
type Signer struct {
	mu        sync.Mutex
	transport Transport
	timeout   time.Duration
	log       *zap.Logger
}

func New(transport Transport, opts ...Option) *Signer {
	s := &Signer{
		transport: transport,
		timeout:   DefaultTimeout,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials a websocket device and opens a session on it.
func Connect(ctx context.Context, url string, opts ...Option) (*Signer, error) {
	s := New(nil, opts...)
	transport, err := Dial(ctx, url, WithTransportLogger(s.log), WithHandshakeTimeout(s.timeout))
	if err != nil {
		return nil, err
	}
	s.transport = transport
	return s, nil
}

func (s *Signer) call(ctx context.Context, method Method, params any, result any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := NewRequest(method, params)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := s.transport.RoundTrip(ctx, req)
	log := s.log.With(zap.String("method", string(method)), zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		log.Warn("device call failed", zap.Error(err))
		return err
	}
	if resp.Error != nil {
		log.Info("device returned an error", zap.Int32("code", resp.Error.Code))
		return &DeviceError{Method: method, Err: resp.Error}
	}
	log.Debug("device call")
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return errors.Wrapf(ErrProtocol, "decode %s result: %v", method, err)
	}
	return nil
}

func (s *Signer) DeriveXpub(ctx context.Context, path keys.DerivationPath) (*keys.ExtendedPubKey, error) {
	var result GetXpubResult
	if err := s.call(ctx, MethodGetXpub, GetXpubParams{Path: path.String()}, &result); err != nil {
		return nil, err
	}
	xpub, err := keys.ParseExtendedPubKey(result.Xpub)
	if err != nil {
		return nil, errors.Wrapf(ErrProtocol, "xpub: %v", err)
	}
	if int(xpub.Depth()) != path.Len() {
		return nil, errors.Wrapf(ErrProtocol, "xpub depth %d for path %q", xpub.Depth(), path)
	}
	return xpub, nil
}

func (s *Signer) Slip77MasterBlindingKey(ctx context.Context) (keys.MasterBlindingKey, error) {
	var result MasterBlindingKeyResult
	if err := s.call(ctx, MethodGetMasterBlindingKey, nil, &result); err != nil {
		return keys.MasterBlindingKey{}, err
	}
	k, err := keys.ParseMasterBlindingKey(result.Key)
	if err != nil {
		return keys.MasterBlindingKey{}, errors.Wrapf(ErrProtocol, "master blinding key: %v", err)
	}
	return k, nil
}

// Sign sends the pset to the device and merges the signatures it added into
// p. Nothing else the device returns is taken: the answer must describe the
// same transaction, keep every signature p already carried, and add
// signatures to exactly the number of inputs the device attests.
// On any error p is left as it was.
func (s *Signer) Sign(ctx context.Context, p *psetv2.Pset) (uint32, error) {
	if p == nil {
		return 0, ErrInvalidPset
	}
	b64, err := p.ToBase64()
	if err != nil {
		return 0, errors.Wrap(ErrInvalidPset, err.Error())
	}

	var result SignPsetResult
	if err := s.call(ctx, MethodSignPset, SignPsetParams{Pset: b64}, &result); err != nil {
		return 0, err
	}
	signed, err := psetv2.NewPsetFromBase64(result.Pset)
	if err != nil {
		return 0, errors.Wrapf(ErrProtocol, "signed pset: %v", err)
	}
	added, err := checkAttestation(p, signed, result.Signed)
	if err != nil {
		return 0, err
	}
	for _, a := range added {
		in := &p.Inputs[a.input]
		in.PartialSigs = append(in.PartialSigs, a.sigs...)
		if len(in.RedeemScript) == 0 && len(a.redeemScript) > 0 {
			in.RedeemScript = a.redeemScript
		}
	}
	return result.Signed, nil
}

type addedSigs struct {
	input        int
	sigs         []psetv2.PartialSig
	redeemScript []byte
}

// checkAttestation returns the signatures the device added to before.
func checkAttestation(before, after *psetv2.Pset, attested uint32) ([]addedSigs, error) {
	if len(before.Inputs) != len(after.Inputs) || len(before.Outputs) != len(after.Outputs) {
		return nil, errors.Wrap(ErrProtocol, "device changed the transaction shape")
	}
	beforeTx, err := before.UnsignedTx()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPset, err.Error())
	}
	afterTx, err := after.UnsignedTx()
	if err != nil {
		return nil, errors.Wrapf(ErrProtocol, "signed pset: %v", err)
	}
	if beforeTx.TxHash() != afterTx.TxHash() {
		return nil, errors.Wrap(ErrProtocol, "device signed a different transaction")
	}

	var added []addedSigs
	for i := range before.Inputs {
		existing := before.Inputs[i].PartialSigs
		returned := after.Inputs[i].PartialSigs
		for _, ps := range existing {
			if !hasPartialSig(returned, ps) {
				return nil, errors.Wrapf(ErrProtocol, "device dropped or altered a signature on input %d", i)
			}
		}
		var fresh []psetv2.PartialSig
		for _, ps := range returned {
			if !hasPubKey(existing, ps.PubKey) && !hasPubKey(fresh, ps.PubKey) {
				fresh = append(fresh, ps)
			}
		}
		if len(fresh) > 0 {
			added = append(added, addedSigs{input: i, sigs: fresh, redeemScript: after.Inputs[i].RedeemScript})
		}
	}
	if uint32(len(added)) != attested {
		return nil, errors.Wrapf(ErrProtocol, "device attested %d signed inputs, found %d", attested, len(added))
	}
	return added, nil
}

func hasPartialSig(sigs []psetv2.PartialSig, want psetv2.PartialSig) bool {
	for _, ps := range sigs {
		if bytes.Equal(ps.PubKey, want.PubKey) && bytes.Equal(ps.Signature, want.Signature) {
			return true
		}
	}
	return false
}

func hasPubKey(sigs []psetv2.PartialSig, pubKey []byte) bool {
	for _, ps := range sigs {
		if bytes.Equal(ps.PubKey, pubKey) {
			return true
		}
	}
	return false
}

func (s *Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.transport == nil {
		return nil
	}
	return s.transport.Close()
}
