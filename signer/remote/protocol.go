package remote

import (
	"encoding/json"

	"github.com/openweb3-io/liquidsigner/types"
	"github.com/pkg/errors"
)

type Method string

const (
	MethodGetXpub              Method = "get_xpub"
	MethodGetMasterBlindingKey Method = "get_master_blinding_key"
	MethodSignPset             Method = "sign_pset"
)

// Request is one frame sent to the device. ID is assigned by the transport.
type Request struct {
	ID     uint64          `json:"id"`
	Method Method          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers the Request with the same ID. Exactly one of Result and
// Error is set.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *types.Error    `json:"error,omitempty"`
}

type GetXpubParams struct {
	Path string `json:"path"`
}

type GetXpubResult struct {
	Xpub string `json:"xpub"`
}

type MasterBlindingKeyResult struct {
	Key string `json:"key"`
}

type SignPsetParams struct {
	Pset string `json:"pset"`
}

type SignPsetResult struct {
	Pset   string `json:"pset"`
	Signed uint32 `json:"signed"`
}

func NewRequest(method Method, params any) (*Request, error) {
	req := &Request{Method: method}
	if params != nil {
		bz, err := json.Marshal(params)
		if err != nil {
			return nil, errors.Wrapf(err, "encode %s params", method)
		}
		req.Params = bz
	}
	return req, nil
}

func NewResult(id uint64, result any) (*Response, error) {
	bz, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "encode result")
	}
	return &Response{ID: id, Result: bz}, nil
}

func NewErrorResponse(id uint64, err *types.Error) *Response {
	return &Response{ID: id, Error: err}
}
