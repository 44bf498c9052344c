// Package rpcda implements da.Client against a Celestia-style node over its
// JSON-RPC interface (blob.Submit, blob.GetAll, header.LocalHead,
// node.Ready), grounded on the original adapter's request shape.
package rpcda

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/muridata/zkstate/pkg/da"
	"github.com/muridata/zkstate/pkg/zkerr"
)

// DefaultURL is the default bridge-node RPC endpoint.
const DefaultURL = "http://localhost:26658"

// Client talks JSON-RPC 2.0 to a DA node.
type Client struct {
	httpClient *http.Client
	url        string
	nextID     atomic.Uint64
	log        zerolog.Logger
}

var _ da.Client = (*Client)(nil)

// New constructs a Client against DefaultURL.
func New() *Client {
	return WithURL(DefaultURL)
}

// WithURL constructs a Client against a custom RPC endpoint.
func WithURL(url string) *Client {
	return &Client{
		httpClient: &http.Client{},
		url:        url,
		log:        log.With().Str("component", "rpcda").Logger(),
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	id := c.nextID.Add(1)
	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%w: marshal rpc request: %v", zkerr.ErrEncoding, err)
	}

	c.log.Debug().Str("method", method).Msg("calling da node")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &zkerr.TransportError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &zkerr.TransportError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode rpc response: %v", zkerr.ErrEncoding, err)
	}
	if rpcResp.Error != nil {
		return &zkerr.TransportError{Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%w: decode rpc result: %v", zkerr.ErrEncoding, err)
		}
	}
	return nil
}

type submittedBlob struct {
	Namespace    string  `json:"namespace"`
	Data         string  `json:"data"`
	ShareVersion int     `json:"share_version"`
	Commitment   *string `json:"commitment"`
	Index        *int    `json:"index"`
}

func (c *Client) SubmitBlob(ctx context.Context, ns da.Namespace, data []byte) (da.SubmitResult, error) {
	blobs := []submittedBlob{{
		Namespace:    ns.Base64(),
		Data:         base64.StdEncoding.EncodeToString(data),
		ShareVersion: 0,
	}}
	var height uint64
	if err := c.call(ctx, "blob.Submit", []any{blobs, map[string]any{}}, &height); err != nil {
		return da.SubmitResult{}, err
	}
	return da.SubmitResult{Height: height}, nil
}

type blobResponse struct {
	Namespace  string `json:"namespace"`
	Data       string `json:"data"`
	Commitment string `json:"commitment"`
	Index      uint32 `json:"index"`
}

func (c *Client) GetBlobs(ctx context.Context, ns da.Namespace, height uint64) ([]da.RetrievedBlob, error) {
	var responses []blobResponse
	err := c.call(ctx, "blob.GetAll", []any{height, []string{ns.Base64()}}, &responses)
	if err != nil {
		var terr *zkerr.TransportError
		if isNotFound(err, &terr) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]da.RetrievedBlob, 0, len(responses))
	for _, r := range responses {
		data, err := base64.StdEncoding.DecodeString(r.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: decode blob data: %v", zkerr.ErrEncoding, err)
		}
		namespace, err := base64.StdEncoding.DecodeString(r.Namespace)
		if err != nil {
			return nil, fmt.Errorf("%w: decode blob namespace: %v", zkerr.ErrEncoding, err)
		}
		commitment, err := base64.StdEncoding.DecodeString(r.Commitment)
		if err != nil {
			return nil, fmt.Errorf("%w: decode blob commitment: %v", zkerr.ErrEncoding, err)
		}
		out = append(out, da.RetrievedBlob{Data: data, Namespace: namespace, Commitment: commitment, Index: r.Index})
	}
	return out, nil
}

func isNotFound(err error, target **zkerr.TransportError) bool {
	terr, ok := err.(*zkerr.TransportError)
	if !ok {
		return false
	}
	*target = terr
	return terr.Message == "blob: not found"
}

func (c *Client) GetBlobsRange(ctx context.Context, ns da.Namespace, fromHeight, toHeight uint64) ([]da.HeightBlob, error) {
	if fromHeight > toHeight {
		return nil, fmt.Errorf("rpcda: fromHeight %d exceeds toHeight %d", fromHeight, toHeight)
	}
	var out []da.HeightBlob
	for h := fromHeight; h <= toHeight; h++ {
		blobs, err := c.GetBlobs(ctx, ns, h)
		if err != nil {
			return nil, err
		}
		for _, b := range blobs {
			out = append(out, da.HeightBlob{Height: h, Blob: b})
		}
	}
	return out, nil
}

type headerResponse struct {
	Header struct {
		Height string `json:"height"`
	} `json:"header"`
}

func (c *Client) GetHeadHeight(ctx context.Context) (uint64, error) {
	var header headerResponse
	if err := c.call(ctx, "header.LocalHead", []any{}, &header); err != nil {
		return 0, err
	}
	height, err := strconv.ParseUint(header.Header.Height, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid height %q: %v", zkerr.ErrEncoding, header.Header.Height, err)
	}
	return height, nil
}

func (c *Client) IsReady(ctx context.Context) (bool, error) {
	var ready bool
	if err := c.call(ctx, "node.Ready", []any{}, &ready); err != nil {
		return false, err
	}
	return ready, nil
}
