// Package memda implements da.Client entirely in memory, for tests and
// single-process deployments that don't need real data availability.
package memda

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"sync"

	"github.com/muridata/zkstate/pkg/da"
)

type entry struct {
	namespace da.Namespace
	data      []byte
	commit    []byte
}

// Client is an in-memory da.Client. Each SubmitBlob call advances the
// height by one, mirroring one blob per block for simplicity; a real DA
// layer may batch many blobs into a single height.
type Client struct {
	mu      sync.Mutex
	byHeight map[uint64][]entry
	height  uint64
}

var _ da.Client = (*Client)(nil)

// New constructs an empty in-memory client starting at height 0.
func New() *Client {
	return &Client{byHeight: make(map[uint64][]entry)}
}

func (c *Client) SubmitBlob(ctx context.Context, ns da.Namespace, data []byte) (da.SubmitResult, error) {
	select {
	case <-ctx.Done():
		return da.SubmitResult{}, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.height++
	commit := sha256.Sum256(data)
	c.byHeight[c.height] = append(c.byHeight[c.height], entry{namespace: ns, data: data, commit: commit[:]})

	return da.SubmitResult{Height: c.height, Commitment: commit[:]}, nil
}

func (c *Client) GetBlobs(ctx context.Context, ns da.Namespace, height uint64) ([]da.RetrievedBlob, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []da.RetrievedBlob
	for i, e := range c.byHeight[height] {
		if e.namespace != ns {
			continue
		}
		out = append(out, da.RetrievedBlob{
			Data:       append([]byte(nil), e.data...),
			Namespace:  ns.Bytes(),
			Commitment: append([]byte(nil), e.commit...),
			Index:      uint32(i),
		})
	}
	return out, nil
}

func (c *Client) GetBlobsRange(ctx context.Context, ns da.Namespace, fromHeight, toHeight uint64) ([]da.HeightBlob, error) {
	if fromHeight > toHeight {
		return nil, fmt.Errorf("memda: fromHeight %d exceeds toHeight %d", fromHeight, toHeight)
	}
	var out []da.HeightBlob
	heights := make([]uint64, 0, toHeight-fromHeight+1)
	for h := fromHeight; h <= toHeight; h++ {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })
	for _, h := range heights {
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

func (c *Client) GetHeadHeight(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height, nil
}

func (c *Client) IsReady(ctx context.Context) (bool, error) {
	return true, nil
}
