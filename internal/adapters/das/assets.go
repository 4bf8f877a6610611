package das

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hxuan190/nft-swap-engine/internal/domain"
)

const ipfsGateway = "https://ipfs.io/ipfs/"

// GetAsset fetches one asset by mint. A null result or an indexer "not found"
// error is ErrNotFound.
func (c *Client) GetAsset(ctx context.Context, mint string) (*domain.Asset, error) {
	result, err := c.call(ctx, "getAsset", map[string]any{"id": mint})
	if err != nil {
		if isNotFoundRPCError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !result.Exists() || result.Type == gjson.Null {
		return nil, ErrNotFound
	}
	return parseAsset(result)
}

// GetAssetsByOwner pages through every asset the owner holds, fungibles
// excluded.
func (c *Client) GetAssetsByOwner(ctx context.Context, owner string) ([]*domain.Asset, error) {
	var out []*domain.Asset
	for page := 1; page <= c.maxPages; page++ {
		result, err := c.call(ctx, "getAssetsByOwner", map[string]any{
			"ownerAddress": owner,
			"page":         page,
			"limit":        c.pageLimit,
			"displayOptions": map[string]bool{
				"showFungible":      false,
				"showNativeBalance": false,
			},
		})
		if err != nil {
			return nil, err
		}
		items := result.Get("items")
		if !items.IsArray() {
			return nil, ErrMalformedResponse
		}
		n := 0
		for _, item := range items.Array() {
			n++
			asset, err := parseAsset(item)
			if err != nil {
				continue
			}
			out = append(out, asset)
		}
		if n < c.pageLimit {
			break
		}
	}
	return out, nil
}

// GetBalance returns the lamport balance of an account.
func (c *Client) GetBalance(ctx context.Context, address string) (uint64, error) {
	result, err := c.call(ctx, "getBalance", []any{address})
	if err != nil {
		return 0, err
	}
	value := result.Get("value")
	if value.Type != gjson.Number {
		return 0, ErrMalformedResponse
	}
	return value.Uint(), nil
}

func parseAsset(r gjson.Result) (*domain.Asset, error) {
	id := r.Get("id").String()
	if id == "" {
		return nil, fmt.Errorf("%w: asset without id", ErrMalformedResponse)
	}

	metadata := r.Get("content.metadata")
	attributes := metadata.Get("attributes").Array()

	name := metadata.Get("name").String()
	if name == "" {
		name = "NFT " + shortID(id)
	}

	asset := &domain.Asset{
		Mint:            id,
		Name:            name,
		Symbol:          metadata.Get("symbol").String(),
		Image:           imageURL(r),
		Description:     metadata.Get("description").String(),
		Interface:       r.Get("interface").String(),
		Owner:           r.Get("ownership.owner").String(),
		Collection:      collectionOf(r),
		Burnt:           r.Get("burnt").Bool(),
		AttributesCount: len(attributes),
	}
	for _, a := range attributes {
		if t := a.Get("trait_type").String(); t != "" {
			asset.Attributes = append(asset.Attributes, t+": "+a.Get("value").String())
		}
	}
	return asset, nil
}

// collectionOf prefers the "collection" grouping and falls back to the first
// grouping entry.
func collectionOf(r gjson.Result) string {
	groups := r.Get("grouping").Array()
	for _, g := range groups {
		if g.Get("group_key").String() == "collection" {
			return g.Get("group_value").String()
		}
	}
	if len(groups) > 0 {
		return groups[0].Get("group_value").String()
	}
	return ""
}

func imageURL(r gjson.Result) string {
	uri := r.Get("content.files.0.uri").String()
	if uri == "" {
		uri = r.Get("content.metadata.image").String()
	}
	if uri == "" {
		uri = r.Get("content.links.image").String()
	}
	if strings.HasPrefix(uri, "ipfs://") {
		uri = ipfsGateway + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
