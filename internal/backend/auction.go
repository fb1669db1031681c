package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Auction is a timed listing tracked off-chain by the backend.
type Auction struct {
	ID            int64  `json:"id"`
	TokenID       string `json:"token_id"`
	NFTAddress    string `json:"nft_address"`
	ChainID       uint64 `json:"chain_id"`
	Seller        string `json:"seller"`
	StartPriceWei string `json:"start_price_wei"`
	HighestBidWei string `json:"highest_bid_wei"`
	HighestBidder string `json:"highest_bidder"`
	StartTime     int64  `json:"start_time"`
	EndTime       int64  `json:"end_time"`
	Settled       bool   `json:"settled"`
}

// CreateAuctionRequest registers a new timed listing.
type CreateAuctionRequest struct {
	TokenID       string `json:"token_id"`
	NFTAddress    string `json:"nft_address"`
	ChainID       uint64 `json:"chain_id"`
	Seller        string `json:"seller"`
	StartPriceWei string `json:"start_price_wei"`
	StartTime     int64  `json:"start_time"`
	EndTime       int64  `json:"end_time"`
}

// BidRequest records a bid against an open auction.
type BidRequest struct {
	AuctionID int64  `json:"auction_id"`
	Bidder    string `json:"bidder"`
	AmountWei string `json:"amount_wei"`
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// CreateAuction opens a timed listing on the backend.
func (c *Client) CreateAuction(ctx context.Context, req CreateAuctionRequest) (*Auction, error) {
	var out Auction
	if err := c.postJSON(ctx, "/api/auction/create", req, &out); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}
	return &out, nil
}

// PlaceBid submits a bid. The backend rejects bids at or below the current
// highest with a non-200 status.
func (c *Client) PlaceBid(ctx context.Context, req BidRequest) (*Auction, error) {
	var out Auction
	if err := c.postJSON(ctx, "/api/auction/bid", req, &out); err != nil {
		return nil, fmt.Errorf("place bid: %w", err)
	}
	return &out, nil
}

// ActiveAuctions lists auctions that have started and not yet ended.
func (c *Client) ActiveAuctions(ctx context.Context, chainID uint64) ([]Auction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/auction/active?chain_id=%d", c.base, chainID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("active auctions: status %d", resp.StatusCode)
	}
	var out []Auction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
