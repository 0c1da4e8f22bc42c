package auction

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tamv/internal/domain"
	"tamv/internal/economy"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func liveAuction() *domain.Auction {
	return &domain.Auction{
		ID:               "auc-1",
		ArtworkID:        "art-1",
		SellerID:         "seller",
		StartPrice:       dec("500"),
		CurrentBid:       decimal.Zero,
		MinimumIncrement: dec("50"),
		Status:           domain.AuctionLive,
		StartTime:        t0.Add(-time.Hour),
		EndTime:          t0.Add(time.Hour),
	}
}

func newEngine() *Engine {
	e := NewEngine(0)
	n := 0
	e.SetIDFunc(func() string {
		n++
		return fmt.Sprintf("bid-%d", n)
	})
	return e
}

func TestMinimumBid(t *testing.T) {
	a := liveAuction()
	require.Equal(t, "500", MinimumBid(a).String())

	p, err := newEngine().PlaceBid(a, nil, "alice", dec("500"), t0)
	require.NoError(t, err)
	require.Equal(t, "550", MinimumBid(p.Auction).String())
}

func TestValidateBid(t *testing.T) {
	withBid := liveAuction()
	withBid.BidCount = 1
	withBid.CurrentBid = dec("500")
	alice := "alice"
	withBid.HighestBidderID = &alice

	ended := liveAuction()
	ended.Status = domain.AuctionEnded

	cases := []struct {
		name    string
		auction *domain.Auction
		bidder  string
		amount  string
		want    error
	}{
		{"first bid at start price", liveAuction(), "bob", "500", nil},
		{"below start price", liveAuction(), "bob", "499.99", economy.ErrBidTooLow},
		{"not live", ended, "bob", "1000", economy.ErrAuctionNotLive},
		{"seller low", liveAuction(), "seller", "1", economy.ErrSelfBidNotAllowed},
		{"seller high", liveAuction(), "seller", "100000", economy.ErrSelfBidNotAllowed},
		{"below increment", withBid, "bob", "549", economy.ErrBidTooLow},
		{"already highest", withBid, "alice", "600", economy.ErrAlreadyHighestBidder},
		{"outbid", withBid, "bob", "550", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBid(tc.auction, dec(tc.amount), tc.bidder)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestBidSequenceIsMonotonic(t *testing.T) {
	e := newEngine()
	a := liveAuction()
	var winning *domain.Bid
	bidders := []string{"alice", "bob", "carol", "alice", "bob"}
	amounts := []string{"500", "550", "700", "750", "1000"}

	for i, bidder := range bidders {
		prev := a
		p, err := e.PlaceBid(a, winning, bidder, dec(amounts[i]), t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.True(t, p.Auction.CurrentBid.GreaterThanOrEqual(prev.CurrentBid))
		require.Equal(t, prev.BidCount+1, p.Auction.BidCount)
		require.Equal(t, bidder, p.Auction.HighestBidder())
		require.True(t, p.Bid.IsWinning)
		if winning != nil {
			require.NotNil(t, p.Outbid)
			require.Equal(t, winning.ID, p.Outbid.ID)
			require.False(t, p.Outbid.IsWinning)
			require.True(t, winning.IsWinning, "previous bid value must not be mutated")
		}
		a, winning = p.Auction, p.Bid
	}
	require.Equal(t, 5, a.BidCount)
	require.Equal(t, "1000", a.CurrentBid.String())
}

func TestPlaceBidAfterEndTime(t *testing.T) {
	_, err := newEngine().PlaceBid(liveAuction(), nil, "alice", dec("500"), t0.Add(time.Hour))
	require.True(t, errors.Is(err, economy.ErrAuctionNotLive))
}

func TestAutoExtend(t *testing.T) {
	e := newEngine()
	a := liveAuction()
	a.AutoExtend = true
	a.ExtensionMinutes = 10

	p, err := e.PlaceBid(a, nil, "alice", dec("500"), t0)
	require.NoError(t, err)
	require.False(t, p.Extended)
	require.Equal(t, a.EndTime, p.Auction.EndTime)

	late := a.EndTime.Add(-9 * time.Minute)
	p, err = e.PlaceBid(p.Auction, p.Bid, "bob", dec("550"), late)
	require.NoError(t, err)
	require.True(t, p.Extended)
	require.Equal(t, a.EndTime.Add(10*time.Minute), p.Auction.EndTime)

	a.ExtensionMinutes = 0
	p, err = e.PlaceBid(a, nil, "alice", dec("500"), a.EndTime.Add(-4*time.Minute))
	require.NoError(t, err)
	require.Equal(t, a.EndTime.Add(DefaultExtensionMinutes*time.Minute), p.Auction.EndTime)
}

func TestAutoExtendWithoutEndTime(t *testing.T) {
	a := liveAuction()
	a.AutoExtend = true
	a.EndTime = time.Time{}

	p, err := newEngine().PlaceBid(a, nil, "alice", dec("500"), t0)
	require.NoError(t, err)
	require.False(t, p.Extended)
	require.True(t, p.Auction.EndTime.IsZero())
}

func TestAdvance(t *testing.T) {
	up := liveAuction()
	up.Status = domain.AuctionUpcoming
	up.StartTime = t0.Add(time.Minute)

	same, changed := Advance(up, t0)
	require.False(t, changed)
	require.Equal(t, domain.AuctionUpcoming, same.Status)

	live, changed := Advance(up, t0.Add(time.Minute))
	require.True(t, changed)
	require.Equal(t, domain.AuctionLive, live.Status)

	closed, changed := Advance(live, live.EndTime)
	require.True(t, changed)
	require.Equal(t, domain.AuctionEnded, closed.Status)

	live.BidCount = 2
	sold, _ := Advance(live, live.EndTime.Add(time.Second))
	require.Equal(t, domain.AuctionSold, sold.Status)

	_, changed = Advance(sold, sold.EndTime.Add(time.Hour))
	require.False(t, changed)
}

func TestCancel(t *testing.T) {
	c, err := Cancel(liveAuction())
	require.NoError(t, err)
	require.Equal(t, domain.AuctionCancelled, c.Status)

	withBids := liveAuction()
	withBids.BidCount = 1
	_, err = Cancel(withBids)
	require.True(t, errors.Is(err, economy.ErrInvalidTransition))
}

func TestCountdown(t *testing.T) {
	end := t0.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second + 900*time.Millisecond)
	c := CountdownTo(end, t0)
	require.Equal(t, Countdown{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}, c)
	require.Equal(t, "2d 03h 04m", c.String())
	require.Equal(t, "01h 00m 00s", CountdownTo(t0.Add(time.Hour), t0).String())
	require.Equal(t, "00m 42s", CountdownTo(t0.Add(42*time.Second), t0).String())
	require.Equal(t, "ended", CountdownTo(t0, t0).String())
	require.True(t, CountdownTo(t0, t0.Add(time.Second)).Ended)
}
