package domain

// CriteriaType scopes a bid to a whole collection or to one trait value.
type CriteriaType string

const (
	CriteriaCollection CriteriaType = "COLLECTION"
	CriteriaTrait      CriteriaType = "TRAIT"
)

// Criteria is the scope of a criteria bid. Value holds the trait key/value
// map for TRAIT bids and is empty for COLLECTION bids.
type Criteria struct {
	Type  CriteriaType      `json:"type"`
	Value map[string]string `json:"value,omitempty"`
}

// TraitCriteria builds a TRAIT criteria for a single key/value pair.
func TraitCriteria(key, value string) Criteria {
	return Criteria{Type: CriteriaTrait, Value: map[string]string{key: value}}
}

// Bid is one of the wallet's open criteria bids on a marketplace.
type Bid struct {
	ContractAddress string            `json:"contractAddress"`
	CriteriaType    CriteriaType      `json:"criteriaType"`
	CriteriaValue   map[string]string `json:"criteriaValue"`
	Price           float64           `json:"price,string"`
	OpenSize        int               `json:"openSize"`
}

// Quantity returns the bid's remaining open size, treating an unreported size
// as 1.
func (b *Bid) Quantity() int {
	if b.OpenSize <= 0 {
		return 1
	}
	return b.OpenSize
}

// MatchesTrait reports whether the bid is a TRAIT bid on the given key/value.
func (b *Bid) MatchesTrait(key, value string) bool {
	if b.CriteriaType != CriteriaTrait {
		return false
	}
	return b.CriteriaValue[key] == value
}

// PriceLevel is one executable-bid price level on a collection: a live bid
// price immediately fillable against a matching ask, with its remaining size
// and the number of distinct bidders behind it.
type PriceLevel struct {
	Price          float64 `json:"price,string"`
	ExecutableSize int     `json:"executableSize"`
	NumberBidders  int     `json:"numberBidders"`
}

// TopBid is the best competing executable bid on a collection, excluding the
// bot's own wallet.
type TopBid struct {
	Price       float64
	BidCount    int
	BidderCount int
}

// BestBid reduces executable-bid price levels to the highest-priced level.
// It returns a zero TopBid when levels is empty.
func BestBid(levels []PriceLevel) TopBid {
	var top TopBid
	for _, l := range levels {
		if l.Price > top.Price {
			top = TopBid{Price: l.Price, BidCount: l.ExecutableSize, BidderCount: l.NumberBidders}
		}
	}
	return top
}
