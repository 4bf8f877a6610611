package domain

// Asset is an NFT as reported by the indexing API. Owner and Collection are
// empty when the indexer does not know them.
type Asset struct {
	Mint            string   `json:"mint"`
	Name            string   `json:"name"`
	Symbol          string   `json:"symbol"`
	Image           string   `json:"image"`
	Description     string   `json:"description,omitempty"`
	Interface       string   `json:"interface"`
	Owner           string   `json:"owner,omitempty"`
	Collection      string   `json:"collection,omitempty"`
	Burnt           bool     `json:"burnt"`
	AttributesCount int      `json:"traits"`
	Attributes      []string `json:"-"`
}

func (a *Asset) Rarity() string {
	if a.AttributesCount >= 6 {
		return "Rare"
	}
	return "Common"
}
