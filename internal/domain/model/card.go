package model

// UnknownRarity is stored for cards the catalog gives no rarity label.
const UnknownRarity = "Unknown"

// Card mirrors the catalog API card shape (select=id,name,rarity,images,number,set).
type Card struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Rarity string     `json:"rarity,omitempty"`
	Number string     `json:"number,omitempty"`
	Images CardImages `json:"images"`
	Set    CardSet    `json:"set"`
}

// CardImages holds the two image sizes the catalog serves.
type CardImages struct {
	Small string `json:"small,omitempty"`
	Large string `json:"large,omitempty"`
}

// CardSet is the set reference embedded in a card.
type CardSet struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImageURL prefers the large image, then the small one.
func (c Card) ImageURL() string {
	if c.Images.Large != "" {
		return c.Images.Large
	}
	return c.Images.Small
}

// StoredRarity is the rarity recorded in a collection.
func (c Card) StoredRarity() string {
	if c.Rarity == "" {
		return UnknownRarity
	}
	return c.Rarity
}

// Entry projects the card into a collection row for userID. setID and
// setName fill in when the card carries no set of its own.
func (c Card) Entry(userID int64, setID, setName string) CollectionEntry {
	e := CollectionEntry{
		UserID:       userID,
		CardID:       c.ID,
		CardImageURL: c.ImageURL(),
		CardRarity:   c.StoredRarity(),
		SetID:        c.Set.ID,
		SetName:      c.Set.Name,
	}
	if e.SetID == "" {
		e.SetID = setID
	}
	if e.SetName == "" {
		e.SetName = setName
	}
	return e
}

// PackSet is one entry of the openable pack list.
type PackSet struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Images SetImages `json:"images"`
	Cost   int64     `json:"cost"`
}

// SetImages are the symbol and logo of a set.
type SetImages struct {
	Symbol string `json:"symbol,omitempty"`
	Logo   string `json:"logo,omitempty"`
}
